//go:build !unix

package gdbmdump

import "os"

// no uid/gid outside of unix
func fillOwner(o *Options, st os.FileInfo) {}
