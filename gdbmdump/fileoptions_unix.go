//go:build unix

package gdbmdump

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
)

func fillOwner(o *Options, st os.FileInfo) {
	sys, ok := st.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	o.UID = strconv.FormatUint(uint64(sys.Uid), 10)
	if u, err := user.LookupId(o.UID); err == nil {
		o.User = u.Username
	}
	o.GID = strconv.FormatUint(uint64(sys.Gid), 10)
	if g, err := user.LookupGroupId(o.GID); err == nil {
		o.Group = g.Name
	}
}
