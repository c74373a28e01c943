package dumpfile

import (
	"fmt"
	"os"
	"time"

	"github.com/kjk/gdbmdump/gdbmdump"
	"github.com/kjk/gdbmdump/log"
)

// Result describes a dump written by Write
type Result struct {
	Path     string
	Count    uint64
	Size     int64
	Duration time.Duration
}

// Write writes a dump to path. fn pushes the records.
// Either the complete dump is at path or nothing is.
func Write(path string, opts *gdbmdump.Options, fn func(a *gdbmdump.Appender) error) (*Result, error) {
	timeStart := time.Now()
	f, err := Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Cancel()

	n, err := gdbmdump.Dump(f, opts, fn)
	if err != nil {
		log.Errorf("dumpfile.Write: dump to '%s' failed after %d records with '%s'\n", path, n, err)
		return nil, fmt.Errorf("dump to '%s' failed: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return nil, fmt.Errorf("saving '%s' failed: %w", path, err)
	}

	res := &Result{
		Path:     path,
		Count:    n,
		Size:     fileSize(path),
		Duration: time.Since(timeStart),
	}
	log.Verbosef("dumped %d records to '%s' (%d bytes) in %s\n", res.Count, path, res.Size, res.Duration)
	log.Event("dump", "path", path, "count", res.Count, "size", res.Size, "compression", f.Compression().String(), "durmicro", res.Duration.Microseconds())
	return res, nil
}

// WriteMap writes a dump of m to path
func WriteMap(path string, opts *gdbmdump.Options, m map[string]string) (*Result, error) {
	return Write(path, opts, func(a *gdbmdump.Appender) error {
		return a.PushMap(m)
	})
}

func fileSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return st.Size()
}
