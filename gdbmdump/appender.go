package gdbmdump

import (
	"io"
	"slices"
)

// KV is a single key/value record
type KV struct {
	Key   []byte
	Value []byte
}

// Appender encodes and counts records pushed onto a dump.
//
// It only writes the data part of a dump, without header and footer.
// Get one from Dumper.Dump unless you write header and footer yourself.
//
// After a write fails, all subsequent pushes return the same error
// without writing anything.
type Appender struct {
	w     io.Writer
	count uint64
	err   error

	// re-used across pushes
	buf     []byte
	scratch []byte
}

// NewAppender creates an appender writing to w
func NewAppender(w io.Writer) *Appender {
	return &Appender{
		w: w,
	}
}

// Count returns number of records pushed so far
func (a *Appender) Count() uint64 {
	return a.count
}

// Err returns the first write error, if any
func (a *Appender) Err() error {
	return a.err
}

// Push writes key followed by value as one record
func (a *Appender) Push(key, value []byte) error {
	if a.err != nil {
		return a.err
	}

	// most records should be small. if buffer gets big, don't keep it
	// around (unbounded cache is a mem leak)
	if cap(a.buf) > 100*1024 && len(key)+len(value) < 50*1024 {
		a.buf = nil
		a.scratch = nil
	}

	d := appendDatum(a.buf[:0], key, &a.scratch)
	d = appendDatum(d, value, &a.scratch)
	a.buf = d
	if _, err := a.w.Write(d); err != nil {
		a.err = err
		return err
	}
	a.count++
	return nil
}

// PushString is Push for strings
func (a *Appender) PushString(key, value string) error {
	return a.Push([]byte(key), []byte(value))
}

// Append is an alias for Push
func (a *Appender) Append(kv KV) error {
	return a.Push(kv.Key, kv.Value)
}

// PushMap pushes all entries of m, in sorted key order
func (a *Appender) PushMap(m map[string]string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := a.PushString(k, m[k]); err != nil {
			return err
		}
	}
	return nil
}
