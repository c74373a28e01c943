package gdbmdump

import (
	"bytes"
	"io"
	"iter"
	"strconv"
	"strings"
)

// Version of the dump format. 1.1 is the first version with "#:format="
const Version = "1.1"

// Dumper writes dumps in the standard ASCII format. It holds
// the file information that goes into the header.
type Dumper struct {
	opts Options
}

// NewDumper creates a dumper. opts can be nil.
func NewDumper(opts *Options) *Dumper {
	d := &Dumper{}
	if opts != nil {
		d.opts = *opts
	}
	return d
}

// WriteHeader writes everything that comes before the first record
func (d *Dumper) WriteHeader(w io.Writer) error {
	var b strings.Builder
	o := &d.opts
	b.WriteString("# GDBM dump file created by ")
	b.WriteString(o.creator())
	b.WriteString("\n#:version=" + Version + "\n")
	if o.File != "" {
		b.WriteString("#:file=" + o.File + "\n")
		if attrs := o.attrs(); attrs != "" {
			b.WriteString("#:" + attrs + "\n")
		}
	}
	b.WriteString("#:format=standard\n")
	b.WriteString("# End of header\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFooter writes everything that comes after the last record
func (d *Dumper) WriteFooter(w io.Writer, count uint64) error {
	s := "#:count=" + strconv.FormatUint(count, 10) + "\n# End of data\n"
	_, err := io.WriteString(w, s)
	return err
}

// Dump writes the header, calls fn to push records and writes the
// footer with the number of pushed records.
// If fn returns an error, the footer is not written.
// Returns the number of records written.
func (d *Dumper) Dump(w io.Writer, fn func(a *Appender) error) (uint64, error) {
	a := NewAppender(w)
	if err := d.WriteHeader(w); err != nil {
		return 0, err
	}
	if err := fn(a); err != nil {
		return a.Count(), err
	}
	// fn might have ignored an error returned by Push
	if err := a.Err(); err != nil {
		return a.Count(), err
	}
	err := d.WriteFooter(w, a.Count())
	return a.Count(), err
}

// DumpMap dumps all entries in m. Keys are written in sorted order
// so that the same map always produces the same dump.
func (d *Dumper) DumpMap(w io.Writer, m map[string]string) (uint64, error) {
	return d.Dump(w, func(a *Appender) error {
		return a.PushMap(m)
	})
}

// DumpPairs dumps pairs in order. Duplicate keys are written as-is.
func (d *Dumper) DumpPairs(w io.Writer, pairs []KV) (uint64, error) {
	return d.Dump(w, func(a *Appender) error {
		for _, kv := range pairs {
			if err := a.Append(kv); err != nil {
				return err
			}
		}
		return nil
	})
}

// DumpSeq dumps key/value pairs produced by seq
func (d *Dumper) DumpSeq(w io.Writer, seq iter.Seq2[[]byte, []byte]) (uint64, error) {
	return d.Dump(w, func(a *Appender) error {
		for k, v := range seq {
			if err := a.Push(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Dump is a shortcut for NewDumper(opts).Dump(w, fn)
func Dump(w io.Writer, opts *Options, fn func(a *Appender) error) (uint64, error) {
	return NewDumper(opts).Dump(w, fn)
}

// DumpMap is a shortcut for NewDumper(opts).DumpMap(w, m)
func DumpMap(w io.Writer, opts *Options, m map[string]string) (uint64, error) {
	return NewDumper(opts).DumpMap(w, m)
}

// String returns a dump of m as a string
func String(opts *Options, m map[string]string) string {
	var buf bytes.Buffer
	// writing to bytes.Buffer doesn't fail
	_, _ = NewDumper(opts).DumpMap(&buf, m)
	return buf.String()
}
