package transfer

import (
	"io"

	"github.com/kjk/gdbmdump/dumpfile"
	"github.com/kjk/gdbmdump/gdbmdump"
)

// dumpPipe produces a dump in a goroutine. The returned reader yields the
// dump, compressed with c. wait returns the number of records and the
// dump's error once the producer is done.
// Closing the reader with an error makes the producer stop.
func dumpPipe(opts *gdbmdump.Options, c dumpfile.Compression, fn func(a *gdbmdump.Appender) error) (pr *io.PipeReader, wait func() (uint64, error)) {
	pr, pw := io.Pipe()
	var n uint64
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		var cw io.WriteCloser
		cw, err = dumpfile.NewCompressor(pw, c)
		if err == nil {
			n, err = gdbmdump.Dump(cw, opts, fn)
			errClose := cw.Close()
			if err == nil {
				err = errClose
			}
		}
		// nil err closes with io.EOF
		pw.CloseWithError(err)
	}()
	wait = func() (uint64, error) {
		<-done
		return n, err
	}
	return pr, wait
}
