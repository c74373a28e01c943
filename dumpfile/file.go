package dumpfile

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrCancelled is returned by calls subsequent to Cancel()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

// File is a dump file that only appears at its destination path
// if it was completely written.
// Writes go through a buffer and a compressor (if any) into a
// temporary file.
type File struct {
	dstPath     string
	dir         string
	compression Compression

	tmpFile *os.File
	tmpPath string
	bw      *bufio.Writer
	cw      io.WriteCloser
	err     error
}

// Create creates a dump file that will be saved as path.
// Compression is picked from path's extension.
func Create(path string) (*File, error) {
	dir, fName := filepath.Split(path)
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	tmpFile, err := os.CreateTemp(dir, fName+".tmp*")
	if err != nil {
		return nil, err
	}
	c := CompressionFromPath(path)
	f := &File{
		dstPath:     path,
		dir:         dir,
		compression: c,
		tmpFile:     tmpFile,
		tmpPath:     tmpFile.Name(),
	}
	f.cw, err = NewCompressor(tmpFile, c)
	if err != nil {
		f.Cancel()
		return nil, err
	}
	f.bw = bufio.NewWriterSize(f.cw, 64*1024)
	return f, nil
}

// Compression returns compression used for the file
func (f *File) Compression() Compression {
	return f.compression
}

func (f *File) handleError(err error) error {
	if err == nil {
		return nil
	}
	// remember the first error
	if f.err == nil {
		f.err = err
	}
	// delete temporary file
	_ = f.Close()
	return err
}

// Write writes (uncompressed) data
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.alreadyClosed() {
		return 0, os.ErrClosed
	}
	n, err := f.bw.Write(d)
	return n, f.handleError(err)
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// Cancel removes the temporary file if the file wasn't closed yet.
// Destination file will not be created.
// Use it with defer to ensure cleanup on early return or panic.
// Cancel after Close is a no-op.
func (f *File) Cancel() {
	if f == nil || f.alreadyClosed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close flushes all data and renames the temporary file to
// destination path. Can be called multiple times to make it
// easier to use via defer. Returns the first error encountered.
func (f *File) Close() error {
	if f.alreadyClosed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	var errFlush, errCompress error
	if f.err == nil {
		errFlush = f.bw.Flush()
		errCompress = f.cw.Close()
	}
	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}

	err := firstErr(errFlush, errCompress, errSync, errClose)
	if err == nil {
		// this will over-write dstPath (if it exists)
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = (err == nil)
		// for extra protection against crashes elsewhere,
		// sync directory after rename
		fdir, _ := os.Open(f.dir)
		if fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}

	if f.err == nil {
		f.err = err
	}
	return f.err
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
