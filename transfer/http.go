package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/carlmjohnson/requests"
	"github.com/kjk/gdbmdump/dumpfile"
	"github.com/kjk/gdbmdump/gdbmdump"
	"github.com/kjk/gdbmdump/log"
)

type HTTPConfig struct {
	URL string
	// defaults to POST
	Method string
	// sent as X-Api-Key header if set
	APIKey string
	// defaults to http.DefaultClient
	Client *http.Client
}

func (c *HTTPConfig) builder(body io.Reader, compression dumpfile.Compression) *requests.Builder {
	method := c.Method
	if method == "" {
		method = http.MethodPost
	}
	rb := requests.
		URL(c.URL).
		Method(method).
		BodyReader(body).
		ContentType(dumpContentType)
	if ce := compression.String(); ce != "" {
		rb = rb.Header("Content-Encoding", ce)
	}
	if c.APIKey != "" {
		rb = rb.Header("X-Api-Key", c.APIKey)
	}
	if c.Client != nil {
		rb = rb.Client(c.Client)
	}
	return rb
}

// PostDump sends a dump in the request body. Non-2xx response is an error.
func PostDump(ctx context.Context, c *HTTPConfig, body io.Reader) error {
	return c.builder(body, dumpfile.None).Fetch(ctx)
}

// PostDumpFile sends a dump file as-is. Compressed files are sent
// with Content-Encoding header.
func PostDumpFile(ctx context.Context, c *HTTPConfig, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	err = c.builder(f, dumpfile.CompressionFromPath(path)).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("sending '%s' to '%s' failed: %w", path, c.URL, err)
	}
	log.Verbosef("sent '%s' to '%s'\n", path, c.URL)
	return nil
}

// StreamDump sends a dump produced by fn without buffering it whole.
// Returns number of records.
func StreamDump(ctx context.Context, c *HTTPConfig, opts *gdbmdump.Options, fn func(a *gdbmdump.Appender) error) (uint64, error) {
	pr, wait := dumpPipe(opts, dumpfile.None, fn)
	err := c.builder(pr, dumpfile.None).Fetch(ctx)
	// unblock the producer if the request stopped reading
	pr.CloseWithError(errRequestDone)
	n, errDump := wait()
	if errDump != nil && !errors.Is(errDump, errRequestDone) {
		return n, fmt.Errorf("dump to '%s' failed: %w", c.URL, errDump)
	}
	if err != nil {
		return n, fmt.Errorf("sending dump to '%s' failed: %w", c.URL, err)
	}
	log.Event("dump-http", "url", c.URL, "count", n)
	return n, nil
}
