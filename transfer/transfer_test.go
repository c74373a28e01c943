package transfer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/gdbmdump/dumpfile"
	"github.com/kjk/gdbmdump/gdbmdump"
)

var testData = map[string]string{
	"foo": "bar",
	"a":   "",
	"k":   "binary\x00\xffbytes",
}

type captured struct {
	method          string
	body            string
	contentType     string
	contentEncoding string
	apiKey          string
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *captured) {
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		c.method = r.Method
		c.body = string(d)
		c.contentType = r.Header.Get("Content-Type")
		c.contentEncoding = r.Header.Get("Content-Encoding")
		c.apiKey = r.Header.Get("X-Api-Key")
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestDumpPipe(t *testing.T) {
	pr, wait := dumpPipe(nil, dumpfile.None, func(a *gdbmdump.Appender) error {
		return a.PushMap(testData)
	})
	d, err := io.ReadAll(pr)
	assert.NoError(t, err)
	n, err := wait()
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), n)
	assert.Equal(t, gdbmdump.String(nil, testData), string(d))
}

func TestDumpPipeError(t *testing.T) {
	errStop := errors.New("stop")
	pr, wait := dumpPipe(nil, dumpfile.Gzip, func(a *gdbmdump.Appender) error {
		return errStop
	})
	_, err := io.ReadAll(pr)
	assert.True(t, errors.Is(err, errStop))
	_, err = wait()
	assert.True(t, errors.Is(err, errStop))
}

func TestPostDump(t *testing.T) {
	srv, c := newTestServer(t, http.StatusOK)
	body := gdbmdump.String(nil, testData)
	cfg := &HTTPConfig{URL: srv.URL, APIKey: "secret"}
	err := PostDump(context.Background(), cfg, strings.NewReader(body))
	assert.NoError(t, err)
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, body, c.body)
	assert.Equal(t, dumpContentType, c.contentType)
	assert.Equal(t, "", c.contentEncoding)
	assert.Equal(t, "secret", c.apiKey)
}

func TestPostDumpFile(t *testing.T) {
	srv, c := newTestServer(t, http.StatusCreated)
	path := filepath.Join(t.TempDir(), "test.dump.gz")
	_, err := dumpfile.WriteMap(path, nil, testData)
	assert.NoError(t, err)

	cfg := &HTTPConfig{URL: srv.URL, Method: http.MethodPut}
	err = PostDumpFile(context.Background(), cfg, path)
	assert.NoError(t, err)
	assert.Equal(t, http.MethodPut, c.method)
	assert.Equal(t, "gzip", c.contentEncoding)
	assert.Equal(t, "", c.apiKey)

	err = PostDumpFile(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.dump"))
	assert.Error(t, err)
}

func TestStreamDump(t *testing.T) {
	srv, c := newTestServer(t, http.StatusOK)
	cfg := &HTTPConfig{URL: srv.URL}
	opts := &gdbmdump.Options{File: "test.db"}
	n, err := StreamDump(context.Background(), cfg, opts, func(a *gdbmdump.Appender) error {
		return a.PushMap(testData)
	})
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), n)
	assert.Equal(t, gdbmdump.String(opts, testData), c.body)
}

func TestStreamDumpErrors(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError)
	cfg := &HTTPConfig{URL: srv.URL}
	_, err := StreamDump(context.Background(), cfg, nil, func(a *gdbmdump.Appender) error {
		return a.PushMap(testData)
	})
	assert.Error(t, err)

	srv, _ = newTestServer(t, http.StatusOK)
	cfg = &HTTPConfig{URL: srv.URL}
	errStop := errors.New("source failed")
	_, err = StreamDump(context.Background(), cfg, nil, func(a *gdbmdump.Appender) error {
		return errStop
	})
	assert.True(t, errors.Is(err, errStop))
}

func TestS3Config(t *testing.T) {
	_, err := NewS3(context.Background(), nil)
	assert.Error(t, err)
	_, err = NewS3(context.Background(), &S3Config{Access: "a", Secret: "s", Bucket: "b"})
	assert.Error(t, err)
	assert.NoError(t, (&S3Config{Access: "a", Secret: "s", Bucket: "b", Endpoint: "localhost:9000"}).validate())
}

func TestPutOptions(t *testing.T) {
	o := putOptions("backups/my.dump")
	assert.Equal(t, dumpContentType, o.ContentType)
	assert.Equal(t, "", o.ContentEncoding)
	o = putOptions("backups/my.dump.zst")
	assert.Equal(t, "zstd", o.ContentEncoding)
	o = putOptions("backups/my.dump.br")
	assert.Equal(t, "br", o.ContentEncoding)
}

func TestSSHConfig(t *testing.T) {
	_, err := NewSSH(nil)
	assert.Error(t, err)
	_, err = NewSSH(&SSHConfig{User: "root", Host: "example.com"})
	assert.Error(t, err)
	_, err = NewSSH(&SSHConfig{User: "root", Host: "example.com:x", KeyPath: "id_ed25519"})
	assert.Error(t, err)
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("example.com")
	assert.NoError(t, err)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, uint(22), port)

	host, port, err = splitHostPort("10.0.0.1:2222")
	assert.NoError(t, err)
	assert.Equal(t, "10.0.0.1", host)
	assert.Equal(t, uint(2222), port)

	_, _, err = splitHostPort("example.com:0")
	assert.Error(t, err)
	_, _, err = splitHostPort("example.com:70000")
	assert.Error(t, err)
}

func TestLoadArgs(t *testing.T) {
	args := LoadArgs("/tmp/my.dump", "", nil)
	assert.Equal(t, []string{"/tmp/my.dump"}, args)

	args = LoadArgs("/tmp/my.dump", "/var/db/my.db", &LoadOptions{
		Replace: true,
		NoMeta:  true,
		Owner:   "www:staff",
		Mode:    gdbmdump.Perm(0o640),
	})
	exp := []string{"-r", "-n", "-u", "www:staff", "-m", "640", "/tmp/my.dump", "/var/db/my.db"}
	assert.Equal(t, exp, args)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "/tmp/my.dump", shellQuote("/tmp/my.dump"))
	assert.Equal(t, "www:staff", shellQuote("www:staff"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "'my file.dump'", shellQuote("my file.dump"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, "'$(rm -rf /)'", shellQuote("$(rm -rf /)"))
}
