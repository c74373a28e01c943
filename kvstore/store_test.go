package kvstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/gdbmdump/gdbmdump"
)

func openStore(t *testing.T, dir string) *Store {
	s := &Store{Dir: dir}
	err := OpenStore(s)
	assert.NoError(t, err)
	return s
}

type kv struct {
	k, v string
}

func collect(t *testing.T, s *Store) []kv {
	var res []kv
	err := s.Each(func(key, value []byte) error {
		res = append(res, kv{string(key), string(value)})
		return nil
	})
	assert.NoError(t, err)
	return res
}

func TestOpenStoreNoDir(t *testing.T) {
	err := OpenStore(&Store{})
	assert.Error(t, err)
}

func TestEmptyStore(t *testing.T) {
	s := openStore(t, t.TempDir())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, len(collect(t, s)))
	_, err := s.Get([]byte("x"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Delete([]byte("x")), ErrNotFound))

	var buf bytes.Buffer
	n, err := s.Dump(&buf, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), n)
	assert.Equal(t, gdbmdump.String(nil, nil), buf.String())
}

func TestPutGetDelete(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	// keys and values can contain anything
	assert.NoError(t, s.Put([]byte("k 1\n"), []byte("v1")))
	assert.NoError(t, s.Put([]byte("k2"), []byte("binary\x00\xff")))
	assert.NoError(t, s.Put([]byte("k3"), nil))
	assert.NoError(t, s.Put([]byte("k 1\n"), []byte("v1 updated")))
	assert.Equal(t, 3, s.Len())

	v, err := s.Get([]byte("k 1\n"))
	assert.NoError(t, err)
	assert.Equal(t, "v1 updated", string(v))
	v, err = s.Get([]byte("k3"))
	assert.NoError(t, err)
	assert.Equal(t, 0, len(v))

	assert.NoError(t, s.Delete([]byte("k2")))
	assert.Equal(t, 2, s.Len())
	_, err = s.Get([]byte("k2"))
	assert.True(t, errors.Is(err, ErrNotFound))

	// re-added key goes to the end
	assert.NoError(t, s.Put([]byte("k2"), []byte("again")))
	exp := []kv{{"k 1\n", "v1 updated"}, {"k3", ""}, {"k2", "again"}}
	assert.Equal(t, exp, collect(t, s))

	// state survives re-opening
	s2 := openStore(t, dir)
	assert.Equal(t, 3, s2.Len())
	assert.Equal(t, exp, collect(t, s2))
}

func TestEachStopsOnError(t *testing.T) {
	s := openStore(t, t.TempDir())
	for i := 0; i < 5; i++ {
		assert.NoError(t, s.Put([]byte(fmt.Sprintf("k%d", i)), []byte("v")))
	}
	errStop := errors.New("stop")
	n := 0
	err := s.Each(func(key, value []byte) error {
		n++
		if n == 2 {
			return errStop
		}
		return nil
	})
	assert.Equal(t, errStop, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 5, len(collect(t, s)))
}

func TestManyDeletes(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	for i := 0; i < 100; i++ {
		assert.NoError(t, s.Put([]byte(fmt.Sprintf("k%03d", i)), []byte(fmt.Sprintf("v%d", i))))
	}
	for i := 0; i < 100; i += 3 {
		assert.NoError(t, s.Delete([]byte(fmt.Sprintf("k%03d", i))))
	}
	got := collect(t, s)
	assert.Equal(t, 66, len(got))
	assert.Equal(t, kv{"k001", "v1"}, got[0])
	assert.Equal(t, kv{"k098", "v98"}, got[len(got)-1])
	assert.Equal(t, got, collect(t, openStore(t, dir)))
}

func TestDump(t *testing.T) {
	s := openStore(t, t.TempDir())
	assert.NoError(t, s.Put([]byte("foo"), []byte("bar")))
	assert.NoError(t, s.Put([]byte("a"), nil))
	assert.NoError(t, s.Put([]byte("k"), []byte("binary\x00\xffbytes")))

	var buf bytes.Buffer
	opts := &gdbmdump.Options{File: "test.db"}
	n, err := s.Dump(&buf, opts)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	var exp bytes.Buffer
	pairs := []gdbmdump.KV{
		{Key: []byte("foo"), Value: []byte("bar")},
		{Key: []byte("a"), Value: nil},
		{Key: []byte("k"), Value: []byte("binary\x00\xffbytes")},
	}
	_, err = gdbmdump.NewDumper(opts).DumpPairs(&exp, pairs)
	assert.NoError(t, err)
	assert.Equal(t, exp.String(), buf.String())
}

func TestCorruptIndex(t *testing.T) {
	tests := []string{
		"0 1 1 100",
		"0 1 1 100 upd",
		"x 1 1 100 put",
		"0 -1 1 100 put",
		"0 1 1 100 put extra",
		// points past the end of data file
		"100 1 1 100 put",
	}
	for _, line := range tests {
		dir := t.TempDir()
		s := openStore(t, dir)
		assert.NoError(t, s.Put([]byte("k"), []byte("v")))
		path := filepath.Join(dir, "index.txt")
		assert.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0644))
		err := OpenStore(&Store{Dir: dir})
		assert.Error(t, err, "line: %q", line)
	}
}

func TestParseIndexLine(t *testing.T) {
	var il indexLine
	err := parseIndexLine("12 3 4 1700000000000 put", &il)
	assert.NoError(t, err)
	assert.Equal(t, indexLine{12, 3, 4, 1700000000000, "put"}, il)
	err = parseIndexLine(strings.Repeat("1 ", 4)+"del", &il)
	assert.NoError(t, err)
	assert.Equal(t, opDel, il.op)
}
