package kvstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/gdbmdump/gdbmdump"
)

var ErrNotFound = errors.New("key not found")

const (
	opPut = "put"
	opDel = "del"
)

type entry struct {
	key string
	// offset in data file, key bytes followed by value bytes
	offset      int64
	keySize     int64
	valueSize   int64
	timestampMs int64
	deleted     bool
}

type Store struct {
	Dir           string
	IndexFileName string
	DataFileName  string

	indexFilePath string
	dataFilePath  string
	entries       map[string]*entry
	// in order of first write, deleted entries are skipped
	order    []*entry
	nDeleted int
	mu       sync.Mutex
}

// returns offset at which the data was written
// we write len(data) bytes
func appendToFileRobust(path string, data []byte) (int64, error) {
	info, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	var offset int64 = 0 // if file does not exist, offset is 0
	if info != nil {
		offset = info.Size()
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return 0, err
	}
	_, err = file.Write(data)
	if err != nil {
		file.Close()
		return 0, err
	}
	err = file.Sync()
	if err != nil {
		file.Close()
		return 0, err
	}
	err = file.Close()
	if err != nil {
		return 0, err
	}
	return offset, nil
}

func (s *Store) appendLocked(op string, key, value []byte) (*entry, error) {
	d := make([]byte, 0, len(key)+len(value))
	d = append(d, key...)
	d = append(d, value...)
	offset, err := appendToFileRobust(s.dataFilePath, d)
	if err != nil {
		return nil, err
	}
	e := &entry{
		key:         string(key),
		offset:      offset,
		keySize:     int64(len(key)),
		valueSize:   int64(len(value)),
		timestampMs: time.Now().UTC().UnixMilli(),
	}
	indexLine := fmt.Sprintf("%d %d %d %d %s\n", e.offset, e.keySize, e.valueSize, e.timestampMs, op)
	if _, err = appendToFileRobust(s.indexFilePath, []byte(indexLine)); err != nil {
		return nil, err
	}
	return e, nil
}

// apply updates in-memory state after a put or del
func (s *Store) apply(op string, e *entry) {
	prev := s.entries[e.key]
	if op == opDel {
		if prev != nil {
			prev.deleted = true
			delete(s.entries, e.key)
			s.nDeleted++
			s.compactOrder()
		}
		return
	}
	if prev != nil {
		// keep position of the first write
		prev.offset = e.offset
		prev.keySize = e.keySize
		prev.valueSize = e.valueSize
		prev.timestampMs = e.timestampMs
		return
	}
	s.entries[e.key] = e
	s.order = append(s.order, e)
}

// compactOrder drops deleted entries once they're the majority
func (s *Store) compactOrder() {
	if s.nDeleted < 32 || s.nDeleted < len(s.order)/2 {
		return
	}
	live := make([]*entry, 0, len(s.order)-s.nDeleted)
	for _, e := range s.order {
		if !e.deleted {
			live = append(live, e)
		}
	}
	s.order = live
	s.nDeleted = 0
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.appendLocked(opPut, key, value)
	if err != nil {
		return err
	}
	s.apply(opPut, e)
	return nil
}

// Delete removes a key. Deleting a missing key returns ErrNotFound.
func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[string(key)]; !ok {
		return ErrNotFound
	}
	e, err := s.appendLocked(opDel, key, nil)
	if err != nil {
		return err
	}
	s.apply(opDel, e)
	return nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[string(key)]
	if e == nil {
		return nil, ErrNotFound
	}
	return readFilePart(s.dataFilePath, e.offset+e.keySize, e.valueSize)
}

// Len returns number of live keys
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Each calls fn for every live key in the order keys were first written.
// key and value are only valid until fn returns.
// Stops at first error returned by fn.
func (s *Store) Each(fn func(key, value []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.dataFilePath)
	if err != nil {
		if os.IsNotExist(err) && len(s.entries) == 0 {
			return nil
		}
		return err
	}
	defer f.Close()

	var buf []byte
	for _, e := range s.order {
		if e.deleted {
			continue
		}
		n := int(e.keySize + e.valueSize)
		if cap(buf) < n {
			buf = make([]byte, n)
		}
		buf = buf[:n]
		if _, err = f.ReadAt(buf, e.offset); err != nil {
			return fmt.Errorf("failed to read %d bytes at offset %d: %w", n, e.offset, err)
		}
		if err = fn(buf[:e.keySize], buf[e.keySize:]); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes the store in GDBM ASCII dump format. Returns number of
// records written.
func (s *Store) Dump(w io.Writer, opts *gdbmdump.Options) (uint64, error) {
	return gdbmdump.Dump(w, opts, func(a *gdbmdump.Appender) error {
		return s.Each(a.Push)
	})
}

// readFilePart reads len bytes at offset
func readFilePart(path string, offset int64, len int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, len)
	_, err = file.ReadAt(buf, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to read %d bytes at offset %d: %w", len, offset, err)
	}
	return buf, nil
}

type indexLine struct {
	offset      int64
	keySize     int64
	valueSize   int64
	timestampMs int64
	op          string
}

func parseIndexLine(line string, res *indexLine) error {
	parts := strings.Split(line, " ")
	if len(parts) != 5 {
		return fmt.Errorf("invalid index line: '%s'", line)
	}
	var nums [4]int64
	for i := range nums {
		n, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid number '%s' in index line: '%s'", parts[i], line)
		}
		nums[i] = n
	}
	res.offset, res.keySize, res.valueSize, res.timestampMs = nums[0], nums[1], nums[2], nums[3]
	res.op = parts[4]
	if res.op != opPut && res.op != opDel {
		return fmt.Errorf("invalid op '%s' in index line: '%s'", res.op, line)
	}
	return nil
}

func (s *Store) replayIndex() error {
	file, err := os.Open(s.indexFilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var data *os.File
	defer func() {
		if data != nil {
			data.Close()
		}
	}()

	scanner := bufio.NewScanner(file)
	var il indexLine
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err = parseIndexLine(line, &il); err != nil {
			return err
		}
		if data == nil {
			if data, err = os.Open(s.dataFilePath); err != nil {
				return err
			}
		}
		key := make([]byte, il.keySize)
		if _, err = data.ReadAt(key, il.offset); err != nil {
			return fmt.Errorf("failed to read key at offset %d: %w", il.offset, err)
		}
		e := &entry{
			key:         string(key),
			offset:      il.offset,
			keySize:     il.keySize,
			valueSize:   il.valueSize,
			timestampMs: il.timestampMs,
		}
		s.apply(il.op, e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading index: %w", err)
	}
	return nil
}

func OpenStore(s *Store) error {
	if s.Dir == "" {
		return fmt.Errorf("directory is not set. For current directory, use '.'")
	}
	if s.IndexFileName == "" {
		s.IndexFileName = "index.txt"
	}
	if s.DataFileName == "" {
		s.DataFileName = "data.bin"
	}

	var err error
	s.indexFilePath, err = filepath.Abs(filepath.Join(s.Dir, s.IndexFileName))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for index file: %w", err)
	}
	s.dataFilePath, err = filepath.Abs(filepath.Join(s.Dir, s.DataFileName))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for data file: %w", err)
	}

	if err = os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	if _, err := os.Stat(s.indexFilePath); os.IsNotExist(err) {
		file, err := os.Create(s.indexFilePath)
		if err != nil {
			return err
		}
		file.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]*entry{}
	s.order = nil
	s.nDeleted = 0
	if err = s.replayIndex(); err != nil {
		return fmt.Errorf("failed to read index file: %w", err)
	}
	return nil
}
