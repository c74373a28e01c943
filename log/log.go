package log

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/toon-format/toon-go"
)

var (
	log       *WriteDaily
	eventsLog *WriteDaily

	// if true, Verbosef() will log messages
	Verbose bool

	onLog func(s string)
	mu    sync.Mutex
)

type Config struct {
	// log files go to ${Dir}/log, events to ${Dir}/events
	Dir string
	// called for every Logf() call
	OnLog func(s string)
}

// Init starts logging to files in config.Dir.
// Without Init, Logf only prints to stdout and events are dropped.
func Init(config *Config) {
	mu.Lock()
	defer mu.Unlock()
	log = NewWriteDaily(filepath.Join(config.Dir, "log"))
	eventsLog = NewWriteDaily(filepath.Join(config.Dir, "events"))
	onLog = config.OnLog
}

// CloseWriteDaily closes the WriteDaily and sets its pointer to nil
// it's safe to call with nil pointer
func CloseWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	_ = (*wd).Sync()
	_ = (*wd).Close()
	*wd = nil
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	CloseWriteDaily(&log)
	CloseWriteDaily(&eventsLog)
	onLog = nil
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Print(s)
	mu.Lock()
	w, cb := log, onLog
	mu.Unlock()
	_ = w.WriteString(s)
	if cb != nil {
		cb(s)
	}
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		s := frame.File + ":" + strconv.Itoa(frame.Line)
		cs = append(cs, s)
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(1)
	Logf("%s\n%s\n", s, cs)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	rt := reflect.TypeOf(v)
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// MarshalEvent formats an event as:
// "--- ${len} ${unix_ms} ${name}\n${toon}\n"
// vals are key/value pairs, keys must be simple types
func MarshalEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("invalid number of vals: %d. Should be multiple of 2", n)
	}
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			k := simpleTypeToStr(vals[i])
			m[k] = vals[i+1]
		}
		var err error
		d, err = toon.Marshal(m)
		if err != nil {
			return nil, err
		}
	}

	var b []byte
	b = append(b, "--- "...)
	b = strconv.AppendInt(b, int64(len(d)), 10)
	b = append(b, ' ')
	b = strconv.AppendInt(b, t.UnixMilli(), 10)
	if name != "" {
		b = append(b, ' ')
		b = append(b, name...)
	}
	b = append(b, '\n')
	if len(d) > 0 {
		b = append(b, d...)
		if d[len(d)-1] != '\n' {
			b = append(b, '\n')
		}
	}
	return b, nil
}

// Event records a named event with key/value pairs in the events log
func Event(name string, vals ...any) {
	d, err := MarshalEvent(name, time.Now().UTC(), vals...)
	if IfErrf(err, "log.Event('%s'): %s", name, err) {
		return
	}
	mu.Lock()
	w := eventsLog
	mu.Unlock()
	_ = w.Write(d)
	Verbosef("event %s", d)
}
