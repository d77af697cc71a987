// Package status keeps a feed of diagnostic messages about the logging
// system itself: configuration problems, failing downstream sinks and the
// like. The runtime never reports on itself through its own loggers, since a
// broken observer would then hide its own failure.
package status

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/wayneeseguin/logevents/internal/buffer"
)

// Level is the severity of a status message
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelError
	LevelFatal
)

// DefaultTailSize is the number of status messages retained
const DefaultTailSize = 1000

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	}
	return fmt.Sprintf("STATUS(%d)", int(l))
}

// ParseLevel converts a status level name
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("invalid status level %q", name)
}

// Event is one status message.
type Event struct {
	Source  any
	Level   Level
	Message string
	Err     error
	Time    time.Time
}

// SourceName returns the short type name of the reporting component.
func (e Event) SourceName() string {
	return SourceName(e.Source)
}

func (e Event) String() string {
	s := fmt.Sprintf("LogEvent status %s [%s]: %s", e.Level, e.SourceName(), e.Message)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Status is an append-only feed with a bounded tail. Messages at or above
// the threshold of their source are also echoed to the output writer.
type Status struct {
	mu         sync.Mutex
	tail       *buffer.Ring[Event]
	out        io.Writer
	thresholds map[string]Level // keyed by source name, "" is the default
}

// New creates an empty feed echoing to stderr.
func New() *Status {
	return &Status{
		tail: buffer.MustRing[Event](DefaultTailSize),
		out:  os.Stderr,
	}
}

// SetOutput changes where echoed messages are written.
func (s *Status) SetOutput(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
}

// Configure replaces the thresholds. The key "" sets the default threshold
// and any other key is the source type name it applies to, compared without
// regard to case.
func (s *Status) Configure(thresholds map[string]Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = make(map[string]Level, len(thresholds))
	for k, v := range thresholds {
		s.thresholds[strings.ToLower(k)] = v
	}
}

// SetThreshold sets the default threshold for every source.
func (s *Status) SetThreshold(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.thresholds[""] = level
}

// Threshold returns the threshold that applies to source. When nothing has
// been configured the thresholds are read once from the environment
// (LOGEVENTS_STATUS and LOGEVENTS_STATUS_<NAME>) and cached.
func (s *Status) Threshold(source any) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thresholdLocked(SourceName(source))
}

func (s *Status) thresholdLocked(name string) Level {
	s.loadLocked()
	if l, ok := s.thresholds[strings.ToLower(name)]; ok {
		return l
	}
	if l, ok := s.thresholds[""]; ok {
		return l
	}
	return LevelError
}

func (s *Status) loadLocked() {
	if s.thresholds != nil {
		return
	}
	s.thresholds = make(map[string]Level)
	if v, ok := os.LookupEnv("LOGEVENTS_STATUS"); ok {
		if l, err := ParseLevel(v); err == nil {
			s.thresholds[""] = l
		}
	}
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		name, ok := strings.CutPrefix(key, "LOGEVENTS_STATUS_")
		if !ok || name == "" {
			continue
		}
		if l, err := ParseLevel(value); err == nil {
			s.thresholds[strings.ToLower(name)] = l
		}
	}
}

// Add records a status message.
func (s *Status) Add(source any, level Level, message string, err error) {
	e := Event{Source: source, Level: level, Message: message, Err: err, Time: time.Now()}
	s.tail.Add(e)

	s.mu.Lock()
	defer s.mu.Unlock()
	if level >= s.thresholdLocked(e.SourceName()) && s.out != nil {
		fmt.Fprintln(s.out, e.String())
	}
}

// AddTrace records a TRACE message
func (s *Status) AddTrace(source any, message string) { s.Add(source, LevelTrace, message, nil) }

// AddDebug records a DEBUG message
func (s *Status) AddDebug(source any, message string) { s.Add(source, LevelDebug, message, nil) }

// AddInfo records an INFO message
func (s *Status) AddInfo(source any, message string) { s.Add(source, LevelInfo, message, nil) }

// AddError records an ERROR message
func (s *Status) AddError(source any, message string, err error) {
	s.Add(source, LevelError, message, err)
}

// AddFatal records a FATAL message
func (s *Status) AddFatal(source any, message string, err error) {
	s.Add(source, LevelFatal, message, err)
}

// Last returns the most recent message, or nil if there is none.
func (s *Status) Last() *Event {
	e, ok := s.tail.Last()
	if !ok {
		return nil
	}
	return &e
}

// All returns every retained message, oldest first.
func (s *Status) All() []Event {
	return s.tail.Snapshot()
}

// Head returns the retained messages reported by source at or above
// threshold, oldest first.
func (s *Status) Head(source any, threshold Level) []Event {
	var out []Event
	for _, e := range s.tail.Snapshot() {
		if e.Level >= threshold && sameSource(e.Source, source) {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops every retained message.
func (s *Status) Clear() {
	s.tail.Clear()
}

func sameSource(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// SourceName returns the name used to look up the threshold of a source:
// strings are used as is, anything else by its type name without package
// or pointer.
func SourceName(source any) string {
	switch s := source.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	t := reflect.TypeOf(source)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

var (
	defaultMu     sync.Mutex
	defaultStatus *Status
)

// Default returns the process-wide status feed, creating it on first use.
func Default() *Status {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultStatus == nil {
		defaultStatus = New()
	}
	return defaultStatus
}

// Reset discards the process-wide status feed, including its thresholds.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultStatus = nil
}
