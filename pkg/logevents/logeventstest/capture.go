// Package logeventstest captures the events of part of the logger tree
// during a test and asserts on them.
//
//	func TestService(t *testing.T) {
//		events := logeventstest.Capture(t, nil, "com.example", types.LevelDebug)
//		service.Run()
//		events.AssertSingleMessage("Hello world", types.LevelDebug)
//	}
package logeventstest

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wayneeseguin/logevents/pkg/logevents"
	"github.com/wayneeseguin/logevents/pkg/observers"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// DefaultCapacity is the number of events kept per level
const DefaultCapacity = 1000

// Events holds what a capture has seen
type Events struct {
	t      testing.TB
	buffer *observers.Buffer
}

// Capture routes the events of logger prefix and its children at level and
// above to an in-memory buffer instead of the configured observers. The
// previous configuration of prefix is restored when the test finishes. A
// nil registry captures from logevents.Default().
func Capture(t testing.TB, reg *logevents.Registry, prefix string, level types.Level) *Events {
	t.Helper()
	if reg == nil {
		reg = logevents.Default()
	}
	buf, err := observers.NewBuffer(DefaultCapacity)
	if err != nil {
		t.Fatalf("create capture buffer: %v", err)
	}

	previous := reg.LoggerConfig(prefix)
	reg.SetLoggerConfig(logevents.LoggerConfig{
		Name:     prefix,
		Level:    &level,
		Observer: buf,
		Inherit:  false,
	})
	t.Cleanup(func() { reg.SetLoggerConfig(previous) })

	return &Events{t: t, buffer: buf}
}

// All returns every captured event in time order
func (e *Events) All() []*types.Event {
	var all []*types.Event
	for _, level := range types.Levels() {
		all = append(all, e.buffer.Snapshot(level)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })
	return all
}

// Messages returns the formatted message of every captured event
func (e *Events) Messages() []string {
	var out []string
	for _, event := range e.All() {
		out = append(out, event.Message())
	}
	return out
}

// AssertSingleMessage fails unless exactly one event was captured and it
// has the given message and level.
func (e *Events) AssertSingleMessage(message string, level types.Level) bool {
	e.t.Helper()
	all := e.All()
	if !assert.Len(e.t, all, 1, "expected a single captured event, got %v", e.Messages()) {
		return false
	}
	return assert.Equal(e.t, message, all[0].Message()) &&
		assert.Equal(e.t, level, all[0].Level)
}

// AssertContainsMessage fails unless an event with the given message and
// level was captured.
func (e *Events) AssertContainsMessage(message string, level types.Level) bool {
	e.t.Helper()
	for _, event := range e.All() {
		if event.Level == level && event.Message() == message {
			return true
		}
	}
	return assert.Fail(e.t, "message not captured",
		"no %s event %q among:\n%s", level, message, strings.Join(e.Messages(), "\n"))
}

// AssertDoesNotContainMessage fails if an event with the given message was
// captured at any level.
func (e *Events) AssertDoesNotContainMessage(message string) bool {
	e.t.Helper()
	return assert.NotContains(e.t, e.Messages(), message)
}

// AssertNoMessages fails if anything was captured
func (e *Events) AssertNoMessages() bool {
	e.t.Helper()
	return assert.Empty(e.t, e.Messages())
}
