// Package observers provides the sinks events are dispatched to.
package observers

import (
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

type nullObserver struct{}

func (nullObserver) LogEvent(*types.Event) {}

func (nullObserver) String() string { return "Null" }

// Null discards every event.
var Null types.Observer = nullObserver{}

// IsNull reports whether o is nil or Null.
func IsNull(o types.Observer) bool {
	if o == nil {
		return true
	}
	_, ok := o.(nullObserver)
	return ok
}

// Func adapts a function to types.Observer
type Func func(e *types.Event)

// LogEvent calls f(e)
func (f Func) LogEvent(e *types.Event) { f(e) }

// Composite dispatches every event to its observers in order.
type Composite struct {
	observers []types.Observer
}

// Combine returns an observer dispatching to every given observer in order.
// Nested composites are flattened and nil or Null observers dropped; when a
// single observer remains it is returned as is, and Null when none does.
func Combine(observers ...types.Observer) types.Observer {
	var flat []types.Observer
	for _, o := range observers {
		switch v := o.(type) {
		case *Composite:
			flat = append(flat, v.observers...)
		default:
			if !IsNull(o) {
				flat = append(flat, o)
			}
		}
	}
	switch len(flat) {
	case 0:
		return Null
	case 1:
		return flat[0]
	}
	return &Composite{observers: flat}
}

// LogEvent implements types.Observer
func (c *Composite) LogEvent(e *types.Event) {
	for _, o := range c.observers {
		o.LogEvent(e)
	}
}

// Each calls fn for every observer in dispatch order
func (c *Composite) Each(fn func(types.Observer)) {
	for _, o := range c.observers {
		fn(o)
	}
}

// Observers returns the observers in dispatch order.
func (c *Composite) Observers() []types.Observer {
	return append([]types.Observer(nil), c.observers...)
}

// Flush flushes every member implementing types.Flusher
func (c *Composite) Flush() {
	for _, o := range c.observers {
		if f, ok := o.(types.Flusher); ok {
			f.Flush()
		}
	}
}

// LevelFilter forwards events at or above Threshold to Next.
type LevelFilter struct {
	Threshold types.Level
	Next      types.Observer
}

// NewLevelFilter wraps next so that it only sees events at or above threshold.
func NewLevelFilter(threshold types.Level, next types.Observer) *LevelFilter {
	return &LevelFilter{Threshold: threshold, Next: next}
}

// LogEvent implements types.Observer
func (f *LevelFilter) LogEvent(e *types.Event) {
	if e.Level.AtLeast(f.Threshold) {
		f.Next.LogEvent(e)
	}
}

// Flush flushes Next when it holds pending events
func (f *LevelFilter) Flush() {
	if fl, ok := f.Next.(types.Flusher); ok {
		fl.Flush()
	}
}

// Close closes Next when it is closable
func (f *LevelFilter) Close() error {
	if c, ok := f.Next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func statusOrDefault(s *status.Status) *status.Status {
	if s == nil {
		return status.Default()
	}
	return s
}
