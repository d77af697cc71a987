package types

import (
	"fmt"
	"time"
)

// Event is a single log occurrence. An Event is created once at emission and
// never modified afterwards, so the same pointer may be held by several
// observers at the same time.
type Event struct {
	Logger   string    `json:"logger"`
	Level    Level     `json:"level"`
	Time     time.Time `json:"time"`
	Template string    `json:"template"`
	Args     []any     `json:"args,omitempty"`
	Marker   string    `json:"marker,omitempty"`
	Err      error     `json:"-"`
	Thread   string    `json:"thread,omitempty"`
	Host     string    `json:"host,omitempty"`
}

// Message renders the template with the positional arguments.
func (e *Event) Message() string {
	if len(e.Args) == 0 {
		return e.Template
	}
	return fmt.Sprintf(e.Template, e.Args...)
}

// Fingerprint returns the grouping key of the event.
func (e *Event) Fingerprint() Fingerprint {
	return Fingerprint{Logger: e.Logger, Level: e.Level, Template: e.Template}
}

// Fingerprint identifies recurring events. It uses the raw template rather
// than the rendered message so that occurrences with different arguments
// still fall into the same group.
type Fingerprint struct {
	Logger   string
	Level    Level
	Template string
}

// String returns a compact representation used in diagnostics
func (f Fingerprint) String() string {
	return f.Logger + "/" + f.Level.String() + "/" + f.Template
}

// Observer receives events. Implementations must be safe for concurrent use
// and must not block on network or disk I/O.
type Observer interface {
	LogEvent(e *Event)
}

// Flusher is implemented by observers holding pending events.
type Flusher interface {
	Flush()
}
