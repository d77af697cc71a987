package formatters

import (
	"strings"
	"time"

	"github.com/wayneeseguin/logevents/pkg/types"
)

// Formatter renders one event as a single output record, normally one line
// terminated by a newline.
type Formatter interface {
	Format(e *types.Event) ([]byte, error)
}

// FormatterFunc adapts a function to Formatter
type FormatterFunc func(e *types.Event) ([]byte, error)

// Format calls f(e)
func (f FormatterFunc) Format(e *types.Event) ([]byte, error) {
	return f(e)
}

// FormatOptions controls the output format
type FormatOptions struct {
	TimestampFormat string
	IncludeLevel    bool
	IncludeTime     bool
	LevelFormat     LevelFormat
	TimeZone        *time.Location
	IncludeHost     bool // Whether to include the host name
	IncludeThread   bool // Whether to include the thread/context id
	IncludeStack    bool // Whether to render stack traces recorded by github.com/pkg/errors
	Stack           StackOptions
}

// errorText renders err with its stack when IncludeStack is set
func (o FormatOptions) errorText(err error) string {
	if !o.IncludeStack {
		return FormatError(err, false)
	}
	return o.Stack.FormatError(err)
}

// LevelFormat defines level format options
type LevelFormat int

const (
	// LevelFormatName formats levels as their names (DEBUG, INFO, etc)
	LevelFormatName LevelFormat = iota
	// LevelFormatNameUpper formats levels as uppercase names
	LevelFormatNameUpper
	// LevelFormatNameLower formats levels as lowercase names
	LevelFormatNameLower
	// LevelFormatSymbol formats levels as single-character symbols
	LevelFormatSymbol
)

// DefaultFormatOptions returns default formatting options
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		TimestampFormat: time.RFC3339,
		IncludeLevel:    true,
		IncludeTime:     true,
		LevelFormat:     LevelFormatName,
		TimeZone:        time.UTC,
		IncludeThread:   true,
	}
}

func (o FormatOptions) formatTimestamp(t time.Time) string {
	loc := o.TimeZone
	if loc == nil {
		loc = time.UTC
	}
	layout := o.TimestampFormat
	if layout == "" || layout == "RFC3339" {
		layout = time.RFC3339
	}
	return t.In(loc).Format(layout)
}

func (o FormatOptions) formatLevel(level types.Level) string {
	name := level.String()
	switch o.LevelFormat {
	case LevelFormatNameLower:
		return strings.ToLower(name)
	case LevelFormatSymbol:
		return name[:1]
	}
	return name
}
