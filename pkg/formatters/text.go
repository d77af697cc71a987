package formatters

import (
	"strings"

	"github.com/wayneeseguin/logevents/pkg/types"
)

// TextFormatter formats events as human-readable lines:
//
//	[2024-01-01T12:00:00Z] [WARN] [worker-1] com.example.db {AUDIT}: slow query
//
// An attached error follows on the next lines with its cause chain.
type TextFormatter struct {
	Options FormatOptions
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		Options: DefaultFormatOptions(),
	}
}

// Format formats an event as text
func (f *TextFormatter) Format(e *types.Event) ([]byte, error) {
	var result strings.Builder

	if f.Options.IncludeTime {
		result.WriteString("[")
		result.WriteString(f.Options.formatTimestamp(e.Time))
		result.WriteString("] ")
	}

	if f.Options.IncludeLevel {
		result.WriteString("[")
		result.WriteString(f.Options.formatLevel(e.Level))
		result.WriteString("] ")
	}

	if f.Options.IncludeThread && e.Thread != "" {
		result.WriteString("[")
		result.WriteString(e.Thread)
		result.WriteString("] ")
	}

	if f.Options.IncludeHost && e.Host != "" {
		result.WriteString(e.Host)
		result.WriteString(" ")
	}

	result.WriteString(e.Logger)
	if e.Marker != "" {
		result.WriteString(" {")
		result.WriteString(e.Marker)
		result.WriteString("}")
	}
	result.WriteString(": ")

	message := e.Message()
	result.WriteString(message)
	if !strings.HasSuffix(message, "\n") {
		result.WriteString("\n")
	}

	if e.Err != nil {
		result.WriteString(f.Options.errorText(e.Err))
	}

	return []byte(result.String()), nil
}
