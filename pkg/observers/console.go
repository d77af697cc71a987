package observers

import (
	"io"
	"os"
	"sync"

	"github.com/wayneeseguin/logevents/pkg/formatters"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// Console writes formatted events to a stream, stdout by default.
type Console struct {
	mu        sync.Mutex
	out       io.Writer
	formatter formatters.Formatter
	status    *status.Status
}

// ConsoleOption configures a Console
type ConsoleOption func(*Console)

// WithWriter sets the output stream
func WithWriter(w io.Writer) ConsoleOption {
	return func(c *Console) { c.out = w }
}

// WithFormatter sets the formatter
func WithFormatter(f formatters.Formatter) ConsoleOption {
	return func(c *Console) { c.formatter = f }
}

// WithConsoleStatus sets the feed write failures are reported to
func WithConsoleStatus(s *status.Status) ConsoleOption {
	return func(c *Console) { c.status = s }
}

// NewConsole creates a console observer. Without a formatter the output is
// colored when the stream is a terminal.
func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{out: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	if c.formatter == nil {
		c.formatter = formatters.NewConsoleFormatter(c.out)
	}
	return c
}

// LogEvent implements types.Observer
func (c *Console) LogEvent(e *types.Event) {
	data, err := c.formatter.Format(e)
	if err != nil {
		statusOrDefault(c.status).AddError(c, "Failed to format event", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.out.Write(data); err != nil {
		statusOrDefault(c.status).AddError(c, "Failed to write event", err)
	}
}
