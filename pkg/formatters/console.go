package formatters

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wayneeseguin/logevents/pkg/types"
)

// Level colors use the 16 color ANSI palette so they follow the terminal theme.
var levelStyles = map[types.Level]lipgloss.Style{
	types.LevelTrace: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	types.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	types.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	types.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	types.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

var (
	timeStyle   = lipgloss.NewStyle().Faint(true)
	loggerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// ConsoleFormatter formats events for an interactive terminal: a short local
// time stamp, a padded and colored level, then logger and message. With
// Color unset the output is the same layout without escape sequences.
type ConsoleFormatter struct {
	Options FormatOptions
	Color   bool
}

// NewConsoleFormatter creates a console formatter that colors its output
// when w is a terminal.
func NewConsoleFormatter(w io.Writer) *ConsoleFormatter {
	opts := DefaultFormatOptions()
	opts.TimestampFormat = "15:04:05.000"
	opts.TimeZone = time.Local
	return &ConsoleFormatter{
		Options: opts,
		Color:   IsTerminal(w),
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Format formats an event for the console
func (f *ConsoleFormatter) Format(e *types.Event) ([]byte, error) {
	var result strings.Builder

	if f.Options.IncludeTime {
		result.WriteString(f.style(timeStyle, f.Options.formatTimestamp(e.Time)))
		result.WriteString(" ")
	}
	if f.Options.IncludeLevel {
		level := f.Options.formatLevel(e.Level)
		if pad := 5 - len(level); pad > 0 {
			level += strings.Repeat(" ", pad)
		}
		result.WriteString(f.style(levelStyles[e.Level], level))
		result.WriteString(" ")
	}
	if f.Options.IncludeThread && e.Thread != "" {
		result.WriteString("[")
		result.WriteString(e.Thread)
		result.WriteString("] ")
	}
	result.WriteString(f.style(loggerStyle, e.Logger))
	if e.Marker != "" {
		result.WriteString(" ")
		result.WriteString(f.style(markerStyle, "{"+e.Marker+"}"))
	}
	result.WriteString(": ")
	result.WriteString(strings.TrimSuffix(e.Message(), "\n"))
	result.WriteString("\n")

	if e.Err != nil {
		result.WriteString(f.style(errorStyle, f.Options.errorText(e.Err)))
	}
	return []byte(result.String()), nil
}

func (f *ConsoleFormatter) style(s lipgloss.Style, text string) string {
	if !f.Color || text == "" {
		return text
	}
	return s.Render(text)
}
