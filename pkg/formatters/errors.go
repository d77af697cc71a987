package formatters

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Causes returns err followed by every error in its cause chain. Both
// standard wrapping (Unwrap) and github.com/pkg/errors wrapping (Cause) are
// followed; wrappers that only add a stack are skipped.
func Causes(err error) []error {
	var chain []error
	seen := make(map[error]bool)
	for err != nil {
		if isHashable(err) {
			if seen[err] {
				break
			}
			seen[err] = true
		}
		if !isStackOnly(err) {
			chain = append(chain, err)
		}
		err = unwrap(err)
	}
	return chain
}

func unwrap(err error) error {
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}
	if c, ok := err.(interface{ Cause() error }); ok {
		return c.Cause()
	}
	return nil
}

// isStackOnly reports whether err is an errors.WithStack wrapper, which has
// the same message as its cause.
func isStackOnly(err error) bool {
	if _, ok := err.(stackTracer); !ok {
		return false
	}
	next := unwrap(err)
	return next != nil && next.Error() == err.Error()
}

func isHashable(err error) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[error]bool{err: true}
	return true
}

// StackTrace returns the innermost stack recorded by github.com/pkg/errors in
// the chain of err, or nil.
func StackTrace(err error) errors.StackTrace {
	var st errors.StackTrace
	for err != nil {
		if t, ok := err.(stackTracer); ok {
			st = t.StackTrace()
		}
		err = unwrap(err)
	}
	return st
}

// FormatError renders an error and its causes, one per line, in the
// "Caused by" style. When withStack is set the innermost recorded stack is
// appended.
func FormatError(err error, withStack bool) string {
	if !withStack {
		return formatCauses(err)
	}
	return StackOptions{}.FormatError(err)
}

func formatCauses(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	for i, cause := range Causes(err) {
		if i > 0 {
			b.WriteString("Caused by: ")
		}
		fmt.Fprintf(&b, "%T: %s\n", cause, ownMessage(cause))
	}
	return b.String()
}

// StackOptions abridges the stack rendered below an error.
type StackOptions struct {
	// MaxFrames is the number of frames shown; 0 shows every frame.
	MaxFrames int
	// PackageFilter lists function name prefixes, such as "net/http." or
	// "runtime.", whose frames are skipped.
	PackageFilter []string
}

// FormatError renders err like FormatError with its innermost stack
// abridged by o.
func (o StackOptions) FormatError(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(formatCauses(err))
	for _, line := range o.Lines(StackTrace(err)) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// Lines renders one entry per shown frame. A frame following filtered
// frames is marked "[N skipped]", filtered frames at the end become a final
// "[N skipped]" line, and frames beyond MaxFrames become "... N more".
func (o StackOptions) Lines(st errors.StackTrace) []string {
	var lines []string
	skipped := 0
	for i, fr := range st {
		if o.filtered(fr) {
			skipped++
			continue
		}
		if o.MaxFrames > 0 && len(lines) == o.MaxFrames {
			lines = append(lines, fmt.Sprintf("... %d more", len(st)-i))
			return lines
		}
		line := fmtFrame(fr)
		if skipped > 0 {
			line += fmt.Sprintf(" [%d skipped]", skipped)
			skipped = 0
		}
		lines = append(lines, line)
	}
	if skipped > 0 {
		lines = append(lines, fmt.Sprintf("[%d skipped]", skipped))
	}
	return lines
}

func (o StackOptions) filtered(fr errors.Frame) bool {
	if len(o.PackageFilter) == 0 {
		return false
	}
	name, _, _ := strings.Cut(fmt.Sprintf("%+s", fr), "\n")
	for _, prefix := range o.PackageFilter {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// WithStack turns on abridged stack rendering for the formatters of this
// package. Other formatters are returned unchanged.
func WithStack(f Formatter, o StackOptions) Formatter {
	switch v := f.(type) {
	case *TextFormatter:
		v.Options.IncludeStack, v.Options.Stack = true, o
	case *ConsoleFormatter:
		v.Options.IncludeStack, v.Options.Stack = true, o
	case *JSONFormatter:
		v.Options.IncludeStack, v.Options.Stack = true, o
	}
	return f
}

// ownMessage strips the message of the next cause from the message of err,
// so "read config: open x: no such file" renders as "read config".
func ownMessage(err error) string {
	msg := err.Error()
	next := unwrap(err)
	if next == nil {
		return msg
	}
	if own, ok := strings.CutSuffix(msg, ": "+next.Error()); ok {
		return own
	}
	return msg
}
