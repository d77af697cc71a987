package logevents

import (
	"context"
	"strings"
	"time"

	"github.com/wayneeseguin/logevents/pkg/types"
)

// Logger emits events into the hierarchy under one name. Loggers are
// cheap handles: level checks read the effective configuration the
// registry last published for the name, without locking.
type Logger struct {
	registry *Registry
	node     *node
	marker   string
	thread   string
}

// Name returns the dotted name of the logger
func (l *Logger) Name() string {
	return l.node.name
}

// Level returns the effective threshold
func (l *Logger) Level() types.Level {
	return l.node.eff.Load().threshold
}

// Observer returns the effective observer
func (l *Logger) Observer() types.Observer {
	return l.node.eff.Load().observer
}

// Enabled reports whether an event at level would be dispatched.
func (l *Logger) Enabled(level types.Level) bool {
	return level.AtLeast(l.Level())
}

// WithMarker returns a logger tagging its events with marker.
func (l *Logger) WithMarker(marker string) *Logger {
	derived := *l
	derived.marker = marker
	return &derived
}

// WithContext returns a logger tagging its events with the thread id
// stored in ctx by WithThread.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	derived := *l
	derived.thread = ThreadFromContext(ctx)
	return &derived
}

// Trace logs at TRACE
func (l *Logger) Trace(template string, args ...any) { l.Log(types.LevelTrace, template, args...) }

// Debug logs at DEBUG
func (l *Logger) Debug(template string, args ...any) { l.Log(types.LevelDebug, template, args...) }

// Info logs at INFO
func (l *Logger) Info(template string, args ...any) { l.Log(types.LevelInfo, template, args...) }

// Warn logs at WARN
func (l *Logger) Warn(template string, args ...any) { l.Log(types.LevelWarn, template, args...) }

// Error logs at ERROR
func (l *Logger) Error(template string, args ...any) { l.Log(types.LevelError, template, args...) }

// Log emits an event at level. The template uses fmt verbs. A trailing
// error argument that no verb consumes becomes the event's error.
func (l *Logger) Log(level types.Level, template string, args ...any) {
	eff := l.node.eff.Load()
	if !level.AtLeast(eff.threshold) {
		return
	}

	var err error
	if n := len(args); n > 0 {
		if last, ok := args[n-1].(error); ok {
			err = last
			if countVerbs(template) < n {
				args = args[:n-1]
			}
		}
	}

	e := &types.Event{
		Logger:   l.node.name,
		Level:    level,
		Time:     time.Now(),
		Template: template,
		Args:     args,
		Marker:   l.marker,
		Err:      err,
		Thread:   l.thread,
		Host:     l.registry.host,
	}
	l.registry.dispatch(eff.observer, e)
}

// countVerbs counts the fmt verbs in a template, ignoring "%%".
func countVerbs(template string) int {
	n := 0
	for i := strings.IndexByte(template, '%'); i >= 0 && i < len(template)-1; {
		if template[i+1] == '%' {
			i += 2
		} else {
			n++
			i++
		}
		next := strings.IndexByte(template[i:], '%')
		if next < 0 {
			break
		}
		i += next
	}
	return n
}

type threadKey struct{}

// WithThread returns a context carrying a thread or request id for the
// events of loggers derived with WithContext.
func WithThread(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, threadKey{}, id)
}

// ThreadFromContext returns the id stored by WithThread, or "".
func ThreadFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(threadKey{}).(string)
	return id
}
