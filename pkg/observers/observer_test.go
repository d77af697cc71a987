package observers

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/logevents/pkg/formatters"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

type recorder struct {
	mu     sync.Mutex
	name   string
	events []*types.Event
	log    *[]string
}

func (r *recorder) LogEvent(e *types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
}

func (r *recorder) received() []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*types.Event(nil), r.events...)
}

type flushRecorder struct {
	recorder
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestCombine(t *testing.T) {
	a, b, c := &recorder{}, &recorder{}, &recorder{}

	assert.Equal(t, Null, Combine())
	assert.Equal(t, Null, Combine(nil, Null))
	assert.Same(t, a, Combine(Null, a, nil))

	combined := Combine(a, b)
	require.IsType(t, &Composite{}, combined)
	assert.Equal(t, []types.Observer{a, b}, combined.(*Composite).Observers())

	nested := Combine(combined, Null, c)
	assert.Equal(t, []types.Observer{a, b, c}, nested.(*Composite).Observers(),
		"nested composites are flattened in order")
}

func TestCompositeDispatchOrder(t *testing.T) {
	var order []string
	first := &recorder{name: "first", log: &order}
	second := &recorder{name: "second", log: &order}
	third := &recorder{name: "third", log: &order}

	o := Combine(Combine(first, second), third)
	e := &types.Event{Logger: "a", Level: types.LevelInfo, Template: "x"}
	o.LogEvent(e)
	o.LogEvent(e)

	assert.Equal(t, []string{"first", "second", "third", "first", "second", "third"}, order)
	assert.Same(t, e, first.received()[0], "observers share the same event")
	assert.Same(t, e, third.received()[0])
}

func TestCompositeFlush(t *testing.T) {
	a := &flushRecorder{}
	b := &recorder{}
	c := &flushRecorder{}

	Combine(a, b, c).(*Composite).Flush()
	assert.Equal(t, 1, a.flushes)
	assert.Equal(t, 1, c.flushes)
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null))
	assert.False(t, IsNull(&recorder{}))
	Null.LogEvent(&types.Event{})
}

func TestFunc(t *testing.T) {
	var got *types.Event
	o := Func(func(e *types.Event) { got = e })
	e := &types.Event{Template: "x"}
	o.LogEvent(e)
	assert.Same(t, e, got)
}

func TestLevelFilter(t *testing.T) {
	next := &flushRecorder{}
	f := NewLevelFilter(types.LevelWarn, next)

	for _, level := range types.Levels() {
		f.LogEvent(&types.Event{Level: level})
	}

	received := next.received()
	require.Len(t, received, 2)
	assert.Equal(t, types.LevelWarn, received[0].Level)
	assert.Equal(t, types.LevelError, received[1].Level)

	f.Flush()
	assert.Equal(t, 1, next.flushes)
	assert.NoError(t, f.Close())
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	f := formatters.NewTextFormatter()
	f.Options.IncludeTime = false
	c := NewConsole(WithWriter(&buf), WithFormatter(f))

	c.LogEvent(&types.Event{Logger: "com.example", Level: types.LevelInfo, Template: "hello %s", Args: []any{"world"}})
	c.LogEvent(&types.Event{Logger: "com.example", Level: types.LevelWarn, Template: "careful"})

	assert.Equal(t, "[INFO] com.example: hello world\n[WARN] com.example: careful\n", buf.String())
}

func TestConsoleDefaultFormatterIsPlainOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(WithWriter(&buf))

	c.LogEvent(&types.Event{Logger: "svc", Level: types.LevelError, Template: "down"})
	assert.Contains(t, buf.String(), "ERROR svc: down")
	assert.NotContains(t, buf.String(), "\x1b[")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stream closed") }

func TestConsoleWriteFailureGoesToStatus(t *testing.T) {
	st := status.New()
	st.SetOutput(io.Discard)
	c := NewConsole(WithWriter(failingWriter{}), WithConsoleStatus(st))

	require.NotPanics(t, func() {
		c.LogEvent(&types.Event{Logger: "a", Template: "x"})
	})

	events := st.Head(c, status.LevelError)
	require.Len(t, events, 1)
	assert.Equal(t, "Failed to write event", events[0].Message)
	assert.EqualError(t, events[0].Err, "stream closed")
}

func TestConsoleFormatFailureGoesToStatus(t *testing.T) {
	st := status.New()
	st.SetOutput(io.Discard)
	var buf bytes.Buffer
	c := NewConsole(
		WithWriter(&buf),
		WithConsoleStatus(st),
		WithFormatter(formatters.FormatterFunc(func(*types.Event) ([]byte, error) {
			return nil, errors.New("bad template")
		})),
	)

	c.LogEvent(&types.Event{Logger: "a", Template: "x"})
	assert.Empty(t, buf.String())
	require.NotNil(t, st.Last())
	assert.True(t, strings.HasPrefix(st.Last().String(), "LogEvent status ERROR [Console]: Failed to format event"))
}
