package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wayneeseguin/logevents/internal/metrics"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// DefaultProcessTimeout bounds a single call to the downstream processor
const DefaultProcessTimeout = 30 * time.Second

// ErrClosed is reported when events reach a closed throttler
var ErrClosed = errors.New("throttler is closed")

// Throttler accumulates events into a Batch and flushes it to a Processor.
// The first event after an idle period is scheduled with delays[index]; every
// flush of a non-empty batch advances index (clamped to the last delay) and
// every flush of an empty batch resets it to zero, so repeated bursts are
// sent less and less often while quiet periods restore immediate delivery.
type Throttler struct {
	mu        sync.Mutex
	batch     *Batch
	delays    []time.Duration
	index     int
	scheduled bool
	closed    bool
	dropped   int

	scheduler Scheduler
	processor Processor
	timeout   time.Duration
	status    *status.Status
	metrics   *metrics.Collector
	name      string
}

// ThrottlerOption configures a Throttler
type ThrottlerOption func(*Throttler)

// WithStatus sets the status feed used to report processor failures.
func WithStatus(s *status.Status) ThrottlerOption {
	return func(t *Throttler) { t.status = s }
}

// WithMetrics sets the collector receiving flush and error counts.
func WithMetrics(c *metrics.Collector) ThrottlerOption {
	return func(t *Throttler) { t.metrics = c }
}

// WithThrottle sets the delay sequence, see SetThrottle.
func WithThrottle(delays ...time.Duration) ThrottlerOption {
	return func(t *Throttler) { t.delays = normalizeDelays(delays) }
}

// WithTimeout bounds each call to the processor.
func WithTimeout(d time.Duration) ThrottlerOption {
	return func(t *Throttler) { t.timeout = d }
}

// WithName sets the name used for metrics and diagnostics.
func WithName(name string) ThrottlerOption {
	return func(t *Throttler) { t.name = name }
}

// NewThrottler creates a throttler and registers its Flush method as the
// scheduler action.
func NewThrottler(scheduler Scheduler, processor Processor, opts ...ThrottlerOption) *Throttler {
	t := &Throttler{
		batch:     New(),
		delays:    []time.Duration{0},
		scheduler: scheduler,
		processor: processor,
		timeout:   DefaultProcessTimeout,
		name:      fmt.Sprintf("%T", processor),
	}
	for _, opt := range opts {
		opt(t)
	}
	scheduler.SetAction(t.Flush)
	return t
}

// SetThrottle replaces the delay sequence. A zero delay is prepended when
// the sequence does not start with one, so the first event after a quiet
// period is always delivered at once.
func (t *Throttler) SetThrottle(delays ...time.Duration) *Throttler {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delays = normalizeDelays(delays)
	if t.index >= len(t.delays) {
		t.index = len(t.delays) - 1
	}
	return t
}

// Delays returns a copy of the delay sequence.
func (t *Throttler) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

func normalizeDelays(delays []time.Duration) []time.Duration {
	if len(delays) == 0 || delays[0] != 0 {
		return append([]time.Duration{0}, delays...)
	}
	return append([]time.Duration(nil), delays...)
}

// LogEvent adds e to the current batch and schedules a flush unless one is
// already pending. After Close events are dropped; the first one dropped is
// reported to status.
func (t *Throttler) LogEvent(e *types.Event) {
	t.mu.Lock()
	if t.closed {
		t.dropped++
		first := t.dropped == 1
		t.mu.Unlock()
		if first {
			t.reportFailure(fmt.Errorf("%w: dropped event from %s", ErrClosed, e.Logger))
		}
		return
	}
	defer t.mu.Unlock()

	t.batch.Add(e)
	if !t.scheduled {
		t.scheduled = true
		t.scheduler.Schedule(t.delays[t.index])
	}
}

// Flush takes the current batch and hands it to the processor. It is the
// scheduler action and also the manual and shutdown path.
func (t *Throttler) Flush() {
	t.mu.Lock()
	current := t.batch
	t.batch = New()
	t.scheduled = false
	if current.IsEmpty() {
		t.index = 0
		t.mu.Unlock()
		return
	}
	if t.index < len(t.delays)-1 {
		t.index++
	}
	t.mu.Unlock()

	t.process(current)
}

// Close sends what is pending and stops accepting events.
func (t *Throttler) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.Flush()
}

// Dropped returns the number of events discarded after Close.
func (t *Throttler) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

func (t *Throttler) process(b *Batch) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.reportFailure(fmt.Errorf("processor panic: %v", r))
		}
		if t.metrics != nil {
			t.metrics.TrackFlush(b.Len(), time.Since(start))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if err := t.processor.ProcessBatch(ctx, b); err != nil {
		t.reportFailure(err)
	}
}

func (t *Throttler) reportFailure(err error) {
	if t.metrics != nil {
		t.metrics.TrackError(t.name)
	}
	st := t.status
	if st == nil {
		st = status.Default()
	}

	var pe *ProcessError
	if errors.As(err, &pe) {
		level := status.LevelError
		if pe.Fatal {
			level = status.LevelFatal
		}
		st.Add(t.processor, level, pe.Message, pe.Err)
		return
	}
	st.AddError(t.processor, "Failed to process batch", err)
}

// Index returns the current position in the delay sequence.
func (t *Throttler) Index() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index
}

// Pending returns the number of events waiting for the next flush.
func (t *Throttler) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.batch.Len()
}

// Scheduled reports whether a flush is currently armed.
func (t *Throttler) Scheduled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scheduled
}

// Name returns the name used for metrics and diagnostics
func (t *Throttler) Name() string {
	return t.name
}
