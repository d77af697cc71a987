package observers

import (
	"io"

	"github.com/wayneeseguin/logevents/pkg/batch"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// Throttled collects events into batches handed to a processor on an
// escalating schedule. A burst of identical errors becomes one notification.
type Throttled struct {
	throttler *batch.Throttler
	scheduler *batch.TimerScheduler
	processor batch.Processor
}

// NewThrottled creates a throttled observer running its flushes on a timer.
func NewThrottled(processor batch.Processor, opts ...batch.ThrottlerOption) *Throttled {
	scheduler := batch.NewTimerScheduler()
	return &Throttled{
		throttler: batch.NewThrottler(scheduler, processor, opts...),
		scheduler: scheduler,
		processor: processor,
	}
}

// LogEvent implements types.Observer
func (t *Throttled) LogEvent(e *types.Event) {
	t.throttler.LogEvent(e)
}

// Flush sends the pending batch now
func (t *Throttled) Flush() {
	t.throttler.Flush()
}

// Close cancels the pending timer and sends what is left, then closes the
// processor if it holds a connection. Events logged afterwards are dropped.
func (t *Throttled) Close() error {
	t.scheduler.Stop()
	t.throttler.Close()
	if c, ok := t.processor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Throttler returns the underlying throttler
func (t *Throttled) Throttler() *batch.Throttler {
	return t.throttler
}
