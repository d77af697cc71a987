package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/logevents/internal/metrics"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// recordingScheduler records every Schedule call and never fires by itself.
type recordingScheduler struct {
	mu        sync.Mutex
	action    func()
	schedules []time.Duration
}

func (s *recordingScheduler) SetAction(action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.action = action
}

func (s *recordingScheduler) Schedule(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, delay)
}

func (s *recordingScheduler) calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.schedules...)
}

func (s *recordingScheduler) fire() {
	s.mu.Lock()
	action := s.action
	s.mu.Unlock()
	action()
}

// recordingProcessor keeps every batch it receives.
type recordingProcessor struct {
	mu      sync.Mutex
	batches []*Batch
	err     error
	panics  bool
}

func (p *recordingProcessor) ProcessBatch(_ context.Context, b *Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, b)
	if p.panics {
		panic("formatter exploded")
	}
	return p.err
}

func (p *recordingProcessor) received() []*Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Batch(nil), p.batches...)
}

func newTestThrottler(opts ...ThrottlerOption) (*Throttler, *recordingScheduler, *recordingProcessor) {
	scheduler := &recordingScheduler{}
	processor := &recordingProcessor{}
	st := status.New()
	st.SetOutput(nil)
	opts = append([]ThrottlerOption{WithStatus(st)}, opts...)
	throttler := NewThrottler(scheduler, processor, opts...).
		SetThrottle(time.Minute, 5*time.Minute)
	return throttler, scheduler, processor
}

func testEvent() *types.Event {
	return &types.Event{Logger: "org.logevents.Test", Level: types.LevelWarn, Template: "Test", Time: time.Now()}
}

func TestThrottlerSetsSchedulerAction(t *testing.T) {
	_, scheduler, _ := newTestThrottler()
	assert.NotNil(t, scheduler.action)
}

func TestSetThrottleStartsWithZero(t *testing.T) {
	throttler, _, _ := newTestThrottler()
	assert.Equal(t, []time.Duration{0, time.Minute, 5 * time.Minute}, throttler.Delays())

	throttler.SetThrottle(0, time.Second)
	assert.Equal(t, []time.Duration{0, time.Second}, throttler.Delays())

	throttler.SetThrottle()
	assert.Equal(t, []time.Duration{0}, throttler.Delays())
}

func TestShouldScheduleFirstEventForImmediateExecution(t *testing.T) {
	throttler, scheduler, _ := newTestThrottler()

	throttler.LogEvent(testEvent())

	assert.Equal(t, []time.Duration{0}, scheduler.calls())
	assert.True(t, throttler.Scheduled())
}

func TestShouldSendOnFlush(t *testing.T) {
	throttler, _, processor := newTestThrottler()
	e := testEvent()

	throttler.LogEvent(e)
	throttler.Flush()

	batches := processor.received()
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Groups(), 1)
	assert.Same(t, e, batches[0].Groups()[0].Head())
	assert.Equal(t, 0, throttler.Pending())
	assert.False(t, throttler.Scheduled())
}

func TestShouldDelaySubsequentEvents(t *testing.T) {
	throttler, scheduler, _ := newTestThrottler()

	throttler.LogEvent(testEvent())
	throttler.Flush()

	throttler.LogEvent(testEvent())
	throttler.LogEvent(testEvent())

	// The second event shares the pending flush instead of re-arming
	assert.Equal(t, []time.Duration{0, time.Minute}, scheduler.calls())
	assert.Equal(t, 2, throttler.Pending())
}

func TestShouldIncreaseDelay(t *testing.T) {
	throttler, scheduler, processor := newTestThrottler()

	throttler.LogEvent(testEvent())
	throttler.Flush()
	throttler.LogEvent(testEvent())
	throttler.Flush()
	throttler.LogEvent(testEvent())
	throttler.Flush()

	assert.Equal(t, []time.Duration{0, time.Minute, 5 * time.Minute}, scheduler.calls())
	assert.Len(t, processor.received(), 3)

	// Clamped at the last delay
	assert.Equal(t, 2, throttler.Index())
	throttler.LogEvent(testEvent())
	assert.Equal(t, 5*time.Minute, scheduler.calls()[3])
}

func TestEmptyFlushResetsDelay(t *testing.T) {
	throttler, scheduler, processor := newTestThrottler()

	throttler.LogEvent(testEvent())
	scheduler.fire()
	throttler.LogEvent(testEvent())
	scheduler.fire()
	require.Equal(t, 2, throttler.Index())

	// A timer firing with nothing collected since the last flush
	scheduler.fire()
	assert.Equal(t, 0, throttler.Index())
	assert.Len(t, processor.received(), 2, "empty batches are never processed")

	throttler.LogEvent(testEvent())
	calls := scheduler.calls()
	assert.Equal(t, time.Duration(0), calls[len(calls)-1])
}

func TestProcessorFailureIsReportedAndDropped(t *testing.T) {
	collector := metrics.NewCollector()
	throttler, _, processor := newTestThrottler(WithMetrics(collector), WithName("slack"))
	processor.err = errors.New("Failed to POST")

	throttler.LogEvent(testEvent())
	require.NotPanics(t, throttler.Flush)

	assert.Equal(t, 0, throttler.Pending(), "failed batches are not re-queued")
	assert.Equal(t, 1, throttler.Index(), "a failed batch still counts as flushed")
	assert.Equal(t, uint64(1), collector.GetErrorCountBySource("slack"))

	events := throttler.status.Head(processor, status.LevelError)
	require.Len(t, events, 1)
	assert.Equal(t, "Failed to process batch", events[0].Message)
	assert.EqualError(t, events[0].Err, "Failed to POST")
}

func TestClosedThrottlerDropsEvents(t *testing.T) {
	throttler, scheduler, processor := newTestThrottler()
	throttler.LogEvent(testEvent())
	throttler.Close()
	require.Len(t, processor.received(), 1, "close sends what is pending")

	for i := 0; i < 10000; i++ {
		throttler.LogEvent(testEvent())
	}

	assert.Equal(t, 0, throttler.Pending())
	assert.False(t, throttler.Scheduled())
	assert.Equal(t, 10000, throttler.Dropped())
	assert.Len(t, scheduler.calls(), 1)
	assert.Len(t, processor.received(), 1)

	events := throttler.status.Head(processor, status.LevelError)
	require.Len(t, events, 1, "dropping is reported once")
	assert.ErrorIs(t, events[0].Err, ErrClosed)
}

func TestProcessorPanicIsRecovered(t *testing.T) {
	throttler, _, processor := newTestThrottler()
	processor.panics = true

	throttler.LogEvent(testEvent())
	require.NotPanics(t, throttler.Flush)

	events := throttler.status.Head(processor, status.LevelError)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Err.Error(), "formatter exploded")
}

func TestFlushDoesNotHoldLockDuringProcessing(t *testing.T) {
	scheduler := &recordingScheduler{}
	release := make(chan struct{})
	entered := make(chan struct{})
	processor := ProcessorFunc(func(ctx context.Context, b *Batch) error {
		close(entered)
		<-release
		return nil
	})
	throttler := NewThrottler(scheduler, processor)

	throttler.LogEvent(testEvent())
	done := make(chan struct{})
	go func() {
		throttler.Flush()
		close(done)
	}()
	<-entered

	// Producers are not blocked by the slow processor
	logged := make(chan struct{})
	go func() {
		throttler.LogEvent(testEvent())
		close(logged)
	}()
	select {
	case <-logged:
	case <-time.After(2 * time.Second):
		t.Fatal("LogEvent blocked while the processor was running")
	}

	close(release)
	<-done
	assert.Equal(t, 1, throttler.Pending())
}

func TestThrottlerWithTimerScheduler(t *testing.T) {
	scheduler := NewTimerScheduler()
	defer scheduler.Stop()

	received := make(chan *Batch, 4)
	processor := ProcessorFunc(func(ctx context.Context, b *Batch) error {
		received <- b
		return nil
	})
	throttler := NewThrottler(scheduler, processor, WithThrottle(0, 50*time.Millisecond))

	throttler.LogEvent(testEvent())
	select {
	case b := <-received:
		assert.Equal(t, 1, b.Len())
	case <-time.After(2 * time.Second):
		t.Fatal("first event was not flushed immediately")
	}

	start := time.Now()
	throttler.LogEvent(testEvent())
	throttler.LogEvent(testEvent())
	select {
	case b := <-received:
		assert.Equal(t, 2, b.Len())
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("second batch was never flushed")
	}
}

func TestTimerSchedulerReplacesPendingTimer(t *testing.T) {
	scheduler := NewTimerScheduler()
	defer scheduler.Stop()

	var mu sync.Mutex
	runs := 0
	scheduler.SetAction(func() {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	scheduler.Schedule(time.Hour)
	scheduler.Schedule(10 * time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, runs)
	mu.Unlock()

	scheduler.Stop()
	scheduler.Schedule(0)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, runs, "a stopped scheduler never runs the action")
	mu.Unlock()
}

func TestConcurrentLogEvent(t *testing.T) {
	throttler, scheduler, processor := newTestThrottler()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				throttler.LogEvent(testEvent())
			}
		}()
	}
	wg.Wait()
	throttler.Flush()

	assert.Len(t, scheduler.calls(), 1)
	batches := processor.received()
	require.Len(t, batches, 1)
	assert.Equal(t, 800, batches[0].Len())
	assert.Len(t, batches[0].Groups(), 1)
}

func TestProcessErrorChoosesStatusMessage(t *testing.T) {
	throttler, _, processor := newTestThrottler()
	processor.err = &ProcessError{Message: "Runtime error generating slack message", Fatal: true, Err: errors.New("bad template")}

	throttler.LogEvent(testEvent())
	throttler.Flush()

	events := throttler.status.Head(processor, status.LevelFatal)
	require.Len(t, events, 1)
	assert.Equal(t, "Runtime error generating slack message", events[0].Message)
	assert.EqualError(t, events[0].Err, "bad template")
}
