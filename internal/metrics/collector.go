package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wayneeseguin/logevents/pkg/types"
)

// Collector counts what happens to events on their way through the logger
// hierarchy, the retention buffers and the batch throttlers. All methods are
// safe for concurrent use and never block.
type Collector struct {
	// Event counts by level
	eventsByLevel   [types.NumLevels]atomic.Uint64
	eventsRecovered atomic.Uint64 // dispatches that panicked inside an observer

	// Retention
	evictions atomic.Uint64

	// Batching
	batchesFlushed atomic.Uint64
	eventsFlushed  atomic.Uint64
	totalFlushTime atomic.Int64 // nanoseconds
	maxFlushTime   atomic.Int64 // nanoseconds

	// Error metrics
	errorCount     atomic.Uint64
	errorsBySource sync.Map // map[string]*atomic.Uint64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Metrics is a point in time copy of the collector counters.
type Metrics struct {
	EventsLogged    map[string]uint64 `json:"events_logged"`
	EventsRecovered uint64            `json:"events_recovered"`
	Evictions       uint64            `json:"evictions"`

	BatchesFlushed   uint64        `json:"batches_flushed"`
	EventsFlushed    uint64        `json:"events_flushed"`
	AverageFlushTime time.Duration `json:"average_flush_time"`
	MaxFlushTime     time.Duration `json:"max_flush_time"`

	ErrorCount     uint64            `json:"error_count"`
	ErrorsBySource map[string]uint64 `json:"errors_by_source"`
}

// GetMetrics returns a snapshot of the current counters.
func (c *Collector) GetMetrics() Metrics {
	m := Metrics{
		EventsLogged:    make(map[string]uint64),
		EventsRecovered: c.eventsRecovered.Load(),
		Evictions:       c.evictions.Load(),
		BatchesFlushed:  c.batchesFlushed.Load(),
		EventsFlushed:   c.eventsFlushed.Load(),
		MaxFlushTime:    time.Duration(c.maxFlushTime.Load()),
		ErrorCount:      c.errorCount.Load(),
		ErrorsBySource:  make(map[string]uint64),
	}

	for _, level := range types.Levels() {
		if count := c.eventsByLevel[level].Load(); count > 0 {
			m.EventsLogged[level.String()] = count
		}
	}

	if m.BatchesFlushed > 0 {
		m.AverageFlushTime = time.Duration(c.totalFlushTime.Load()) / time.Duration(m.BatchesFlushed)
	}

	c.errorsBySource.Range(func(key, value interface{}) bool {
		if count := value.(*atomic.Uint64).Load(); count > 0 {
			m.ErrorsBySource[key.(string)] = count
		}
		return true
	})

	return m
}

// ResetMetrics resets all counters to zero.
func (c *Collector) ResetMetrics() {
	for i := range c.eventsByLevel {
		c.eventsByLevel[i].Store(0)
	}
	c.eventsRecovered.Store(0)
	c.evictions.Store(0)
	c.batchesFlushed.Store(0)
	c.eventsFlushed.Store(0)
	c.totalFlushTime.Store(0)
	c.maxFlushTime.Store(0)
	c.errorCount.Store(0)

	c.errorsBySource.Range(func(key, value interface{}) bool {
		value.(*atomic.Uint64).Store(0)
		return true
	})
}

// TrackEvent counts one dispatched event.
func (c *Collector) TrackEvent(level types.Level) {
	if level.Valid() {
		c.eventsByLevel[level].Add(1)
	}
}

// TrackRecovered counts a dispatch that panicked and was recovered.
func (c *Collector) TrackRecovered() {
	c.eventsRecovered.Add(1)
}

// TrackEviction counts a record pushed out of a full retention buffer.
func (c *Collector) TrackEviction() {
	c.evictions.Add(1)
}

// TrackFlush records a batch handed to a downstream processor.
func (c *Collector) TrackFlush(events int, duration time.Duration) {
	c.batchesFlushed.Add(1)
	c.eventsFlushed.Add(uint64(events))
	c.totalFlushTime.Add(int64(duration))

	for {
		oldMax := c.maxFlushTime.Load()
		if int64(duration) <= oldMax {
			break
		}
		if c.maxFlushTime.CompareAndSwap(oldMax, int64(duration)) {
			break
		}
	}
}

// TrackError increments the error counter and tracks by source.
func (c *Collector) TrackError(source string) {
	c.errorCount.Add(1)

	val, _ := c.errorsBySource.LoadOrStore(source, &atomic.Uint64{})
	val.(*atomic.Uint64).Add(1)
}

// GetEventCount returns the number of events tracked at a level.
func (c *Collector) GetEventCount(level types.Level) uint64 {
	if !level.Valid() {
		return 0
	}
	return c.eventsByLevel[level].Load()
}

// GetErrorCountBySource returns the error count for a specific source.
func (c *Collector) GetErrorCountBySource(source string) uint64 {
	if val, ok := c.errorsBySource.Load(source); ok {
		return val.(*atomic.Uint64).Load()
	}
	return 0
}
