package observers

import (
	"github.com/wayneeseguin/logevents/internal/buffer"
	"github.com/wayneeseguin/logevents/internal/metrics"
	"github.com/wayneeseguin/logevents/pkg/query"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// DefaultBufferCapacity is the number of events retained per level
const DefaultBufferCapacity = 2000

// Buffer retains the most recent events of every level in one ring buffer
// per level, so a burst of DEBUG events never pushes out older errors.
type Buffer struct {
	rings   [types.NumLevels]*buffer.Ring[*types.Event]
	metrics *metrics.Collector
}

// BufferOption configures a Buffer
type BufferOption func(*Buffer)

// WithBufferMetrics counts evictions in c
func WithBufferMetrics(c *metrics.Collector) BufferOption {
	return func(b *Buffer) { b.metrics = c }
}

// NewBuffer creates a buffer retaining capacity events per level.
func NewBuffer(capacity int, opts ...BufferOption) (*Buffer, error) {
	b := &Buffer{}
	for _, level := range types.Levels() {
		ring, err := buffer.NewRing[*types.Event](capacity)
		if err != nil {
			return nil, err
		}
		b.rings[level] = ring
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// LogEvent implements types.Observer
func (b *Buffer) LogEvent(e *types.Event) {
	if !e.Level.Valid() {
		return
	}
	if b.rings[e.Level].Add(e) && b.metrics != nil {
		b.metrics.TrackEviction()
	}
}

// Snapshot returns the retained events of one level, oldest first.
func (b *Buffer) Snapshot(level types.Level) []*types.Event {
	if !level.Valid() {
		return nil
	}
	return b.rings[level].Snapshot()
}

// Query runs f against the retained events.
func (b *Buffer) Query(f query.Filter) (*query.Result, error) {
	return query.Run(b, f)
}

// Len returns the number of retained events over all levels.
func (b *Buffer) Len() int {
	n := 0
	for _, ring := range b.rings {
		n += ring.Len()
	}
	return n
}

// Capacity returns the per level capacity
func (b *Buffer) Capacity() int {
	return b.rings[0].Cap()
}

// Retain copies the events held by other into b, oldest first. When b is
// smaller only the newest events of each level are kept.
func (b *Buffer) Retain(other *Buffer) {
	for _, level := range types.Levels() {
		for _, e := range other.Snapshot(level) {
			b.rings[level].Add(e)
		}
	}
}

// Clear drops every retained event
func (b *Buffer) Clear() {
	for _, ring := range b.rings {
		ring.Clear()
	}
}
