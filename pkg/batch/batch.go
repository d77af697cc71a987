// Package batch groups events by fingerprint and hands them to downstream
// processors on an escalating schedule, so that a burst of identical errors
// produces one notification rather than a thousand.
package batch

import (
	"github.com/wayneeseguin/logevents/pkg/types"
)

// Group is a run of events sharing one fingerprint within a batch window.
type Group struct {
	Fingerprint types.Fingerprint
	events      []*types.Event
}

// Head returns the first event of the group.
func (g *Group) Head() *types.Event {
	return g.events[0]
}

// Last returns the most recent event of the group.
func (g *Group) Last() *types.Event {
	return g.events[len(g.events)-1]
}

// Count returns the number of events in the group.
func (g *Group) Count() int {
	return len(g.events)
}

// Events returns the events of the group in insertion order.
func (g *Group) Events() []*types.Event {
	return g.events
}

// Batch maps fingerprints to groups, keeping the order in which each
// fingerprint was first seen. A Batch is not safe for concurrent use; the
// Throttler owning it serializes access.
type Batch struct {
	groups []*Group
	index  map[types.Fingerprint]*Group
	size   int
}

// New creates an empty batch.
func New() *Batch {
	return &Batch{index: make(map[types.Fingerprint]*Group)}
}

// Add appends e to the group of its fingerprint, creating the group when
// the fingerprint is new. It returns the batch to allow chaining.
func (b *Batch) Add(e *types.Event) *Batch {
	fp := e.Fingerprint()
	g, ok := b.index[fp]
	if !ok {
		g = &Group{Fingerprint: fp}
		b.index[fp] = g
		b.groups = append(b.groups, g)
	}
	g.events = append(g.events, e)
	b.size++
	return b
}

// Groups returns the groups in first-seen order.
func (b *Batch) Groups() []*Group {
	return b.groups
}

// Len returns the number of events across all groups.
func (b *Batch) Len() int {
	return b.size
}

// IsEmpty reports whether no event has been added.
func (b *Batch) IsEmpty() bool {
	return b.size == 0
}

// MainGroup returns the first group with the highest level, or nil for an
// empty batch. Notification formats use it as the headline.
func (b *Batch) MainGroup() *Group {
	var main *Group
	for _, g := range b.groups {
		if main == nil || g.Fingerprint.Level > main.Fingerprint.Level {
			main = g
		}
	}
	return main
}
