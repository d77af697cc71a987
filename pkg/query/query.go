// Package query answers ad hoc questions over retained events: which
// events at or above a level fall in a time window, how they are spread
// over levels and loggers, and which of them match a predicate.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/text/cases"

	"github.com/wayneeseguin/logevents/pkg/types"
)

// Source exposes retained events per level.
type Source interface {
	Snapshot(level types.Level) []*types.Event
}

// Unlimited disables truncation when used as Filter.Limit.
const Unlimited = -1

// Filter selects events. Threshold, Start and End decide which events are
// counted in the summary; the remaining fields only narrow the returned
// events. A zero Start or End leaves that side of the window open. Both
// bounds are exclusive.
type Filter struct {
	Threshold types.Level
	Start     time.Time
	End       time.Time

	Marker string
	Logger string // glob over dotted names: "*" stays within one segment, "**" spans segments
	Thread string
	Host   string
	Text   string // case insensitive substring of the rendered message

	Predicate func(e *types.Event) bool

	// Limit caps the number of returned events. Zero returns no events but
	// still computes the summary; Unlimited returns all of them.
	Limit int
}

// Summary holds facet counts over every event within the time window and
// threshold, before the predicate and limit are applied.
type Summary struct {
	Total    int                 `json:"total"`
	Filtered int                 `json:"filtered"`
	Levels   map[types.Level]int `json:"levels"`
	Loggers  map[string]int      `json:"loggers"`
	Markers  map[string]int      `json:"markers,omitempty"`
	Threads  map[string]int      `json:"threads,omitempty"`
	Hosts    map[string]int      `json:"hosts,omitempty"`
}

func newSummary(threshold types.Level) *Summary {
	s := &Summary{
		Levels:  make(map[types.Level]int),
		Loggers: make(map[string]int),
		Markers: make(map[string]int),
		Threads: make(map[string]int),
		Hosts:   make(map[string]int),
	}
	for _, level := range types.Levels() {
		if level.AtLeast(threshold) {
			s.Levels[level] = 0
		}
	}
	return s
}

func (s *Summary) add(e *types.Event) {
	s.Total++
	s.Levels[e.Level]++
	s.Loggers[e.Logger]++
	if e.Marker != "" {
		s.Markers[e.Marker]++
	}
	if e.Thread != "" {
		s.Threads[e.Thread]++
	}
	if e.Host != "" {
		s.Hosts[e.Host]++
	}
}

// Result is the answer to a query. Events are in ascending time order.
type Result struct {
	Summary *Summary       `json:"summary"`
	Events  []*types.Event `json:"events"`
}

// Run executes f against src. The only error is a malformed logger pattern.
func Run(src Source, f Filter) (*Result, error) {
	match, err := f.matcher()
	if err != nil {
		return nil, err
	}

	var window []*types.Event
	for _, level := range types.Levels() {
		if !level.AtLeast(f.Threshold) {
			continue
		}
		for _, e := range src.Snapshot(level) {
			if f.inWindow(e.Time) {
				window = append(window, e)
			}
		}
	}
	// Per level buffers evict independently, so only a sort restores order
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Time.Before(window[j].Time)
	})

	summary := newSummary(f.Threshold)
	for _, e := range window {
		summary.add(e)
	}

	events := make([]*types.Event, 0)
	for _, e := range window {
		if f.Limit >= 0 && len(events) >= f.Limit {
			break
		}
		if match(e) {
			events = append(events, e)
		}
	}
	summary.Filtered = len(events)

	return &Result{Summary: summary, Events: events}, nil
}

func (f Filter) inWindow(t time.Time) bool {
	if !f.Start.IsZero() && !t.After(f.Start) {
		return false
	}
	if !f.End.IsZero() && !t.Before(f.End) {
		return false
	}
	return true
}

func (f Filter) matcher() (func(*types.Event) bool, error) {
	var loggerGlob glob.Glob
	if f.Logger != "" {
		g, err := glob.Compile(f.Logger, '.')
		if err != nil {
			return nil, types.NewConfigError("logger", f.Logger, err)
		}
		loggerGlob = g
	}
	var text string
	fold := cases.Fold()
	if f.Text != "" {
		text = fold.String(f.Text)
	}

	return func(e *types.Event) bool {
		if f.Marker != "" && e.Marker != f.Marker {
			return false
		}
		if loggerGlob != nil && !loggerGlob.Match(e.Logger) {
			return false
		}
		if f.Thread != "" && e.Thread != f.Thread {
			return false
		}
		if f.Host != "" && e.Host != f.Host {
			return false
		}
		if text != "" && !strings.Contains(fold.String(e.Message()), text) {
			return false
		}
		if f.Predicate != nil && !f.Predicate(e) {
			return false
		}
		return true
	}, nil
}
