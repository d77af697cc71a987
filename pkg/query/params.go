package query

import (
	"net/url"
	"strconv"
	"time"

	"github.com/wayneeseguin/logevents/internal/timeutil"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// Defaults applied by ParseFilter
const (
	DefaultLimit    = 200
	DefaultInterval = time.Hour
)

// now is replaced in tests
var now = time.Now

// ParseFilter builds a Filter from request parameters:
//
//	level     threshold, default INFO
//	start,end RFC3339 instants
//	time      RFC3339 center of the window, default now
//	interval  half width of the window around time, default PT1H
//	limit     maximum number of events, default 200
//	marker, logger, thread, host, q
//
// start and end take precedence over time and interval. A malformed value
// returns a *types.ConfigError naming the parameter.
func ParseFilter(values url.Values) (Filter, error) {
	f := Filter{
		Threshold: types.LevelInfo,
		Limit:     DefaultLimit,
		Marker:    values.Get("marker"),
		Logger:    values.Get("logger"),
		Thread:    values.Get("thread"),
		Host:      values.Get("host"),
		Text:      values.Get("q"),
	}

	if v := values.Get("level"); v != "" {
		level, err := types.ParseLevel(v)
		if err != nil {
			return Filter{}, types.NewConfigError("level", v, err)
		}
		f.Threshold = level
	}

	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			if err == nil {
				err = strconv.ErrRange
			}
			return Filter{}, types.NewConfigError("limit", v, err)
		}
		f.Limit = limit
	}

	center := now()
	if v := values.Get("time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Filter{}, types.NewConfigError("time", v, err)
		}
		center = t
	}
	interval := DefaultInterval
	if v := values.Get("interval"); v != "" {
		d, err := timeutil.ParseDuration(v)
		if err != nil {
			return Filter{}, types.NewConfigError("interval", v, err)
		}
		interval = d
	}
	f.Start = center.Add(-interval)
	f.End = center.Add(interval)

	for key, target := range map[string]*time.Time{"start": &f.Start, "end": &f.End} {
		if v := values.Get(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return Filter{}, types.NewConfigError(key, v, err)
			}
			*target = t
		}
	}

	return f, nil
}
