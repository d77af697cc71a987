package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/pbnjay/memory"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/internal/timeutil"
	"github.com/wayneeseguin/logevents/pkg/formatters"
	"github.com/wayneeseguin/logevents/pkg/observers"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// ErrMissingParameter is returned when a required observer parameter is absent
var ErrMissingParameter = errors.New("missing parameter")

// Params gives access to the parameters of one observer definition,
// observer.<name>.<param>.
type Params struct {
	Name   string
	Type   string
	prefix string
	cfg    *Config
}

func newParams(cfg *Config, name, typ string) Params {
	return Params{Name: name, Type: typ, prefix: "observer." + name + ".", cfg: cfg}
}

// Key returns the full configuration key of a parameter
func (p Params) Key(param string) string {
	return p.prefix + param
}

// Lookup returns a parameter and whether it is set
func (p Params) Lookup(param string) (string, bool) {
	v, ok := p.cfg.Get(p.Key(param))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// String returns a parameter or def
func (p Params) String(param, def string) string {
	if v, ok := p.Lookup(param); ok {
		return v
	}
	return def
}

// Required returns a parameter that must be set
func (p Params) Required(param string) (string, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return "", types.NewConfigError(p.Key(param), "", ErrMissingParameter)
	}
	return v, nil
}

// Level parses a log level parameter
func (p Params) Level(param string, def types.Level) (types.Level, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return def, nil
	}
	l, err := types.ParseLevel(v)
	if err != nil {
		return def, types.NewConfigError(p.Key(param), v, err)
	}
	return l, nil
}

// Int parses an integer parameter
func (p Params) Int(param string, def int) (int, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, types.NewConfigError(p.Key(param), v, err)
	}
	return n, nil
}

// Float parses a floating point parameter
func (p Params) Float(param string, def float64) (float64, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, types.NewConfigError(p.Key(param), v, err)
	}
	return f, nil
}

// Bool parses a boolean parameter
func (p Params) Bool(param string, def bool) (bool, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, types.NewConfigError(p.Key(param), v, err)
	}
	return b, nil
}

// Duration parses a Go or ISO-8601 duration parameter
func (p Params) Duration(param string, def time.Duration) (time.Duration, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return def, nil
	}
	d, err := timeutil.ParseDuration(v)
	if err != nil {
		return def, types.NewConfigError(p.Key(param), v, err)
	}
	return d, nil
}

// Durations parses a list of durations separated by spaces or commas
func (p Params) Durations(param string) ([]time.Duration, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return nil, nil
	}
	ds, err := timeutil.ParseDurations(v)
	if err != nil {
		return nil, types.NewConfigError(p.Key(param), v, err)
	}
	return ds, nil
}

// Formatter creates the formatter named by a parameter
func (p Params) Formatter(param string, def formatters.Formatter) (formatters.Formatter, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return def, nil
	}
	f, err := formatters.CreateFormatter(strings.ToLower(v))
	if err != nil {
		return def, types.NewConfigError(p.Key(param), v, err)
	}
	return f, nil
}

// Capacity parses a buffer capacity: a positive integer, or "auto" to size
// the buffer from the installed memory.
func (p Params) Capacity(param string, def int) (int, error) {
	v, ok := p.Lookup(param)
	if !ok {
		return def, nil
	}
	if strings.EqualFold(v, "auto") {
		return AutoCapacity(memory.TotalMemory()), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, types.NewConfigError(p.Key(param), v, err)
	}
	return n, nil
}

const (
	minAutoCapacity = observers.DefaultBufferCapacity / 4
	maxAutoCapacity = observers.DefaultBufferCapacity * 10
)

// AutoCapacity returns a per-level buffer capacity for a host with the
// given amount of memory: one event per 4 MiB, within sane bounds. An
// unknown amount (0) gives the default capacity.
func AutoCapacity(totalMemory uint64) int {
	if totalMemory == 0 {
		return observers.DefaultBufferCapacity
	}
	n := totalMemory >> 22
	switch {
	case n < minAutoCapacity:
		return minAutoCapacity
	case n > maxAutoCapacity:
		return maxAutoCapacity
	}
	return int(n)
}
