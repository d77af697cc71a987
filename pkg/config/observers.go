package config

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/internal/metrics"
	"github.com/wayneeseguin/logevents/pkg/batch"
	"github.com/wayneeseguin/logevents/pkg/formatters"
	"github.com/wayneeseguin/logevents/pkg/observers"
	"github.com/wayneeseguin/logevents/pkg/processors"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// ErrUnknownObserverType is returned for an observer type nobody registered
var ErrUnknownObserverType = errors.New("unknown observer type")

// Env carries the shared services observers are built with
type Env struct {
	Status  *status.Status
	Metrics *metrics.Collector

	// previous looks up the observer a name had before this configuration
	previous func(name string) (types.Observer, error)
}

// Previous returns the observer registered under name before the
// configuration being applied, or nil.
func (e Env) Previous(name string) types.Observer {
	if e.previous == nil {
		return nil
	}
	o, err := e.previous(name)
	if err != nil {
		return nil
	}
	return o
}

// ObserverConstructor builds an observer from its parameters
type ObserverConstructor func(p Params, env Env) (types.Observer, error)

var (
	typesMu       sync.RWMutex
	observerTypes = map[string]ObserverConstructor{
		"console": newConsole,
		"file":    newFile,
		"buffer":  newBuffer,
		"slack":   newSlack,
		"webhook": newWebhook,
		"nats":    newNATS,
		"beats":   newBeats,
		"null":    newNull,
	}
)

// RegisterObserverType makes a new observer type available to
// observer.<name> = <type>. Registering an existing type replaces it.
func RegisterObserverType(name string, constructor ObserverConstructor) {
	typesMu.Lock()
	defer typesMu.Unlock()
	observerTypes[strings.ToLower(name)] = constructor
}

// ObserverTypes lists the registered observer types
func ObserverTypes() []string {
	typesMu.RLock()
	defer typesMu.RUnlock()
	names := make([]string, 0, len(observerTypes))
	for name := range observerTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupObserverType(name string) (ObserverConstructor, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	c, ok := observerTypes[strings.ToLower(name)]
	return c, ok
}

// buildObserver creates one named observer, wrapped in a level filter when
// a threshold is configured.
func buildObserver(p Params, env Env) (types.Observer, error) {
	constructor, ok := lookupObserverType(p.Type)
	if !ok {
		return nil, types.NewConfigError("observer."+p.Name, p.Type, ErrUnknownObserverType)
	}
	o, err := constructor(p, env)
	if err != nil {
		return nil, err
	}
	if _, ok := p.Lookup("threshold"); !ok {
		return o, nil
	}
	threshold, err := p.Level("threshold", types.LevelTrace)
	if err != nil {
		closeObserver(o)
		return nil, err
	}
	return observers.NewLevelFilter(threshold, o), nil
}

func closeObserver(o types.Observer) {
	if c, ok := o.(io.Closer); ok {
		_ = c.Close()
	}
}

func newNull(Params, Env) (types.Observer, error) {
	return observers.Null, nil
}

func newConsole(p Params, env Env) (types.Observer, error) {
	var out io.Writer
	switch target := strings.ToLower(p.String("target", "stdout")); target {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		return nil, types.NewConfigError(p.Key("target"), target, errors.New("expected stdout or stderr"))
	}
	opts := []observers.ConsoleOption{observers.WithConsoleStatus(env.Status), observers.WithWriter(out)}
	f, err := p.Formatter("formatter", nil)
	if err != nil {
		return nil, err
	}
	if f, err = stackFormatter(p, f, func() formatters.Formatter { return formatters.NewConsoleFormatter(out) }); err != nil {
		return nil, err
	}
	if f != nil {
		opts = append(opts, observers.WithFormatter(f))
	}
	return observers.NewConsole(opts...), nil
}

func newFile(p Params, env Env) (types.Observer, error) {
	filename, err := p.Required("filename")
	if err != nil {
		return nil, err
	}
	opts := []observers.FileOption{observers.WithFileStatus(env.Status)}
	f, err := p.Formatter("formatter", nil)
	if err != nil {
		return nil, err
	}
	if f, err = stackFormatter(p, f, func() formatters.Formatter { return formatters.NewTextFormatter() }); err != nil {
		return nil, err
	}
	if f != nil {
		opts = append(opts, observers.WithFileFormatter(f))
	}
	interval, err := p.Duration("flush", 0)
	if err != nil {
		return nil, err
	}
	if interval > 0 {
		opts = append(opts, observers.WithFileFlushInterval(interval))
	}
	o, err := observers.NewFile(filename, opts...)
	if err != nil {
		return nil, types.NewConfigError(p.Key("filename"), filename, err)
	}
	return o, nil
}

// stackFormatter applies stack_frames and stack_filter to f, or to the
// observer's default formatter when f is nil.
func stackFormatter(p Params, f formatters.Formatter, def func() formatters.Formatter) (formatters.Formatter, error) {
	_, hasFrames := p.Lookup("stack_frames")
	filter, hasFilter := p.Lookup("stack_filter")
	if !hasFrames && !hasFilter {
		return f, nil
	}
	frames, err := p.Int("stack_frames", 0)
	if err != nil {
		return nil, err
	}
	if frames < 0 {
		return nil, types.NewConfigError(p.Key("stack_frames"), p.String("stack_frames", ""), errors.New("must not be negative"))
	}
	if f == nil {
		f = def()
	}
	return formatters.WithStack(f, formatters.StackOptions{
		MaxFrames:     frames,
		PackageFilter: strings.FieldsFunc(filter, func(r rune) bool { return r == ',' || r == ' ' }),
	}), nil
}

func newBuffer(p Params, env Env) (types.Observer, error) {
	capacity, err := p.Capacity("capacity", observers.DefaultBufferCapacity)
	if err != nil {
		return nil, err
	}
	prev := previousBuffer(env.Previous(p.Name))
	if prev != nil && prev.Capacity() == capacity {
		return prev, nil
	}
	b, err := observers.NewBuffer(capacity, observers.WithBufferMetrics(env.Metrics))
	if err != nil {
		return nil, types.NewConfigError(p.Key("capacity"), p.String("capacity", ""), err)
	}
	if prev != nil {
		b.Retain(prev)
	}
	return b, nil
}

// previousBuffer finds the buffer a reloaded configuration keeps retained
// events from
func previousBuffer(o types.Observer) *observers.Buffer {
	if f, ok := o.(*observers.LevelFilter); ok {
		o = f.Next
	}
	b, _ := o.(*observers.Buffer)
	return b
}

// throttled wraps a processor the way every batching observer type shares:
// throttle and timeout parameters, status and metrics from env.
func throttled(p Params, env Env, processor batch.Processor) (types.Observer, error) {
	opts := []batch.ThrottlerOption{
		batch.WithName(p.Name),
		batch.WithStatus(env.Status),
		batch.WithMetrics(env.Metrics),
	}
	delays, err := p.Durations("throttle")
	if err != nil {
		return nil, err
	}
	if len(delays) > 0 {
		opts = append(opts, batch.WithThrottle(delays...))
	}
	timeout, err := p.Duration("timeout", batch.DefaultProcessTimeout)
	if err != nil {
		return nil, err
	}
	opts = append(opts, batch.WithTimeout(timeout))
	return observers.NewThrottled(processor, opts...), nil
}

func webhookOptions(p Params) ([]processors.WebhookOption, error) {
	var opts []processors.WebhookOption
	rate, err := p.Float("rate", 0)
	if err != nil {
		return nil, err
	}
	if rate > 0 {
		opts = append(opts, processors.WithRateLimit(rate, 1))
	}
	retries, err := p.Int("retries", -1)
	if err != nil {
		return nil, err
	}
	if retries >= 0 {
		backoff, err := p.Duration("backoff", processors.DefaultBackoff)
		if err != nil {
			return nil, err
		}
		opts = append(opts, processors.WithRetries(retries, backoff))
	}
	return opts, nil
}

func newSlack(p Params, env Env) (types.Observer, error) {
	url, err := p.Required("url")
	if err != nil {
		return nil, err
	}
	opts, err := webhookOptions(p)
	if err != nil {
		return nil, err
	}
	f := processors.SlackFormatter{
		Username: p.String("username", ""),
		Channel:  p.String("channel", ""),
	}
	return throttled(p, env, processors.NewSlack(url, f, opts...))
}

func newWebhook(p Params, env Env) (types.Observer, error) {
	url, err := p.Required("url")
	if err != nil {
		return nil, err
	}
	opts, err := webhookOptions(p)
	if err != nil {
		return nil, err
	}
	return throttled(p, env, processors.NewWebhook(url, processors.BatchPayload, opts...))
}

func newNATS(p Params, env Env) (types.Observer, error) {
	subject, err := p.Required("subject")
	if err != nil {
		return nil, err
	}
	servers := p.String("servers", "")
	conn, err := processors.ConnectNATS(servers)
	if err != nil {
		return nil, types.NewConfigError(p.Key("servers"), servers, err)
	}
	return throttled(p, env, processors.NewNATS(conn, subject))
}

func newBeats(p Params, env Env) (types.Observer, error) {
	address, err := p.Required("address")
	if err != nil {
		return nil, err
	}
	timeout, err := p.Duration("dial_timeout", 0)
	if err != nil {
		return nil, err
	}
	b, err := processors.DialBeats(address, timeout)
	if err != nil {
		return nil, types.NewConfigError(p.Key("address"), address, err)
	}
	return throttled(p, env, b)
}
