package logevents

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wayneeseguin/logevents/internal/metrics"
	"github.com/wayneeseguin/logevents/pkg/observers"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// RootName is the name of the root logger
const RootName = ""

// DefaultRootLevel is the root threshold when nothing else is configured
const DefaultRootLevel = types.LevelInfo

// effective is the published, immutable result of a refresh.
type effective struct {
	threshold types.Level
	observer  types.Observer
}

// node is one logger in the hierarchy. Nodes are owned by the registry and
// refer to their parent by index; the root has parent -1.
type node struct {
	name     string
	parent   int
	hasLevel bool
	level    types.Level
	observer types.Observer // own observer, nil when unset
	inherit  bool

	eff    atomic.Pointer[effective]
	logger *Logger
}

func (n *node) reset() {
	n.hasLevel = false
	n.level = 0
	n.observer = nil
	n.inherit = true
}

// Registry owns the logger hierarchy. Configuration changes and node
// creation are serialized by one mutex; emission only reads the effective
// values published on each node and never takes the lock.
type Registry struct {
	mu        sync.Mutex
	nodes     []*node
	byName    map[string]int
	observers map[string]types.Observer

	status  *status.Status
	metrics *metrics.Collector
	host    string
}

// Option configures a Registry
type Option func(*Registry)

// WithStatus sets the feed dispatch failures are reported to
func WithStatus(s *status.Status) Option {
	return func(r *Registry) { r.status = s }
}

// WithMetrics sets the collector counting dispatched events
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Registry) { r.metrics = c }
}

// WithHost sets the host name stamped on events
func WithHost(host string) Option {
	return func(r *Registry) { r.host = host }
}

// NewRegistry creates a registry whose root logs at INFO to no observer.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byName:    make(map[string]int),
		observers: make(map[string]types.Observer),
		metrics:   metrics.NewCollector(),
	}
	r.host, _ = os.Hostname()
	for _, opt := range opts {
		opt(r)
	}

	root := &node{name: RootName, parent: -1, hasLevel: true, level: DefaultRootLevel, inherit: true}
	root.logger = &Logger{registry: r, node: root}
	r.nodes = append(r.nodes, root)
	r.byName[RootName] = 0
	r.refreshLocked(0)
	return r
}

func (r *Registry) statusFeed() *status.Status {
	if r.status == nil {
		return status.Default()
	}
	return r.status
}

// Status returns the feed the registry reports to
func (r *Registry) Status() *status.Status {
	return r.statusFeed()
}

// Collector returns the metrics collector shared with observers
func (r *Registry) Collector() *metrics.Collector {
	return r.metrics
}

// Logger returns the logger with the given dotted name, creating it and
// any missing ancestors. The same name always yields the same *Logger.
func (r *Registry) Logger(name string) *Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes[r.resolveLocked(name)].logger
}

// Root returns the root logger
func (r *Registry) Root() *Logger {
	return r.Logger(RootName)
}

func (r *Registry) resolveLocked(name string) int {
	if idx, ok := r.byName[name]; ok {
		return idx
	}
	parent := 0
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		parent = r.resolveLocked(name[:i])
	}

	n := &node{name: name, parent: parent, inherit: true}
	n.logger = &Logger{registry: r, node: n}
	r.nodes = append(r.nodes, n)
	idx := len(r.nodes) - 1
	r.byName[name] = idx
	r.refreshLocked(idx)
	return idx
}

// refreshLocked recomputes the effective values of one node from its own
// configuration and its parent's published values.
func (r *Registry) refreshLocked(idx int) {
	n := r.nodes[idx]
	eff := &effective{}

	if n.parent < 0 {
		eff.threshold = n.level
		eff.observer = ownOrNull(n.observer)
	} else {
		parent := r.nodes[n.parent].eff.Load()
		eff.threshold = parent.threshold
		if n.hasLevel {
			eff.threshold = n.level
		}
		if n.inherit {
			eff.observer = observers.Combine(parent.observer, n.observer)
		} else {
			eff.observer = ownOrNull(n.observer)
		}
	}
	n.eff.Store(eff)
}

// refreshTreeLocked refreshes idx and then every known node whose parent
// was just refreshed.
func (r *Registry) refreshTreeLocked(idx int) {
	r.refreshLocked(idx)
	for child, n := range r.nodes {
		if n.parent == idx {
			r.refreshTreeLocked(child)
		}
	}
}

func ownOrNull(o types.Observer) types.Observer {
	if o == nil {
		return observers.Null
	}
	return o
}

// SetLevel sets the own threshold of a logger and returns the previous one;
// ok is false when none was set.
func (r *Registry) SetLevel(name string, level types.Level) (previous types.Level, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.resolveLocked(name)
	n := r.nodes[idx]
	previous, ok = n.level, n.hasLevel
	n.hasLevel, n.level = true, level
	r.refreshTreeLocked(idx)
	return previous, ok
}

// ClearLevel removes the own threshold of a logger so that it inherits its
// parent's. Clearing the root restores DefaultRootLevel.
func (r *Registry) ClearLevel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.resolveLocked(name)
	n := r.nodes[idx]
	if n.parent < 0 {
		n.level = DefaultRootLevel
	} else {
		n.hasLevel, n.level = false, 0
	}
	r.refreshTreeLocked(idx)
}

// SetRootLevel sets the root threshold
func (r *Registry) SetRootLevel(level types.Level) {
	r.SetLevel(RootName, level)
}

// SetObserver replaces the own observer of a logger and returns the
// previous one. With inherit set the logger also dispatches to the
// observers of its parent, parent first.
func (r *Registry) SetObserver(name string, o types.Observer, inherit bool) types.Observer {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.resolveLocked(name)
	n := r.nodes[idx]
	previous := n.observer
	n.observer, n.inherit = o, inherit
	r.refreshTreeLocked(idx)
	return previous
}

// AddObserver adds o in front of the current own observer of a logger,
// keeping its inherit flag.
func (r *Registry) AddObserver(name string, o types.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.resolveLocked(name)
	n := r.nodes[idx]
	combined := observers.Combine(o, n.observer)
	if observers.IsNull(combined) {
		combined = nil
	}
	n.observer = combined
	r.refreshTreeLocked(idx)
}

// SetRootObserver replaces the root observer
func (r *Registry) SetRootObserver(o types.Observer) {
	r.SetObserver(RootName, o, true)
}

// AddRootObserver adds an observer to the root
func (r *Registry) AddRootObserver(o types.Observer) {
	r.AddObserver(RootName, o)
}

// SetObservers replaces the named observers configuration refers to.
func (r *Registry) SetObservers(named map[string]types.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = make(map[string]types.Observer, len(named))
	for k, v := range named {
		r.observers[k] = v
	}
}

// Observer returns a named observer. An unknown name is a configuration
// error naming the observer key.
func (r *Registry) Observer(name string) (types.Observer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observerLocked(name)
}

func (r *Registry) observerLocked(name string) (types.Observer, error) {
	o, ok := r.observers[name]
	if !ok {
		return nil, types.NewConfigError("observer."+name, "", types.ErrUnknownObserver)
	}
	return o, nil
}

// SetObserverNames sets the own observer of a logger to the named
// observers in a comma separated list. Names listed twice are used once.
func (r *Registry) SetObserverNames(name, observerNames string, inherit bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var list []types.Observer
	seen := make(map[string]bool)
	for _, observerName := range strings.Split(observerNames, ",") {
		observerName = strings.TrimSpace(observerName)
		if observerName == "" || seen[observerName] {
			continue
		}
		seen[observerName] = true
		o, err := r.observerLocked(observerName)
		if err != nil {
			return err
		}
		list = append(list, o)
	}

	idx := r.resolveLocked(name)
	n := r.nodes[idx]
	n.observer, n.inherit = observers.Combine(list...), inherit
	if observers.IsNull(n.observer) {
		n.observer = nil
	}
	r.refreshTreeLocked(idx)
	return nil
}

// Reset clears the configuration of every logger and configures the root
// with the given observer and threshold. Loggers already handed out stay
// valid and pick up the new configuration.
func (r *Registry) Reset(rootObserver types.Observer, rootLevel types.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.nodes {
		n.reset()
	}
	root := r.nodes[0]
	root.hasLevel, root.level = true, rootLevel
	root.observer, root.inherit = rootObserver, false
	r.refreshTreeLocked(0)
}

// LoggerConfig is the configuration of one logger in a Configuration
type LoggerConfig struct {
	Name     string
	Level    *types.Level
	Observer types.Observer // own observer, nil for none
	Inherit  bool
}

// Configuration replaces the whole logger tree at once
type Configuration struct {
	Observers    map[string]types.Observer
	RootObserver types.Observer
	RootLevel    types.Level
	Loggers      []LoggerConfig
}

// Configure resets every logger and applies c in one step. Loggers are
// refreshed root first once every change is in place, so an emitter never
// sees a logger with only part of c applied.
func (r *Registry) Configure(c Configuration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = make(map[string]types.Observer, len(c.Observers))
	for k, v := range c.Observers {
		r.observers[k] = v
	}
	for _, n := range r.nodes {
		n.reset()
	}
	root := r.nodes[0]
	root.hasLevel, root.level = true, c.RootLevel
	root.observer, root.inherit = c.RootObserver, false

	for _, lc := range c.Loggers {
		if n := r.nodes[r.resolveLocked(lc.Name)]; n.parent >= 0 {
			n.configure(lc)
		}
	}
	r.refreshTreeLocked(0)
}

func (n *node) configure(lc LoggerConfig) {
	n.hasLevel, n.level = lc.Level != nil, 0
	if lc.Level != nil {
		n.level = *lc.Level
	}
	n.observer, n.inherit = lc.Observer, lc.Inherit
	if observers.IsNull(n.observer) {
		n.observer = nil
	}
}

// LoggerConfig returns the own configuration of a logger, the way
// SetLoggerConfig takes it.
func (r *Registry) LoggerConfig(name string) LoggerConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.nodes[r.resolveLocked(name)]
	lc := LoggerConfig{Name: n.name, Observer: n.observer, Inherit: n.inherit}
	if n.hasLevel {
		level := n.level
		lc.Level = &level
	}
	return lc
}

// SetLoggerConfig replaces the own configuration of one logger. The root
// always keeps a threshold; a nil Level leaves it unchanged.
func (r *Registry) SetLoggerConfig(lc LoggerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.resolveLocked(lc.Name)
	n := r.nodes[idx]
	if n.parent < 0 {
		if lc.Level != nil {
			n.level = *lc.Level
		}
		n.observer = lc.Observer
	} else {
		n.configure(lc)
	}
	r.refreshTreeLocked(idx)
}

// LoggerInfo describes the configuration of one logger
type LoggerInfo struct {
	Name     string         `json:"name" yaml:"name"`
	Level    types.Level    `json:"level" yaml:"level"`
	OwnLevel *types.Level   `json:"own_level,omitempty" yaml:"own_level,omitempty"`
	Inherit  bool           `json:"inherit" yaml:"inherit"`
	Observer types.Observer `json:"-" yaml:"-"`
}

// Loggers describes every known logger, sorted by name with the root first.
func (r *Registry) Loggers() []LoggerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]LoggerInfo, 0, len(r.nodes))
	for _, n := range r.nodes {
		eff := n.eff.Load()
		info := LoggerInfo{
			Name:     n.name,
			Level:    eff.threshold,
			Inherit:  n.inherit,
			Observer: eff.observer,
		}
		if n.hasLevel {
			level := n.level
			info.OwnLevel = &level
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Flush flushes every configured observer holding pending events, once
// each. This is the shutdown path.
func (r *Registry) Flush() {
	r.mu.Lock()
	var pending []types.Flusher
	seen := make(map[any]bool)
	var collect func(o types.Observer)
	collect = func(o types.Observer) {
		if c, ok := o.(*observers.Composite); ok {
			c.Each(collect)
			return
		}
		f, ok := o.(types.Flusher)
		if !ok {
			return
		}
		if reflect.TypeOf(o).Comparable() {
			if seen[o] {
				return
			}
			seen[o] = true
		}
		pending = append(pending, f)
	}
	for _, n := range r.nodes {
		if n.observer != nil {
			collect(n.observer)
		}
	}
	names := make([]string, 0, len(r.observers))
	for name := range r.observers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		collect(r.observers[name])
	}
	r.mu.Unlock()

	for _, f := range pending {
		r.safeFlush(f)
	}
}

func (r *Registry) safeFlush(f types.Flusher) {
	defer func() {
		if p := recover(); p != nil {
			r.statusFeed().AddError(r, "Flush failed", fmt.Errorf("panic: %v", p))
		}
	}()
	f.Flush()
}

// Metrics returns a snapshot of the dispatch counters
func (r *Registry) Metrics() metrics.Metrics {
	return r.metrics.GetMetrics()
}

// dispatch hands e to o. Nothing an observer does may reach the caller, and
// a failing member of a composite does not keep the event from the others.
func (r *Registry) dispatch(o types.Observer, e *types.Event) {
	r.metrics.TrackEvent(e.Level)
	if c, ok := o.(*observers.Composite); ok {
		c.Each(func(member types.Observer) { r.deliver(member, e) })
		return
	}
	r.deliver(o, e)
}

func (r *Registry) deliver(o types.Observer, e *types.Event) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.TrackRecovered()
			r.statusFeed().AddError(r, "Observer failed for "+e.Logger, fmt.Errorf("panic: %v", p))
		}
	}()
	o.LogEvent(e)
}
