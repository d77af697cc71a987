package config

import (
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/pkg/logevents"
	"github.com/wayneeseguin/logevents/pkg/observers"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

var includeParentSuffixes = []string{".include_parent", ".includeparent"}

// loggerSpec is one parsed root or logger.<name> entry
type loggerSpec struct {
	name          string
	level         types.Level
	hasLevel      bool
	observerNames []string
	includeParent bool
	hasInclude    bool
}

// Applied is the result of applying a configuration: the named observers it
// built and now owns.
type Applied struct {
	Observers map[string]types.Observer
	RootLevel types.Level
}

// Close flushes and closes every named observer. The first error is
// returned after every observer has been closed.
func (a *Applied) Close() error {
	if a == nil {
		return nil
	}
	var first error
	for _, name := range a.names() {
		o := a.Observers[name]
		if f, ok := o.(types.Flusher); ok {
			f.Flush()
		}
		if c, ok := o.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = errors.Wrapf(err, "close observer %s", name)
			}
		}
	}
	return first
}

func (a *Applied) names() []string {
	names := make([]string, 0, len(a.Observers))
	for name := range a.Observers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply validates cfg, builds its observers and then reconfigures reg. The
// registry is left untouched when the configuration is invalid.
func Apply(cfg *Config, reg *logevents.Registry) (*Applied, error) {
	thresholds, err := statusThresholds(cfg)
	if err != nil {
		return nil, err
	}

	named, err := buildObservers(cfg, Env{Status: reg.Status(), Metrics: reg.Collector(), previous: reg.Observer})
	if err != nil {
		return nil, err
	}
	applied := &Applied{Observers: named}

	root, loggers, err := loggerSpecs(cfg, named)
	if err != nil {
		_ = applied.Close()
		return nil, err
	}

	rootObserver := types.Observer(observers.NewConsole(observers.WithConsoleStatus(reg.Status())))
	if len(root.observerNames) > 0 {
		rootObserver = combineNamed(named, root.observerNames)
	}
	applied.RootLevel = logevents.DefaultRootLevel
	if root.hasLevel {
		applied.RootLevel = root.level
	}

	configuration := logevents.Configuration{
		Observers:    named,
		RootObserver: rootObserver,
		RootLevel:    applied.RootLevel,
	}
	for _, spec := range loggers {
		lc := logevents.LoggerConfig{
			Name:    spec.name,
			Inherit: !spec.hasInclude || spec.includeParent,
		}
		if spec.hasLevel {
			level := spec.level
			lc.Level = &level
		}
		if len(spec.observerNames) > 0 {
			lc.Observer = combineNamed(named, spec.observerNames)
		}
		configuration.Loggers = append(configuration.Loggers, lc)
	}
	reg.Configure(configuration)
	if thresholds != nil {
		reg.Status().Configure(thresholds)
	}
	return applied, nil
}

func combineNamed(named map[string]types.Observer, names []string) types.Observer {
	list := make([]types.Observer, 0, len(names))
	for _, name := range names {
		list = append(list, named[name])
	}
	return observers.Combine(list...)
}

// statusThresholds reads status = LEVEL and status.<source> = LEVEL. It
// returns nil when no status key is present.
func statusThresholds(cfg *Config) (map[string]status.Level, error) {
	var thresholds map[string]status.Level
	add := func(key, source string) error {
		v, _ := cfg.Get(key)
		l, err := status.ParseLevel(v)
		if err != nil {
			return types.NewConfigError(key, v, err)
		}
		if thresholds == nil {
			thresholds = make(map[string]status.Level)
		}
		thresholds[source] = l
		return nil
	}
	if _, ok := cfg.Get("status"); ok {
		if err := add("status", ""); err != nil {
			return nil, err
		}
	}
	for _, source := range cfg.withPrefix("status.") {
		if err := add("status."+source, source); err != nil {
			return nil, err
		}
	}
	return thresholds, nil
}

// observerDefinitions maps every observer name to its type, from either
// observer.<name> = <type> or observer.<name>.type = <type>.
func observerDefinitions(cfg *Config) (map[string]string, error) {
	defs := make(map[string]string)
	seen := make(map[string]bool)
	for _, rest := range cfg.withPrefix("observer.") {
		name, param, _ := strings.Cut(rest, ".")
		seen[name] = true
		if param == "" || param == "type" {
			v, _ := cfg.Get("observer." + rest)
			defs[name] = v
		}
	}
	for name := range seen {
		if defs[name] == "" {
			return nil, types.NewConfigError("observer."+name, "", ErrMissingParameter)
		}
	}
	return defs, nil
}

func buildObservers(cfg *Config, env Env) (map[string]types.Observer, error) {
	defs, err := observerDefinitions(cfg)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	built := &Applied{Observers: make(map[string]types.Observer, len(defs))}
	for _, name := range names {
		o, err := buildObserver(newParams(cfg, name, defs[name]), env)
		if err != nil {
			_ = built.Close()
			return nil, err
		}
		built.Observers[name] = o
	}
	return built.Observers, nil
}

func loggerSpecs(cfg *Config, named map[string]types.Observer) (loggerSpec, []loggerSpec, error) {
	root := loggerSpec{name: logevents.RootName}
	if v, ok := cfg.Get("root"); ok {
		if err := parseLoggerValue(&root, "root", v, named); err != nil {
			return root, nil, err
		}
	}

	byName := make(map[string]*loggerSpec)
	spec := func(name string) *loggerSpec {
		if s, ok := byName[name]; ok {
			return s
		}
		s := &loggerSpec{name: name}
		byName[name] = s
		return s
	}
	for _, rest := range cfg.withPrefix("logger.") {
		key := "logger." + rest
		v, _ := cfg.Get(key)
		if name, ok := cutIncludeParent(rest); ok {
			s := spec(name)
			include, err := parseBool(key, v)
			if err != nil {
				return root, nil, err
			}
			s.includeParent, s.hasInclude = include, true
			continue
		}
		if err := parseLoggerValue(spec(rest), key, v, named); err != nil {
			return root, nil, err
		}
	}

	loggers := make([]loggerSpec, 0, len(byName))
	for _, s := range byName {
		loggers = append(loggers, *s)
	}
	sort.Slice(loggers, func(i, j int) bool { return loggers[i].name < loggers[j].name })
	return root, loggers, nil
}

func cutIncludeParent(rest string) (string, bool) {
	for _, suffix := range includeParentSuffixes {
		if name, ok := strings.CutSuffix(rest, suffix); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// parseLoggerValue reads "LEVEL obs1,obs2". The level is optional and the
// observer names may be separated by commas or spaces.
func parseLoggerValue(s *loggerSpec, key, value string, named map[string]types.Observer) error {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) > 0 {
		if l, err := types.ParseLevel(fields[0]); err == nil {
			s.level, s.hasLevel = l, true
			fields = fields[1:]
		}
	}
	seen := make(map[string]bool)
	for _, name := range fields {
		name = strings.ToLower(name)
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := named[name]; !ok {
			return types.NewConfigError(key, value, errors.Wrapf(types.ErrUnknownObserver, "observer %q", name))
		}
		s.observerNames = append(s.observerNames, name)
	}
	return nil
}

func parseBool(key, v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, types.NewConfigError(key, v, errors.New("expected true or false"))
}

// FileConfigurator loads a configuration file into a registry. It owns the
// observers of the last successful load and closes them when replaced.
type FileConfigurator struct {
	path string

	mu      sync.Mutex
	applied *Applied
}

// NewFileConfigurator creates a configurator for path, or Path() when
// path is empty.
func NewFileConfigurator(path string) *FileConfigurator {
	if path == "" {
		path = Path()
	}
	return &FileConfigurator{path: path}
}

// Path returns the configuration file
func (f *FileConfigurator) Path() string {
	return f.path
}

// Configure implements logevents.Configurator. A missing file leaves the
// registry unchanged.
func (f *FileConfigurator) Configure(reg *logevents.Registry) error {
	cfg, err := Load(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		reg.Status().AddDebug(f, "No configuration file "+f.path)
		return nil
	}
	if err != nil {
		return err
	}
	applied, err := Apply(cfg, reg)
	if err != nil {
		return err
	}

	f.mu.Lock()
	old := f.applied
	f.applied = applied
	f.mu.Unlock()

	if err := old.Close(); err != nil {
		reg.Status().AddError(f, "Failed to close replaced observers", err)
	}
	return nil
}

// Applied returns the result of the last successful load
func (f *FileConfigurator) Applied() *Applied {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}

// Close closes the observers of the last successful load
func (f *FileConfigurator) Close() error {
	f.mu.Lock()
	applied := f.applied
	f.applied = nil
	f.mu.Unlock()
	return applied.Close()
}
