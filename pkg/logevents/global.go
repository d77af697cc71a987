package logevents

import (
	"fmt"
	"sync"
	"testing"

	"github.com/wayneeseguin/logevents/pkg/observers"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// Configurator applies configuration to a freshly reset registry.
type Configurator interface {
	Configure(r *Registry) error
}

// ConfiguratorFunc adapts a function to Configurator
type ConfiguratorFunc func(r *Registry) error

// Configure calls f(r)
func (f ConfiguratorFunc) Configure(r *Registry) error { return f(r) }

var (
	globalMu      sync.Mutex
	global        *Registry
	configurators []Configurator
)

// RegisterConfigurator adds a configurator run when the process-wide
// registry is created. Register before the first call to Default.
func RegisterConfigurator(c Configurator) {
	globalMu.Lock()
	defer globalMu.Unlock()
	configurators = append(configurators, c)
}

// Default returns the process-wide registry, creating and configuring it
// on first use. The root logs to the console at INFO, or at WARN inside
// go test, before the registered configurators run.
func Default() *Registry {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		global = newDefault(configurators)
	}
	return global
}

func newDefault(configurators []Configurator) *Registry {
	r := NewRegistry()
	r.Reset(observers.NewConsole(), defaultRootLevel())

	st := status.Default()
	if len(configurators) == 0 {
		st.AddDebug(r, "No configuration found - using default")
	}
	for _, c := range configurators {
		st.AddInfo(r, fmt.Sprintf("Loading configurator %T", c))
		if err := c.Configure(r); err != nil {
			st.AddError(r, "Failed to configure logging", err)
		}
	}
	return r
}

func defaultRootLevel() types.Level {
	if testing.Testing() {
		return types.LevelWarn
	}
	return DefaultRootLevel
}

// Reset flushes and drops the process-wide registry. The next call to
// Default builds a new one; loggers taken from the old one keep working
// against it but no longer see configuration changes.
func Reset() {
	globalMu.Lock()
	old := global
	global = nil
	globalMu.Unlock()

	if old != nil {
		old.Flush()
	}
}

// ResetConfigurators removes every registered configurator
func ResetConfigurators() {
	globalMu.Lock()
	defer globalMu.Unlock()
	configurators = nil
}

// GetLogger returns a logger from the process-wide registry
func GetLogger(name string) *Logger {
	return Default().Logger(name)
}
