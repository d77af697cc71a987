package formatters

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Factory creates formatter instances by name
type Factory struct {
	mu         sync.RWMutex
	formatters map[string]FormatterConstructor
}

// FormatterConstructor is a function that creates a formatter
type FormatterConstructor func() (Formatter, error)

// NewFactory creates a new formatter factory with default formatters registered
func NewFactory() *Factory {
	f := &Factory{
		formatters: make(map[string]FormatterConstructor),
	}

	f.Register("text", func() (Formatter, error) {
		return NewTextFormatter(), nil
	})
	f.Register("json", func() (Formatter, error) {
		return NewJSONFormatter(), nil
	})
	f.Register("console", func() (Formatter, error) {
		return NewConsoleFormatter(os.Stdout), nil
	})

	return f
}

// Register registers a new formatter constructor
func (f *Factory) Register(name string, constructor FormatterConstructor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if name == "" {
		return fmt.Errorf("formatter name cannot be empty")
	}

	if constructor == nil {
		return fmt.Errorf("formatter constructor cannot be nil")
	}

	f.formatters[name] = constructor
	return nil
}

// CreateFormatter creates a formatter by name
func (f *Factory) CreateFormatter(name string) (Formatter, error) {
	f.mu.RLock()
	constructor, exists := f.formatters[name]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("formatter %q not registered", name)
	}

	return constructor()
}

// ListFormatters returns the sorted names of all registered formatters
func (f *Factory) ListFormatters() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.formatters))
	for name := range f.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFactory is the global formatter factory
var DefaultFactory = NewFactory()

// Register registers a formatter with the default factory
func Register(name string, constructor FormatterConstructor) error {
	return DefaultFactory.Register(name, constructor)
}

// CreateFormatter creates a formatter using the default factory
func CreateFormatter(name string) (Formatter, error) {
	return DefaultFactory.CreateFormatter(name)
}
