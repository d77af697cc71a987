package types

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnknownObserver is returned when configuration references an observer
// name that was never defined.
var ErrUnknownObserver = stderrors.New("unknown observer")

// ConfigError reports a configuration problem tied to a specific key.
type ConfigError struct {
	Key   string // The offending configuration key
	Value string // The offending value, if any
	Err   error  // The underlying error
}

// NewConfigError creates a ConfigError carrying a stack trace.
func NewConfigError(key, value string, err error) error {
	return errors.WithStack(&ConfigError{Key: key, Value: value, Err: err})
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("configuration %s=%q: %v", e.Key, e.Value, e.Err)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Err
}
