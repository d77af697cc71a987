package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLevel is returned when a level name cannot be parsed
var ErrInvalidLevel = errors.New("invalid log level")

// Level is the severity of an event. Levels are ordered so that a higher
// value is more severe.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// NumLevels is the number of defined levels
const NumLevels = int(LevelError) + 1

var levelNames = [NumLevels]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

// Levels returns every level from least to most severe.
func Levels() []Level {
	return []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError}
}

// String returns the upper case name of the level
func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Valid reports whether l is one of the defined levels
func (l Level) Valid() bool {
	return l >= LevelTrace && l <= LevelError
}

// AtLeast reports whether l is at or above threshold in severity.
func (l Level) AtLeast(threshold Level) bool {
	return l >= threshold
}

// MarshalText implements encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel converts a level name into a Level. Matching is case
// insensitive and WARNING is accepted as an alias for WARN.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, name)
}
