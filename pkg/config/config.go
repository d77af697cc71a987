// Package config builds observers and logger configuration from a flat key
// space read from properties, YAML, JSON or TOML files.
//
//	root = INFO console,slack
//	logger.org.example.db = DEBUG file
//	logger.org.example.db.include_parent = false
//	observer.slack = slack
//	observer.slack.url = https://hooks.slack.com/services/...
//	observer.slack.threshold = WARN
//	status = ERROR
//
// Keys are matched without regard to case. Nested tables in YAML, JSON or
// TOML are flattened with dots, so the two spellings below are equivalent:
//
//	logger.org.example: DEBUG
//
//	logger:
//	  org.example: DEBUG
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigPath names the environment variable holding the default
// configuration file path.
const EnvConfigPath = "LOGEVENTS_CONFIG"

// DefaultPath is used when EnvConfigPath is not set
const DefaultPath = "logevents.properties"

// keyDelimiter keeps dotted logger names as single keys
const keyDelimiter = "::"

// Config is a flat view of one configuration source
type Config struct {
	values map[string]string
}

func newViper() *viper.Viper {
	return viper.NewWithOptions(
		viper.KeyDelimiter(keyDelimiter),
		viper.WithCodecRegistry(codecs()),
	)
}

// Path returns the configuration file named by LOGEVENTS_CONFIG, or
// DefaultPath.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads a configuration file. The format follows the file extension.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return fromViper(v), nil
}

// Parse reads configuration in the given format: properties, yaml, json
// or toml.
func Parse(r io.Reader, format string) (*Config, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s configuration", format)
	}
	return fromViper(v), nil
}

// FromMap creates a configuration from key/value pairs
func FromMap(values map[string]string) *Config {
	c := &Config{values: make(map[string]string, len(values))}
	for k, v := range values {
		c.values[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	return c
}

func fromViper(v *viper.Viper) *Config {
	c := &Config{values: make(map[string]string)}
	for _, k := range v.AllKeys() {
		c.values[strings.ReplaceAll(k, keyDelimiter, ".")] = stringValue(v.Get(k))
	}
	return c
}

func stringValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []string:
		return strings.Join(v, ",")
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = stringValue(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// Get returns the value of key
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[strings.ToLower(key)]
	return v, ok
}

// Keys returns every key, sorted
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys
func (c *Config) Len() int {
	return len(c.values)
}

// withPrefix returns the keys starting with prefix, with the prefix removed
func (c *Config) withPrefix(prefix string) []string {
	var out []string
	for _, k := range c.Keys() {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			out = append(out, rest)
		}
	}
	return out
}
