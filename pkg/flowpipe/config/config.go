package config

import (
	"fmt"
	"time"
)

// Config wraps a map[string]any with typed accessors.
// Flow definitions carry a free-form config block (max execution time, cache
// flags, model fallback lists); Config lets agents and the executor read it
// without hand-written type assertions. Accessors return the given default
// when the key is missing or the value cannot be coerced.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string for key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the bool for key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the int for key, or defaultVal. Accepts int, int64, and
// float64 without a fractional part.
func (c Config) Int(key string, defaultVal int) int {
	switch v := c.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return defaultVal
}

// Float returns the float64 for key, or defaultVal. Accepts float64, int,
// and int64.
func (c Config) Float(key string, defaultVal float64) float64 {
	switch v := c.data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultVal
}

// Duration returns the duration for key, or defaultVal.
//
// Accepts:
//   - string: parsed with time.ParseDuration
//   - int / int64 / float64: interpreted as seconds
//   - time.Duration: used directly
//
// Flow documents express timeouts as numeric seconds, so the numeric forms
// are the common path.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	switch v := c.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case time.Duration:
		return v
	}
	return defaultVal
}

// StringSlice returns the string slice for key, or defaultVal.
// YAML sequences decode as []any; every element must be a string.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	switch v := c.data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			out = append(out, s)
		}
		return out
	}
	return defaultVal
}

// Any returns the raw value for key, or defaultVal when absent.
func (c Config) Any(key string, defaultVal any) any {
	if v, ok := c.data[key]; ok {
		return v
	}
	return defaultVal
}

// Has reports whether key exists.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw returns the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}

// Flags returns every entry whose value is a string or bool, with bools
// rendered as "true"/"false". The executor seeds these into the execution
// context under the config namespace so step conditions can query them.
func (c Config) Flags() map[string]string {
	flags := make(map[string]string)
	for k, v := range c.data {
		switch val := v.(type) {
		case string:
			flags[k] = val
		case bool:
			flags[k] = fmt.Sprintf("%t", val)
		}
	}
	return flags
}
