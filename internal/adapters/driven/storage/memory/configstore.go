package memory

import (
	"sync"

	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory implementation of driven.ConfigStore for testing.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

// Get retrieves a raw value and reports whether the key exists.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString returns the value as a string, or "" on a miss or type mismatch.
func (s *ConfigStore) GetString(key string) string {
	v, _ := get[string](s, key)
	return v
}

// GetInt returns the value as an int, widening int64 and truncating float64.
func (s *ConfigStore) GetInt(key string) int {
	if v, ok := get[int](s, key); ok {
		return v
	}
	if v, ok := get[int64](s, key); ok {
		return int(v)
	}
	if v, ok := get[float64](s, key); ok {
		return int(v)
	}
	return 0
}

// GetFloat returns the value as a float64, widening integer values.
func (s *ConfigStore) GetFloat(key string) float64 {
	if v, ok := get[float64](s, key); ok {
		return v
	}
	if v, ok := get[int](s, key); ok {
		return float64(v)
	}
	if v, ok := get[int64](s, key); ok {
		return float64(v)
	}
	return 0
}

// GetBool returns the value as a bool, or false on a miss or type mismatch.
func (s *ConfigStore) GetBool(key string) bool {
	v, _ := get[bool](s, key)
	return v
}

func get[T any](s *ConfigStore, key string) (T, bool) {
	var zero T
	raw, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save is a no-op for the in-memory store.
func (s *ConfigStore) Save() error { return nil }

// Load is a no-op for the in-memory store.
func (s *ConfigStore) Load() error { return nil }

// Path returns an empty path as there is no backing file.
func (s *ConfigStore) Path() string { return "" }
