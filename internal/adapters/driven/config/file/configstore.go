package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// configFileName is the TOML file within the config directory.
const configFileName = "config.toml"

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Nested tables are flattened to dot-notation keys on load, so callers
// address values as "retrieval.top_k" regardless of file layout.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.quarry/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".quarry")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, configFileName),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

// Get retrieves a raw value and reports whether the key exists.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// GetString returns the value as a string, or "" on a miss or type mismatch.
func (s *ConfigStore) GetString(key string) string {
	if str, ok := lookup[string](s, key); ok {
		return str
	}
	return ""
}

// GetInt returns the value as an int, or 0 on a miss or type mismatch.
// TOML integers arrive as int64 and are narrowed.
func (s *ConfigStore) GetInt(key string) int {
	if v, ok := lookup[int64](s, key); ok {
		return int(v)
	}
	if v, ok := lookup[int](s, key); ok {
		return v
	}
	return 0
}

// GetFloat returns the value as a float64. Integer literals are widened,
// since "top_k = 5" and "lambda = 0.5" both come from the same file.
func (s *ConfigStore) GetFloat(key string) float64 {
	if v, ok := lookup[float64](s, key); ok {
		return v
	}
	if v, ok := lookup[int64](s, key); ok {
		return float64(v)
	}
	if v, ok := lookup[int](s, key); ok {
		return float64(v)
	}
	return 0
}

// GetBool returns the value as a bool, or false on a miss or type mismatch.
func (s *ConfigStore) GetBool(key string) bool {
	v, ok := lookup[bool](s, key)
	return ok && v
}

// lookup fetches a key and asserts it to T.
func lookup[T any](s *ConfigStore, key string) (T, bool) {
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

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes the TOML file atomically (caller must hold lock). A temp
// file plus rename keeps a crash from leaving a half-written config, and
// keeps the restricted permissions since API keys live here.
func (s *ConfigStore) save() error {
	encoded, err := toml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, encoded, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Load reads configuration from the TOML file. A missing file is not an
// error; the store starts empty.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var parsed map[string]any
	if err := toml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}

	s.data = flatten(parsed, "")
	return nil
}

// flatten converts nested tables to dot-notation keys, so
// {"retrieval": {"top_k": 5}} becomes {"retrieval.top_k": 5}.
func flatten(m map[string]any, prefix string) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		nested, ok := value.(map[string]any)
		if !ok {
			out[full] = value
			continue
		}
		for k, v := range flatten(nested, full) {
			out[k] = v
		}
	}
	return out
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
