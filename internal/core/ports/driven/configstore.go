package driven

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
// Keys use dot notation to address nested sections ("retrieval.top_k").
type ConfigStore interface {
	// Get retrieves a raw value and reports whether the key exists.
	Get(key string) (any, bool)

	// GetString returns the value as a string, or "" when the key is
	// missing or holds a different type.
	GetString(key string) string

	// GetInt returns the value as an int, or 0 when the key is missing
	// or holds a different type.
	GetInt(key string) int

	// GetFloat returns the value as a float64. Integer values are
	// widened; anything else yields 0.
	GetFloat(key string) float64

	// GetBool returns the value as a bool, or false when the key is
	// missing or holds a different type.
	GetBool(key string) bool

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage, replacing in-memory state.
	Load() error

	// Path returns the backing file path, for display to the user.
	Path() string
}
