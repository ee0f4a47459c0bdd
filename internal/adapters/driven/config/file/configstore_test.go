package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".quarry", "config.toml"), store.Path())

	_ = os.Remove(store.Path())
}

func TestNewConfigStore_CreatesNestedDirs(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")

	store, err := NewConfigStore(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(nested, "config.toml"), store.Path())

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_BadDir(t *testing.T) {
	store, err := NewConfigStore("/dev/null/not-a-dir")
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("{{{not toml"), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedAccessors(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Set("retrieval.top_k", 5))
	require.NoError(t, store.Set("retrieval.mmr_lambda", 0.6))
	require.NoError(t, store.Set("cache.enabled", true))

	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.Equal(t, 5, store.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.6, store.GetFloat("retrieval.mmr_lambda"), 0.00001)
	assert.True(t, store.GetBool("cache.enabled"))
}

func TestConfigStore_TypedAccessors_ZeroValues(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Set("retrieval.top_k", 5))

	tests := []struct {
		name  string
		check func(t *testing.T)
	}{
		{"missing string", func(t *testing.T) {
			assert.Empty(t, store.GetString("no.such.key"))
		}},
		{"missing int", func(t *testing.T) {
			assert.Zero(t, store.GetInt("no.such.key"))
		}},
		{"missing float", func(t *testing.T) {
			assert.Zero(t, store.GetFloat("no.such.key"))
		}},
		{"missing bool", func(t *testing.T) {
			assert.False(t, store.GetBool("no.such.key"))
		}},
		{"string read as int", func(t *testing.T) {
			assert.Zero(t, store.GetInt("embedding.model"))
		}},
		{"string read as bool", func(t *testing.T) {
			assert.False(t, store.GetBool("embedding.model"))
		}},
		{"int read as string", func(t *testing.T) {
			assert.Empty(t, store.GetString("retrieval.top_k"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.check)
	}
}

func TestConfigStore_GetInt_Int64(t *testing.T) {
	store := newTestConfigStore(t)

	// Values loaded from TOML arrive as int64.
	store.mu.Lock()
	store.data["retrieval.rerank_candidates"] = int64(30)
	store.mu.Unlock()

	assert.Equal(t, 30, store.GetInt("retrieval.rerank_candidates"))
}

func TestConfigStore_GetFloat_IntegerLiteral(t *testing.T) {
	store := newTestConfigStore(t)

	// "threshold = 1" in TOML is an integer but still a valid float setting.
	require.NoError(t, store.Set("retrieval.similarity_threshold", 1))
	assert.InDelta(t, 1.0, store.GetFloat("retrieval.similarity_threshold"), 0.00001)
}

func TestConfigStore_Get_Missing(t *testing.T) {
	store := newTestConfigStore(t)

	val, ok := store.Get("vector_store.provider")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_SetOverwrites(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("retrieval.strategy", "dense"))
	require.NoError(t, store.Set("retrieval.strategy", "hybrid"))
	assert.Equal(t, "hybrid", store.GetString("retrieval.strategy"))
}

func TestConfigStore_SetRejectsUnmarshallable(t *testing.T) {
	store := newTestConfigStore(t)

	err := store.Set("bad", make(chan int))
	assert.Error(t, err)
}

func TestConfigStore_SetPersistsImmediately(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("embedding.provider", "ollama"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_ReloadAcrossInstances(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("retrieval.top_k", 10))
	require.NoError(t, store.Set("retrieval.mmr_lambda", 0.7))
	require.NoError(t, store.Set("cache.enabled", false))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "openai", reopened.GetString("embedding.provider"))
	assert.Equal(t, 10, reopened.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.7, reopened.GetFloat("retrieval.mmr_lambda"), 0.00001)

	val, ok := reopened.Get("cache.enabled")
	assert.True(t, ok)
	assert.Equal(t, false, val)
}

func TestConfigStore_LoadFlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := "[retrieval]\ntop_k = 8\nstrategy = \"sparse\"\n\n[vector_store]\nprovider = \"qdrant\"\n"
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 8, store.GetInt("retrieval.top_k"))
	assert.Equal(t, "sparse", store.GetString("retrieval.strategy"))
	assert.Equal(t, "qdrant", store.GetString("vector_store.provider"))
}

func TestConfigStore_LoadEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()

	for _, content := range []string{"", "# only a comment\n\n"} {
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600)
		require.NoError(t, err)

		store, err := NewConfigStore(tmpDir)
		require.NoError(t, err)

		_, ok := store.Get("embedding.provider")
		assert.False(t, ok)
	}
}

func TestConfigStore_LoadErrors(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("embedding.provider", "ollama"))

	t.Run("corrupt content", func(t *testing.T) {
		require.NoError(t, os.WriteFile(store.Path(), []byte("][ bad"), 0600))
		assert.Error(t, store.Load())
	})

	t.Run("unreadable file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(store.Path(), []byte("ok = true\n"), 0600))
		require.NoError(t, os.Chmod(store.Path(), 0000))
		defer os.Chmod(store.Path(), 0600)

		err := store.Load()
		assert.Error(t, err)
		assert.False(t, os.IsNotExist(err))
	})
}

func TestConfigStore_SaveExplicit(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.mu.Lock()
	store.data["relevance.model"] = "qwen2.5"
	store.mu.Unlock()

	require.NoError(t, store.Save())

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", reopened.GetString("relevance.model"))
}

func TestConfigStore_SaveFailsOnDirectoryPath(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("a", "b"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("c", "d"))
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := newTestConfigStore(t)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			key := "worker" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetString(key)
			_, _ = store.Get(key)
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestConfigStore_WatchReloadsOnWrite(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("key", "before"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() {
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register
	time.Sleep(100 * time.Millisecond)

	// Overwrite the file behind the store's back
	err := os.WriteFile(store.Path(), []byte("key = \"after\"\n"), 0600)
	require.NoError(t, err)

	select {
	case <-reloaded:
	case <-ctx.Done():
		t.Fatal("watcher never reloaded")
	}
	assert.Equal(t, "after", store.GetString("key"))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
