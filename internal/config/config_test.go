package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/bookmarks/internal/config"
)

var envKeys = []string{
	"FETCH_TIMEOUT", "FETCH_RETRIES", "FETCH_RETRY_BACKOFF", "FETCH_USER_AGENT",
	"FETCH_MAX_BODY_BYTES", "FETCH_RESPECT_ROBOTS", "FETCH_ROBOTS_CACHE_TTL",
	"EMBEDDING_PROVIDER", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL", "EMBEDDING_API_KEY",
	"EMBEDDING_DIMENSION", "EMBEDDING_MAX_CHARS", "EMBEDDING_TIMEOUT", "EMBEDDING_RETRIES",
	"EMBEDDING_RETRY_BACKOFF", "STORAGE_DATA_DIR", "STORAGE_BOOKMARKS_FILE",
	"STORAGE_ENRICHED_FILE", "STORAGE_EMBEDDINGS_FILE", "SEARCH_DEFAULT_LIMIT",
	"API_ADDR", "API_REQUEST_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()

	assert.Equal(t, 10*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, 1, cfg.Fetcher.Retries)
	assert.Equal(t, int64(5<<20), cfg.Fetcher.MaxBodyBytes)
	assert.False(t, cfg.Fetcher.RespectRobots)

	assert.Equal(t, "tei", cfg.Embedding.Provider)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", cfg.Embedding.Model)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, 512, cfg.Embedding.MaxChars)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 1, cfg.Embedding.Retries)

	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "bookmarks.json", cfg.Storage.BookmarksFile)
	assert.Equal(t, "bookmarks_enriched.json", cfg.Storage.EnrichedFile)
	assert.Equal(t, "bookmarks_embeddings.json", cfg.Storage.EmbeddingsFile)

	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)

	envVars := map[string]string{
		"FETCH_TIMEOUT":        "3s",
		"FETCH_RETRIES":        "0",
		"FETCH_RESPECT_ROBOTS": "true",
		"EMBEDDING_PROVIDER":   "ollama",
		"EMBEDDING_MODEL":      "nomic-embed-text",
		"EMBEDDING_DIMENSION":  "768",
		"EMBEDDING_MAX_CHARS":  "1024",
		"STORAGE_DATA_DIR":     "/tmp/bookmarks",
		"SEARCH_DEFAULT_LIMIT": "10",
		"LOG_FORMAT":           "json",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg := config.Load()

	assert.Equal(t, 3*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, 0, cfg.Fetcher.Retries)
	assert.True(t, cfg.Fetcher.RespectRobots)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 1024, cfg.Embedding.MaxChars)
	assert.Equal(t, "/tmp/bookmarks", cfg.Storage.DataDir)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
fetcher:
  timeout: 4s
  respect_robots: true
embedding:
  provider: openai
  model: text-embedding-3-small
  dimension: 1536
storage:
  data_dir: /srv/bookmarks
search:
  default_limit: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.Fetcher.Timeout)
	assert.True(t, cfg.Fetcher.RespectRobots)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "/srv/bookmarks", cfg.Storage.DataDir)
	assert.Equal(t, 8, cfg.Search.DefaultLimit)

	// untouched keys keep their defaults
	assert.Equal(t, 512, cfg.Embedding.MaxChars)
	assert.Equal(t, "bookmarks.json", cfg.Storage.BookmarksFile)
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  default_limit: 8\n"), 0644))
	t.Setenv("SEARCH_DEFAULT_LIMIT", "3")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.DefaultLimit)
}

func TestLoadConfig_ClampsNegativeRetries(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_RETRIES", "-1")
	t.Setenv("EMBEDDING_RETRIES", "-3")

	cfg := config.Load()
	assert.Equal(t, 0, cfg.Fetcher.Retries)
	assert.Equal(t, 0, cfg.Embedding.Retries)
}

func TestLoadConfig_EmbeddingDimension(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected int
	}{
		{"default tei model", map[string]string{}, 384},
		{"ollama locks to first vector", map[string]string{"EMBEDDING_PROVIDER": "ollama", "EMBEDDING_MODEL": "nomic-embed-text"}, 0},
		{"openai locks to first vector", map[string]string{"EMBEDDING_PROVIDER": "openai"}, 0},
		{"tei with another model", map[string]string{"EMBEDDING_MODEL": "BAAI/bge-base-en-v1.5"}, 0},
		{"explicit dimension wins", map[string]string{"EMBEDDING_PROVIDER": "openai", "EMBEDDING_DIMENSION": "1536"}, 1536},
		{"negative dimension", map[string]string{"EMBEDDING_PROVIDER": "ollama", "EMBEDDING_DIMENSION": "-5"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			assert.Equal(t, tt.expected, config.Load().Embedding.Dimension)
		})
	}
}

func TestLoadFile_ProviderWithoutDimension(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  provider: ollama\n  model: nomic-embed-text\n"), 0644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Embedding.Dimension)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0644))
	_, err = config.LoadFile(path)
	assert.Error(t, err)
}

func TestGetStringEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue string
		expected     string
	}{
		{"Existing env var", "TEST_STRING", "test_value", "default", "test_value"},
		{"Non-existing env var", "NON_EXISTENT", "", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)
			assert.Equal(t, tt.expected, config.GetStringEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetIntEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		expected     int
	}{
		{"Valid int", "42", 10, 42},
		{"Invalid int", "not_a_number", 10, 10},
		{"Negative int", "-5", 10, -5},
		{"Zero", "0", 10, 0},
		{"Unset", "", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			assert.Equal(t, tt.expected, config.GetIntEnv("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"True string", "true", false, true},
		{"False string", "false", true, false},
		{"1 (true)", "1", false, true},
		{"Invalid bool", "invalid", true, true},
		{"Unset", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			assert.Equal(t, tt.expected, config.GetBoolEnv("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetDurationEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"Seconds", "5s", time.Second, 5 * time.Second},
		{"Combined", "1h30m", time.Second, 90 * time.Minute},
		{"Invalid duration", "invalid", 5 * time.Second, 5 * time.Second},
		{"Unset", "", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			assert.Equal(t, tt.expected, config.GetDurationEnv("TEST_DURATION", tt.defaultValue))
		})
	}
}
