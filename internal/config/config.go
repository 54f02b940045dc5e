package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// The default tei model and the size of the vectors it produces
const (
	DefaultEmbeddingModel     = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultEmbeddingDimension = 384
)

// Config holds the configuration for the bookmark enrichment service
type Config struct {
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Search    SearchConfig    `yaml:"search"`
	API       APIConfig       `yaml:"api"`
	Log       LogConfig       `yaml:"log"`
}

// FetcherConfig controls outbound page fetches
type FetcherConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	Retries        int           `yaml:"retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	UserAgent      string        `yaml:"user_agent"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	RespectRobots  bool          `yaml:"respect_robots"`
	RobotsCacheTTL time.Duration `yaml:"robots_cache_ttl"`
}

// EmbeddingConfig selects and bounds the embedding service
type EmbeddingConfig struct {
	Provider     string        `yaml:"provider"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	Dimension    int           `yaml:"dimension"`
	MaxChars     int           `yaml:"max_chars"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// StorageConfig holds the file locations used by the store
type StorageConfig struct {
	DataDir        string `yaml:"data_dir"`
	BookmarksFile  string `yaml:"bookmarks_file"`
	EnrichedFile   string `yaml:"enriched_file"`
	EmbeddingsFile string `yaml:"embeddings_file"`
}

// SearchConfig holds query defaults
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	cfg := defaults()
	cfg.resolve()
	return cfg
}

func defaults() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Timeout:        10 * time.Second,
			Retries:        1,
			RetryBackoff:   500 * time.Millisecond,
			UserAgent:      "Bookmark-Enricher/1.0",
			MaxBodyBytes:   5 << 20,
			RespectRobots:  false,
			RobotsCacheTTL: 24 * time.Hour,
		},
		Embedding: EmbeddingConfig{
			Provider:     "tei",
			BaseURL:      "",
			Model:        DefaultEmbeddingModel,
			MaxChars:     512,
			Timeout:      30 * time.Second,
			Retries:      1,
			RetryBackoff: time.Second,
		},
		Storage: StorageConfig{
			DataDir:        "./data",
			BookmarksFile:  "bookmarks.json",
			EnrichedFile:   "bookmarks_enriched.json",
			EmbeddingsFile: "bookmarks_embeddings.json",
		},
		Search: SearchConfig{
			DefaultLimit: 5,
		},
		API: APIConfig{
			Addr:           ":8080",
			RequestTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from environment variables with defaults.
// A .env file in the working directory is read first if present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := defaults()
	cfg.applyEnv()
	cfg.resolve()
	return cfg
}

// LoadFile reads a YAML config file on top of the defaults. Environment
// variables still take precedence over values from the file.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.resolve()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Fetcher.Timeout = GetDurationEnv("FETCH_TIMEOUT", c.Fetcher.Timeout)
	c.Fetcher.Retries = GetIntEnv("FETCH_RETRIES", c.Fetcher.Retries)
	c.Fetcher.RetryBackoff = GetDurationEnv("FETCH_RETRY_BACKOFF", c.Fetcher.RetryBackoff)
	c.Fetcher.UserAgent = GetStringEnv("FETCH_USER_AGENT", c.Fetcher.UserAgent)
	c.Fetcher.MaxBodyBytes = int64(GetIntEnv("FETCH_MAX_BODY_BYTES", int(c.Fetcher.MaxBodyBytes)))
	c.Fetcher.RespectRobots = GetBoolEnv("FETCH_RESPECT_ROBOTS", c.Fetcher.RespectRobots)
	c.Fetcher.RobotsCacheTTL = GetDurationEnv("FETCH_ROBOTS_CACHE_TTL", c.Fetcher.RobotsCacheTTL)

	c.Embedding.Provider = GetStringEnv("EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.BaseURL = GetStringEnv("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Model = GetStringEnv("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.APIKey = GetStringEnv("EMBEDDING_API_KEY", c.Embedding.APIKey)
	c.Embedding.Dimension = GetIntEnv("EMBEDDING_DIMENSION", c.Embedding.Dimension)
	c.Embedding.MaxChars = GetIntEnv("EMBEDDING_MAX_CHARS", c.Embedding.MaxChars)
	c.Embedding.Timeout = GetDurationEnv("EMBEDDING_TIMEOUT", c.Embedding.Timeout)
	c.Embedding.Retries = GetIntEnv("EMBEDDING_RETRIES", c.Embedding.Retries)
	c.Embedding.RetryBackoff = GetDurationEnv("EMBEDDING_RETRY_BACKOFF", c.Embedding.RetryBackoff)

	c.Storage.DataDir = GetStringEnv("STORAGE_DATA_DIR", c.Storage.DataDir)
	c.Storage.BookmarksFile = GetStringEnv("STORAGE_BOOKMARKS_FILE", c.Storage.BookmarksFile)
	c.Storage.EnrichedFile = GetStringEnv("STORAGE_ENRICHED_FILE", c.Storage.EnrichedFile)
	c.Storage.EmbeddingsFile = GetStringEnv("STORAGE_EMBEDDINGS_FILE", c.Storage.EmbeddingsFile)

	c.Search.DefaultLimit = GetIntEnv("SEARCH_DEFAULT_LIMIT", c.Search.DefaultLimit)

	c.API.Addr = GetStringEnv("API_ADDR", c.API.Addr)
	c.API.RequestTimeout = GetDurationEnv("API_REQUEST_TIMEOUT", c.API.RequestTimeout)

	c.Log.Level = GetStringEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetStringEnv("LOG_FORMAT", c.Log.Format)
}

// resolve fills derived defaults and clamps values that make no sense.
// A dimension of 0 means the provider locks to the first vector it sees;
// only the default tei model has a known size.
func (c *Config) resolve() {
	if c.Fetcher.Retries < 0 {
		c.Fetcher.Retries = 0
	}
	if c.Embedding.Retries < 0 {
		c.Embedding.Retries = 0
	}
	if c.Embedding.Dimension < 0 {
		c.Embedding.Dimension = 0
	}
	if c.Embedding.Dimension == 0 &&
		(c.Embedding.Provider == "" || c.Embedding.Provider == "tei") &&
		c.Embedding.Model == DefaultEmbeddingModel {
		c.Embedding.Dimension = DefaultEmbeddingDimension
	}
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
