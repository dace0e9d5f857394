// Package config loads engine configuration from defaults, an optional
// YAML file, and environment variable overrides, in that order.
package config

import (
	"fmt"
	"time"
)

// Config is the full waverun configuration.
type Config struct {
	// Engine controls the workflow executor.
	Engine EngineConfig `yaml:"engine"`

	// Chunking sets the default fixed-window chunking parameters.
	Chunking ChunkingConfig `yaml:"chunking"`

	// LLM configures the completion and embedding providers.
	LLM LLMConfig `yaml:"llm"`

	// Redis configures the optional Redis-backed vector store.
	Redis RedisConfig `yaml:"redis"`

	// Database configures the optional relational query runner.
	Database DatabaseConfig `yaml:"database"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// EngineConfig controls wave execution.
type EngineConfig struct {
	// MaxConcurrency bounds how many nodes of one wave run at once.
	// Zero means unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`
	// NodeTimeout is the per-node execution deadline.
	NodeTimeout time.Duration `yaml:"node_timeout"`
}

// ChunkingConfig sets document chunking defaults.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// LLMConfig configures model providers.
type LLMConfig struct {
	// Model is the default completion model.
	Model string `yaml:"model"`
	// Encoding names the tokenizer encoding used for prompt-size
	// estimates.
	Encoding string `yaml:"encoding"`
	// RequestsPerSecond rate-limits provider calls. Zero disables the
	// limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the limiter burst size.
	Burst int `yaml:"burst"`
}

// RedisConfig configures the Redis vector store backend.
type RedisConfig struct {
	// Enabled switches the retrieval index from in-memory to Redis.
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Namespace prefixes index keys so executions stay separable.
	Namespace string `yaml:"namespace"`
}

// DatabaseConfig configures the query runner used by database_query
// nodes.
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file and no
// environment overrides are present.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxConcurrency: 8,
			NodeTimeout:    2 * time.Minute,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		LLM: LLMConfig{
			Model:    "gpt-4o-mini",
			Encoding: "cl100k_base",
			Burst:    1,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			Namespace: "default",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxConcurrency < 0 {
		return fmt.Errorf("engine.max_concurrency must be non-negative")
	}
	if c.Engine.NodeTimeout < 0 {
		return fmt.Errorf("engine.node_timeout must be non-negative")
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive")
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size)")
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm.requests_per_second must be non-negative")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when the database is enabled")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}
