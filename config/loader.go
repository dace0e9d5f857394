package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds a Config from defaults, an optional YAML file, and
// environment overrides, lowest precedence first.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with the WAVERUN environment prefix and no
// config file.
func NewLoader() *Loader {
	return &Loader{envPrefix: "WAVERUN"}
}

// WithConfigPath sets the YAML file to load. A missing file is only an
// error when a path was explicitly set.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides individual fields from <PREFIX>_SECTION_FIELD
// variables.
func (l *Loader) applyEnv(cfg *Config) error {
	var err error

	setInt := func(key string, dst *int) {
		if err != nil {
			return
		}
		if raw, ok := l.env(key); ok {
			v, parseErr := strconv.Atoi(raw)
			if parseErr != nil {
				err = fmt.Errorf("%s: %w", l.envKey(key), parseErr)
				return
			}
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64) {
		if err != nil {
			return
		}
		if raw, ok := l.env(key); ok {
			v, parseErr := strconv.ParseFloat(raw, 64)
			if parseErr != nil {
				err = fmt.Errorf("%s: %w", l.envKey(key), parseErr)
				return
			}
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if err != nil {
			return
		}
		if raw, ok := l.env(key); ok {
			v, parseErr := strconv.ParseBool(raw)
			if parseErr != nil {
				err = fmt.Errorf("%s: %w", l.envKey(key), parseErr)
				return
			}
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if err != nil {
			return
		}
		if raw, ok := l.env(key); ok {
			v, parseErr := time.ParseDuration(raw)
			if parseErr != nil {
				err = fmt.Errorf("%s: %w", l.envKey(key), parseErr)
				return
			}
			*dst = v
		}
	}
	setString := func(key string, dst *string) {
		if raw, ok := l.env(key); ok {
			*dst = raw
		}
	}

	setInt("ENGINE_MAX_CONCURRENCY", &cfg.Engine.MaxConcurrency)
	setDuration("ENGINE_NODE_TIMEOUT", &cfg.Engine.NodeTimeout)

	setInt("CHUNKING_CHUNK_SIZE", &cfg.Chunking.ChunkSize)
	setInt("CHUNKING_CHUNK_OVERLAP", &cfg.Chunking.ChunkOverlap)

	setString("LLM_MODEL", &cfg.LLM.Model)
	setString("LLM_ENCODING", &cfg.LLM.Encoding)
	setFloat("LLM_REQUESTS_PER_SECOND", &cfg.LLM.RequestsPerSecond)
	setInt("LLM_BURST", &cfg.LLM.Burst)

	setBool("REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("REDIS_DB", &cfg.Redis.DB)
	setString("REDIS_NAMESPACE", &cfg.Redis.Namespace)

	setBool("DATABASE_ENABLED", &cfg.Database.Enabled)
	setString("DATABASE_DRIVER", &cfg.Database.Driver)
	setString("DATABASE_DSN", &cfg.Database.DSN)

	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)

	return err
}

func (l *Loader) env(key string) (string, bool) {
	return os.LookupEnv(l.envKey(key))
}

func (l *Loader) envKey(key string) string {
	return l.envPrefix + "_" + key
}
