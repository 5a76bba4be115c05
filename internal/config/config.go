// Package config loads the client configuration from YAML with environment
// variable overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tradewire client.
type Config struct {
	API     API     `yaml:"api"`
	Session Session `yaml:"session"`
	Stream  Stream  `yaml:"stream"`
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
}

// API holds the venue endpoint and credentials.
type API struct {
	URL             string `yaml:"url"`
	Secret          string `yaml:"secret"`
	Plaintext       bool   `yaml:"plaintext"` // skip TLS, local test servers only
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Session controls the credential refresh loop.
type Session struct {
	Lifetime      time.Duration `yaml:"lifetime"`       // token validity window
	RefreshMargin time.Duration `yaml:"refresh_margin"` // refresh this long before expiry
	RetryInterval time.Duration `yaml:"retry_interval"` // pause between failed refreshes
}

// Stream controls subscription retry, fan-out, and keep-alive behaviour.
type Stream struct {
	RetryLimit        int           `yaml:"retry_limit"`
	HandlerWorkers    int           `yaml:"handler_workers"`
	QueueSize         int           `yaml:"queue_size"`
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`
	OnFailure         string        `yaml:"on_failure"` // "abandon" or "close"
}

// Storage holds paths for the optional capture stores.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration matching the venue's documented limits:
// 15-minute session tokens refreshed 10 seconds early, three stream retries,
// six handler workers, a 20-slot command queue, and a 120-second keep-alive.
func Default() *Config {
	return &Config{
		API: API{
			URL:             "api.finam.ru:443",
			RateLimitPerMin: 200,
		},
		Session: Session{
			Lifetime:      15 * time.Minute,
			RefreshMargin: 10 * time.Second,
			RetryInterval: 10 * time.Second,
		},
		Stream: Stream{
			RetryLimit:        3,
			HandlerWorkers:    6,
			QueueSize:         20,
			KeepAliveInterval: 120 * time.Second,
			OnFailure:         "abandon",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of the
// defaults, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// FromEnv returns the default configuration with environment overrides
// applied, for callers that don't ship a config file.
func FromEnv() *Config {
	cfg := Default()
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEWIRE_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("TRADEWIRE_SECRET"); v != "" {
		cfg.API.Secret = v
	}
	if v := os.Getenv("TRADEWIRE_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.RateLimitPerMin = n
		}
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
