package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config.yaml"

const defaultResultDB = 1

// Config holds application configuration loaded from YAML.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Limits struct {
		MaxMarkdownBytes  int `yaml:"max_markdown_bytes"`
		MaxReferenceBytes int `yaml:"max_reference_bytes"`
		// BodyLimit is the fiber request body limit. It must leave room for
		// both payloads plus multipart framing.
		BodyLimit int `yaml:"body_limit"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Pandoc PandocConfig `yaml:"pandoc"`

	Cache struct {
		Enabled     bool          `yaml:"enabled"`
		TTL         time.Duration `yaml:"ttl"`
		RedisHost   string        `yaml:"redis_host"`
		// ResultDB defaults to 1 when the key is absent so results and
		// limiter counters do not share a database; an explicit 0 is kept.
		ResultDB    int           `yaml:"redis_result_db"`
		RateLimitDB int           `yaml:"redis_rate_db"`
	} `yaml:"cache"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
		UserLimit         int           `yaml:"user_limit"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Postgres        PostgresConfig `yaml:"postgres"`
		RefreshInterval time.Duration  `yaml:"refresh_interval"`
	} `yaml:"auth"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// PandocConfig describes how the external converter is invoked.
type PandocConfig struct {
	Path       string        `yaml:"path"`
	FromFormat string        `yaml:"from_format"`
	Timeout    time.Duration `yaml:"timeout"`
	// WorkDir is the parent directory for per-request workspaces.
	// Empty means os.TempDir().
	WorkDir string `yaml:"work_dir"`
}

// PostgresConfig holds connection settings for the token database.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a token database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// Default returns a configuration with every field set to its default.
func Default() Config {
	cfg := seeded()
	applyDefaults(&cfg)
	return cfg
}

// seeded presets fields whose zero value is a legal setting. YAML decoding
// leaves them alone unless the key is present.
func seeded() Config {
	var cfg Config
	cfg.Cache.ResultDB = defaultResultDB
	return cfg
}

// Load reads the configuration from CONFIG_PATH (or DefaultPath). A missing
// file at the default location is not an error; defaults and environment
// overrides still apply.
func Load() Config {
	loadDotEnv()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg := Default()
			applyEnv(&cfg)
			mustValidate(cfg)
			return cfg
		}
		path = DefaultPath
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the configuration at path. It panics on
// unreadable files or invalid values.
func LoadFrom(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}

	cfg := seeded()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	mustValidate(cfg)
	return cfg
}

func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	// Existing environment variables win over .env entries.
	_ = godotenv.Load(".env")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}
	if cfg.Limits.MaxMarkdownBytes == 0 {
		cfg.Limits.MaxMarkdownBytes = 2_000_000
	}
	if cfg.Limits.MaxReferenceBytes == 0 {
		cfg.Limits.MaxReferenceBytes = 5_000_000
	}
	if cfg.Limits.BodyLimit == 0 {
		// Fiber rejects larger bodies before the handler sees them, so the
		// default sits above both caps combined.
		cfg.Limits.BodyLimit = 16 * 1024 * 1024
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.MaxSizeMB == 0 {
		cfg.Logger.MaxSizeMB = 50
	}
	if cfg.Logger.MaxBackups == 0 {
		cfg.Logger.MaxBackups = 3
	}
	if cfg.Logger.MaxAgeDays == 0 {
		cfg.Logger.MaxAgeDays = 14
	}
	if cfg.Pandoc.Path == "" {
		cfg.Pandoc.Path = "pandoc"
	}
	if cfg.Pandoc.FromFormat == "" {
		cfg.Pandoc.FromFormat = "markdown+tex_math_dollars+tex_math_single_backslash+raw_tex"
	}
	if cfg.Pandoc.Timeout == 0 {
		cfg.Pandoc.Timeout = 60 * time.Second
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.Auth.RefreshInterval == 0 {
		cfg.Auth.RefreshInterval = time.Minute
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PANDOC_BIN"); v != "" {
		cfg.Pandoc.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if !strings.HasPrefix(v, ":") {
			v = ":" + v
		}
		cfg.Server.Port = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.RedisHost = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
}

func mustValidate(cfg Config) {
	if err := Validate(cfg); err != nil {
		panic("config: " + err.Error())
	}
}

// Validate reports the first invalid setting.
func Validate(cfg Config) error {
	switch {
	case cfg.Limits.MaxMarkdownBytes < 0:
		return fmt.Errorf("limits.max_markdown_bytes must be positive")
	case cfg.Limits.MaxReferenceBytes < 0:
		return fmt.Errorf("limits.max_reference_bytes must be positive")
	case cfg.Limits.BodyLimit < 0:
		return fmt.Errorf("limits.body_limit must be positive")
	case cfg.Pandoc.Timeout < 0:
		return fmt.Errorf("pandoc.timeout must be positive")
	case cfg.Cache.TTL < 0:
		return fmt.Errorf("cache.ttl must be positive")
	case cfg.RateLimiter.Interval < 0:
		return fmt.Errorf("rate_limiter.interval must be positive")
	case cfg.RateLimiter.UserLimit < 0:
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	case cfg.Auth.RefreshInterval < 0:
		return fmt.Errorf("auth.refresh_interval must be positive")
	}
	return nil
}
