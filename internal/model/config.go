package model

import "time"

// Config is the complete matmap configuration
type Config struct {
	Sources      SourcesConfig     `yaml:"sources" mapstructure:"sources"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// SourcesConfig locates the manifest, the data files and the dictionaries.
// Locations may be http(s) URLs, file:// URLs or filesystem paths.
type SourcesConfig struct {
	Manifest    string        `yaml:"manifest" mapstructure:"manifest"`
	DataBase    string        `yaml:"data_base" mapstructure:"data_base"` // Prefix joined with each manifest filename
	Material    string        `yaml:"material_dictionary" mapstructure:"material_dictionary"`
	EOS         string        `yaml:"eos_dictionary" mapstructure:"eos_dictionary"`
	Thermal     string        `yaml:"thermal_dictionary" mapstructure:"thermal_dictionary"`
	FileTimeout time.Duration `yaml:"file_timeout" mapstructure:"file_timeout"` // Per source file
}

// HTTPConfig controls remote fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls caching of fetched documents
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls the source file worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig controls per-host request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LoggingConfig selects the log encoder and level
type LoggingConfig struct {
	Mode  string `yaml:"mode" mapstructure:"mode"` // dev or prod
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Manifest:    "dist/file-list.json",
			DataBase:    "data",
			Material:    "lib/mat.json",
			EOS:         "lib/eos.json",
			Thermal:     "lib/mat_thermal.json",
			FileTimeout: 15 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "matmap/0.3 (+https://github.com/ppiankov/matmap)",
			MaxBodyBytes: 8 << 20,
			MaxRetries:   3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			DiskDir:   "",
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 8,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         10,
		},
		Logging: LoggingConfig{
			Mode:  "dev",
			Level: "info",
		},
	}
}
