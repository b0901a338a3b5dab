package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeConfig holds the configuration of a search node.
type NodeConfig struct {
	Node    NodeSection   `yaml:"node"`
	HTTP    HTTPConfig    `yaml:"http"`
	Search  SearchConfig  `yaml:"search"`
	Index   IndexDefaults `yaml:"index"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Logging LoggingConfig `yaml:"logging"`
}

// NodeSection identifies the node.
type NodeSection struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"` // local, dev, prod
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int     `yaml:"port"`
	MaxBodyBytes    int64   `yaml:"max_body_bytes"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"` // 0 disables rate limiting
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	ReadTimeoutSec  int     `yaml:"read_timeout_sec"`
	WriteTimeoutSec int     `yaml:"write_timeout_sec"`
	ShutdownSec     int     `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds search request defaults.
type SearchConfig struct {
	DefaultSize      int `yaml:"default_size"`
	MaxSize          int `yaml:"max_size"`
	DefaultFacetSize int `yaml:"default_facet_size"`
}

// IndexDefaults holds defaults applied to newly created indexes.
type IndexDefaults struct {
	DefaultShards int `yaml:"default_shards"`
}

// JobsConfig holds async job settings.
type JobsConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
	RetentionMin  int `yaml:"retention_minutes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// DefaultNodeConfig returns a configuration with every default applied.
func DefaultNodeConfig() NodeConfig {
	var cfg NodeConfig
	cfg.ApplyDefaults()
	return cfg
}

// LoadNodeConfig reads the node configuration from a YAML file.
// ${VAR} and ${VAR:-default} references are expanded from the environment.
func LoadNodeConfig(path string) (NodeConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return NodeConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseNodeConfig(data)
}

// ParseNodeConfig parses, defaults and validates YAML node configuration.
func ParseNodeConfig(data []byte) (NodeConfig, error) {
	data = expandEnvVars(data)

	var cfg NodeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return NodeConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return NodeConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *NodeConfig) ApplyDefaults() {
	if c.Node.Name == "" {
		c.Node.Name = "node-1"
	}
	if c.Node.Env == "" {
		c.Node.Env = "local"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 50 << 20
	}
	if c.HTTP.RateLimitRPS > 0 && c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = int(c.HTTP.RateLimitRPS)
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Search.DefaultSize <= 0 {
		c.Search.DefaultSize = 10
	}
	if c.Search.MaxSize <= 0 {
		c.Search.MaxSize = 10000
	}
	if c.Search.DefaultFacetSize <= 0 {
		c.Search.DefaultFacetSize = 10
	}
	if c.Index.DefaultShards <= 0 {
		c.Index.DefaultShards = DefaultNumberOfShards
	}
	if c.Jobs.MaxConcurrent <= 0 {
		c.Jobs.MaxConcurrent = 4
	}
	if c.Jobs.RetentionMin <= 0 {
		c.Jobs.RetentionMin = 60
	}
}

// Validate checks the configuration for correctness.
func (c *NodeConfig) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps must not be negative, got %v", c.HTTP.RateLimitRPS)
	}
	if c.Search.DefaultSize > c.Search.MaxSize {
		return fmt.Errorf("search.default_size (%d) exceeds search.max_size (%d)", c.Search.DefaultSize, c.Search.MaxSize)
	}
	if c.Index.DefaultShards > MaxNumberOfShards {
		return fmt.Errorf("index.default_shards must be at most %d, got %d", MaxNumberOfShards, c.Index.DefaultShards)
	}
	switch c.Node.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("node.env must be one of local, dev, prod, got %q", c.Node.Env)
	}
	return nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
