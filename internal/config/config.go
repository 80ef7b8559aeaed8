package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the contentiq service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Blocklist  BlocklistConfig  `yaml:"blocklist"`
	Provider   ProviderConfig   `yaml:"provider"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Collection CollectionConfig `yaml:"collection"`
	Moderation ModerationConfig `yaml:"moderation"`
	Content    ContentConfig    `yaml:"content"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimits map[string]Rate  `yaml:"rate_limits"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds service-to-service authentication settings.
// An empty key disables the credential check outside production.
type AuthConfig struct {
	InternalAPIKey string `yaml:"internal_api_key"`
}

// Rate is a per-endpoint sliding-window rate limit.
type Rate struct {
	Limit     int `yaml:"limit"`
	WindowSec int `yaml:"window_sec"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BlocklistConfig holds the blocked-hash lookup settings. An empty DSN
// disables the lookup (hash checks then always report not blocked).
type BlocklistConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	Table       string `yaml:"table"`
}

// ProviderConfig holds the vision/text generation provider settings.
type ProviderConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	FastModel         string `yaml:"fast_model"`
	HighFidelityModel string `yaml:"high_fidelity_model"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	MaxTokens         int    `yaml:"max_tokens"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// CollectionConfig holds the post-embedding collection settings.
type CollectionConfig struct {
	Name            string `yaml:"name"`
	KeyPrefix       string `yaml:"key_prefix"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// ModerationConfig holds moderation engine settings.
type ModerationConfig struct {
	EscalationThreshold float64 `yaml:"escalation_threshold"`
}

// ContentConfig holds content fetching settings.
type ContentConfig struct {
	IPFSGateway     string `yaml:"ipfs_gateway"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// IsProduction reports whether env names the production environment.
func IsProduction(env string) bool {
	return env == "prod"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Blocklist.Table == "" {
		c.Blocklist.Table = "blocked_content_hashes"
	}
	if c.Provider.TimeoutSec <= 0 {
		c.Provider.TimeoutSec = 60
	}
	if c.Provider.MaxTokens <= 0 {
		c.Provider.MaxTokens = 1000
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1024
	}
	if c.Collection.Name == "" {
		c.Collection.Name = "posts"
	}
	if c.Collection.KeyPrefix == "" {
		c.Collection.KeyPrefix = "contentiq:"
	}
	if c.Collection.HNSWM <= 0 {
		c.Collection.HNSWM = 32
	}
	if c.Collection.HNSWEFConstruct <= 0 {
		c.Collection.HNSWEFConstruct = 400
	}
	if c.Moderation.EscalationThreshold <= 0 {
		c.Moderation.EscalationThreshold = 4.0
	}
	if c.Content.IPFSGateway == "" {
		c.Content.IPFSGateway = "https://gateway.pinata.cloud/ipfs"
	}
	if c.Content.FetchTimeoutSec <= 0 {
		c.Content.FetchTimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Provider.FastModel == "" || c.Provider.HighFidelityModel == "" {
		return fmt.Errorf("provider.fast_model and provider.high_fidelity_model are required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	for endpoint, r := range c.RateLimits {
		if r.Limit <= 0 {
			return fmt.Errorf("rate_limits.%s.limit must be positive, got %d", endpoint, r.Limit)
		}
		if r.WindowSec <= 0 {
			return fmt.Errorf("rate_limits.%s.window_sec must be positive, got %d", endpoint, r.WindowSec)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
