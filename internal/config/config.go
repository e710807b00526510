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

// Config holds the clustra service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Drag       DragConfig       `yaml:"drag"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the optional embedding-cache store settings.
// No addresses means no cache: every run re-embeds its keywords.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BudgetConfig holds embedding token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"`
	Provider   string       `yaml:"provider"`
	BatchSize  int          `yaml:"batch_size"`
	MaxRetries int          `yaml:"max_retries"`
	Budget     BudgetConfig `yaml:"budget"`
}

// ClassifierConfig holds the category classifier settings.
type ClassifierConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	MinWords        int    `yaml:"min_words"`         // texts below this word count carry no signal
	RateLimitMS     int    `yaml:"rate_limit_ms"`     // minimum delay between classifier calls
	BreakerFailures int    `yaml:"breaker_failures"`  // consecutive failures before the breaker opens
	BreakerResetSec int    `yaml:"breaker_reset_sec"` // open-state duration before a probe
}

// ClusteringConfig holds clustering policy knobs.
type ClusteringConfig struct {
	Tightness        float64 `yaml:"tightness"`  // cosine-distance merge cutoff, (0,1)
	MinVolume        int64   `yaml:"min_volume"` // records below this volume are dropped
	PrimaryCount     int     `yaml:"primary_count"`
	SecondaryCount   int     `yaml:"secondary_count"` // cumulative cut: secondary tier ends here
	OverlapTopN      int     `yaml:"overlap_top_n"`
	OverlapThreshold float64 `yaml:"overlap_threshold"`
	MaxTopEntities   int     `yaml:"max_top_entities"`
}

// DragConfig holds drag-optimization policy knobs.
type DragConfig struct {
	MaxIterations int     `yaml:"max_iterations"` // 0 = bounded by item count
	MinGain       float64 `yaml:"min_gain"`       // smallest confidence increase worth locking in
	MinWords      int     `yaml:"min_words"`      // candidate texts below this word count are skipped
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Cluster and drag runs hold the connection open for many provider
		// round-trips, so the write timeout is generous.
		c.HTTP.WriteTimeoutSec = 600
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 100
	}
	if c.Embedding.MaxRetries <= 0 {
		c.Embedding.MaxRetries = 3
	}
	if c.Classifier.MinWords <= 0 {
		c.Classifier.MinWords = 20
	}
	if c.Classifier.RateLimitMS <= 0 {
		c.Classifier.RateLimitMS = 50
	}
	if c.Classifier.BreakerFailures <= 0 {
		c.Classifier.BreakerFailures = 5
	}
	if c.Classifier.BreakerResetSec <= 0 {
		c.Classifier.BreakerResetSec = 30
	}
	if c.Clustering.Tightness <= 0 {
		c.Clustering.Tightness = 0.5
	}
	if c.Clustering.PrimaryCount <= 0 {
		c.Clustering.PrimaryCount = 3
	}
	if c.Clustering.SecondaryCount <= 0 {
		c.Clustering.SecondaryCount = 10
	}
	if c.Clustering.OverlapTopN <= 0 {
		c.Clustering.OverlapTopN = 10
	}
	if c.Clustering.OverlapThreshold <= 0 {
		c.Clustering.OverlapThreshold = 0.8
	}
	if c.Clustering.MaxTopEntities <= 0 {
		c.Clustering.MaxTopEntities = 5
	}
	if c.Drag.MinWords <= 0 {
		c.Drag.MinWords = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Clustering.Tightness <= 0 || c.Clustering.Tightness >= 1 {
		return fmt.Errorf("clustering.tightness must be in (0,1), got %f", c.Clustering.Tightness)
	}
	if c.Clustering.MinVolume < 0 {
		return fmt.Errorf("clustering.min_volume must be >= 0, got %d", c.Clustering.MinVolume)
	}
	if c.Clustering.SecondaryCount < c.Clustering.PrimaryCount {
		return fmt.Errorf("clustering.secondary_count (%d) must be >= primary_count (%d)",
			c.Clustering.SecondaryCount, c.Clustering.PrimaryCount)
	}
	if c.Clustering.OverlapThreshold > 1 {
		return fmt.Errorf("clustering.overlap_threshold must be <= 1, got %f", c.Clustering.OverlapThreshold)
	}
	if c.Drag.MinGain < 0 {
		return fmt.Errorf("drag.min_gain must be >= 0, got %f", c.Drag.MinGain)
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Budget.Action)
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
