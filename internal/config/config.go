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

// Config holds the clipdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
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

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// SearchConfig holds the deployment defaults for search weighting. Callers
// can override any of these per request.
type SearchConfig struct {
	FullTextWeight float64       `yaml:"fulltext_weight"`
	SummaryWeight  float64       `yaml:"summary_weight"`
	KeywordWeight  float64       `yaml:"keyword_weight"`
	RRFK           int           `yaml:"rrf_k"`
	Similar        SimilarConfig `yaml:"similar"`
}

// SimilarConfig holds the deployment defaults for similar-clip scoring.
type SimilarConfig struct {
	SummaryWeight    float64   `yaml:"summary_weight"`
	KeywordWeight    float64   `yaml:"keyword_weight"`
	ThumbnailWeights []float64 `yaml:"thumbnail_weights"`
	TextFactor       float64   `yaml:"text_factor"`
	VisualFactor     float64   `yaml:"visual_factor"`
}

// EmbeddingConfig holds the two vectorizer spaces. The text vectorizer feeds
// summary/keyword embeddings, the visual one feeds thumbnail embeddings.
// Either can be left unconfigured; the affected signals then rely on
// pipeline-supplied vectors only.
type EmbeddingConfig struct {
	Text   VectorizerConfig `yaml:"text"`
	Visual VectorizerConfig `yaml:"visual"`
}

// VectorizerConfig holds one embedding provider endpoint.
type VectorizerConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Enabled reports whether this vectorizer is configured.
func (v *VectorizerConfig) Enabled() bool {
	return v.BaseURL != "" && v.Model != ""
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Embedding.Text.Dimensions <= 0 {
		c.Embedding.Text.Dimensions = 1024
	}
	if c.Embedding.Visual.Dimensions <= 0 {
		c.Embedding.Visual.Dimensions = 1152
	}

	s := &c.Search
	if s.FullTextWeight <= 0 {
		s.FullTextWeight = 1
	}
	if s.SummaryWeight <= 0 {
		s.SummaryWeight = 1
	}
	if s.KeywordWeight <= 0 {
		s.KeywordWeight = 1
	}
	if s.RRFK <= 0 {
		s.RRFK = 60
	}

	sim := &s.Similar
	if sim.SummaryWeight <= 0 {
		sim.SummaryWeight = 1
	}
	if sim.KeywordWeight <= 0 {
		sim.KeywordWeight = 1
	}
	if len(sim.ThumbnailWeights) == 0 {
		sim.ThumbnailWeights = []float64{1, 0.8, 0.6}
	}
	if sim.TextFactor <= 0 {
		sim.TextFactor = 0.5
	}
	if sim.VisualFactor <= 0 {
		sim.VisualFactor = 0.5
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
	if len(c.Search.Similar.ThumbnailWeights) > 3 {
		return fmt.Errorf("search.similar.thumbnail_weights supports at most 3 slots, got %d",
			len(c.Search.Similar.ThumbnailWeights))
	}
	for i, w := range c.Search.Similar.ThumbnailWeights {
		if w < 0 {
			return fmt.Errorf("search.similar.thumbnail_weights[%d] must be non-negative, got %v", i, w)
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
