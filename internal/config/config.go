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

// Config holds the regassist API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RAG       RAGConfig       `yaml:"rag"`
	Quota     QuotaConfig     `yaml:"quota"`
	Sources   SourcesConfig   `yaml:"sources"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys      []string `yaml:"api_keys"`
	AdminAPIKeys []string `yaml:"admin_api_keys"` // when set, admin routes also require one of these
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // bounds streamed answers too
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds quota and cache store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, valkey (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Index            int      `yaml:"index"` // logical database number
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig holds model provider settings.
type LLMConfig struct {
	APIKey             string   `yaml:"api_key"` // empty is allowed; requests then fail with a configuration error
	BaseURL            string   `yaml:"base_url"`
	Model              string   `yaml:"model"`
	TimeoutSec         int      `yaml:"timeout_sec"`
	ToolType           string   `yaml:"tool_type"`
	ToolChoice         string   `yaml:"tool_choice"`
	MaxOutputTokens    int      `yaml:"max_output_tokens"` // 0 = provider default
	ToolErrorMarkers   []string `yaml:"tool_error_markers"`
	SystemInstructions string   `yaml:"system_instructions"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	APIKey      string `yaml:"api_key"` // defaults to llm.api_key
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"` // 0 = model default
	Cache       bool   `yaml:"cache"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
}

// RAGConfig holds product index retrieval settings.
type RAGConfig struct {
	IndexPath   string  `yaml:"index_path"`
	K           int     `yaml:"k"`
	Threshold   float64 `yaml:"threshold"`
	CacheTTLSec int     `yaml:"cache_ttl_sec"` // 0 = read the file on every call
	Watch       bool    `yaml:"watch"`
}

// RoleLimitConfig is the allowance of one role. -1 = unlimited.
type RoleLimitConfig struct {
	DailyMessages int `yaml:"daily_messages"`
	MonthlyTokens int `yaml:"monthly_tokens"`
}

// QuotaConfig holds per-user quota settings.
type QuotaConfig struct {
	OnStoreError string                     `yaml:"on_store_error"` // "open" (default) | "closed"
	Limits       map[string]RoleLimitConfig `yaml:"limits"`
}

// SourcesConfig holds detected source registry settings.
type SourcesConfig struct {
	Path             string   `yaml:"path"`
	Capacity         int      `yaml:"capacity"`
	QueueSize        int      `yaml:"queue_size"`
	ContextChars     int      `yaml:"context_chars"`
	OfficialDomains  []string `yaml:"official_domains"`
	ForbiddenDomains []string `yaml:"forbidden_domains"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in a YAML document, applies defaults and validates the result.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.applyLLMDefaults()
	c.applyRetrievalDefaults()
	if c.Quota.OnStoreError == "" {
		c.Quota.OnStoreError = "open"
	}
	if c.Quota.Limits == nil {
		c.Quota.Limits = map[string]RoleLimitConfig{
			"free":    {DailyMessages: 10, MonthlyTokens: 1_000_000},
			"premium": {DailyMessages: 30, MonthlyTokens: 4_000_000},
			"admin":   {DailyMessages: -1, MonthlyTokens: -1},
		}
	}
	if c.Sources.Path == "" {
		c.Sources.Path = "data/detected-sources.json"
	}
	if c.Sources.Capacity <= 0 {
		c.Sources.Capacity = 100
	}
	if c.Sources.QueueSize <= 0 {
		c.Sources.QueueSize = 64
	}
	if c.Sources.ContextChars <= 0 {
		c.Sources.ContextChars = 200
	}
}

func (c *Config) applyLLMDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4.1-mini"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}
	if c.LLM.ToolType == "" {
		c.LLM.ToolType = "web_search"
	}
	if c.LLM.ToolChoice == "" {
		c.LLM.ToolChoice = "required"
	}
	if len(c.LLM.ToolErrorMarkers) == 0 {
		c.LLM.ToolErrorMarkers = []string{"web_search", "tool", "tool_choice"}
	}
}

func (c *Config) applyRetrievalDefaults() {
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 7 * 24 * 3600
	}
	if c.RAG.IndexPath == "" {
		c.RAG.IndexPath = "data/index.json"
	}
	if c.RAG.K <= 0 {
		c.RAG.K = 5
	}
	if c.RAG.Threshold == 0 {
		c.RAG.Threshold = 0.35
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be \"memory\", \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	switch c.Quota.OnStoreError {
	case "open", "closed":
	default:
		return fmt.Errorf("quota.on_store_error must be \"open\" or \"closed\", got %q", c.Quota.OnStoreError)
	}
	if _, ok := c.Quota.Limits["free"]; !ok {
		return fmt.Errorf("quota.limits.free is required")
	}
	for role, l := range c.Quota.Limits {
		if l.DailyMessages < -1 || l.MonthlyTokens < -1 {
			return fmt.Errorf("quota.limits.%s: limits must be >= -1", role)
		}
	}
	if c.RAG.Threshold < -1 || c.RAG.Threshold > 1 {
		return fmt.Errorf("rag.threshold must be within [-1, 1], got %g", c.RAG.Threshold)
	}
	if c.RAG.Watch && c.RAG.CacheTTLSec <= 0 {
		return fmt.Errorf("rag.watch requires rag.cache_ttl_sec > 0")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package dirs
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
