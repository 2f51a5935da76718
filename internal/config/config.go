package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for Loom
type Config struct {
	LLM    LLMConfig    `json:"llm"`
	Runner RunnerConfig `json:"runner"`
	Server ServerConfig `json:"server"`
}

// LLMConfig holds model backend configuration (any OpenAI-compatible API)
type LLMConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// RunnerConfig holds pipeline execution configuration
type RunnerConfig struct {
	DefaultPolicy        string        `json:"default_policy"`         // "abort" or "best-effort"
	StageTimeout         time.Duration `json:"stage_timeout"`          // per-stage wall clock budget
	MaxConcurrentStages  int           `json:"max_concurrent_stages"`  // 0 means unbounded
	RetryMaxAttempts     int           `json:"retry_max_attempts"`     // retries after the first attempt
	RetryInitialInterval time.Duration `json:"retry_initial_interval"` // backoff seed
}

// ServerConfig holds the metrics/health server configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			URL:         "http://localhost:8000/v1",
			APIKey:      "",
			Model:       "Qwen/Qwen3-8B-AWQ",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Runner: RunnerConfig{
			DefaultPolicy:        "abort",
			StageTimeout:         2 * time.Minute,
			MaxConcurrentStages:  0,
			RetryMaxAttempts:     2,
			RetryInitialInterval: time.Second,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envDuration loads a duration environment variable into the target pointer if set and valid
func envDuration(key string, target *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}

// Load loads configuration from .env, the config file and environment variables
func Load() (*Config, error) {
	// A local .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	// Load LLM configuration from environment
	envString("LOOM_LLM_URL", &cfg.LLM.URL)
	envString("LOOM_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("LOOM_LLM_MODEL", &cfg.LLM.Model)
	envInt("LOOM_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("LOOM_LLM_TEMPERATURE", &cfg.LLM.Temperature)

	// Load Runner configuration from environment
	envString("LOOM_RUNNER_POLICY", &cfg.Runner.DefaultPolicy)
	envDuration("LOOM_RUNNER_STAGE_TIMEOUT", &cfg.Runner.StageTimeout)
	envInt("LOOM_RUNNER_MAX_CONCURRENT_STAGES", &cfg.Runner.MaxConcurrentStages)
	envInt("LOOM_RUNNER_RETRY_MAX_ATTEMPTS", &cfg.Runner.RetryMaxAttempts)
	envDuration("LOOM_RUNNER_RETRY_INITIAL_INTERVAL", &cfg.Runner.RetryInitialInterval)

	// Load Server configuration from environment
	envString("LOOM_SERVER_HOST", &cfg.Server.Host)
	envInt("LOOM_SERVER_PORT", &cfg.Server.Port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	// LLM validation
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}

	// Runner validation
	if c.Runner.DefaultPolicy != "abort" && c.Runner.DefaultPolicy != "best-effort" {
		errs = append(errs, "runner default_policy must be 'abort' or 'best-effort'")
	}
	if c.Runner.StageTimeout < time.Second {
		errs = append(errs, "runner stage_timeout must be at least 1s")
	}
	if c.Runner.MaxConcurrentStages < 0 {
		errs = append(errs, "runner max_concurrent_stages must not be negative")
	}
	if c.Runner.RetryMaxAttempts < 0 {
		errs = append(errs, "runner retry_max_attempts must not be negative")
	}
	if c.Runner.RetryInitialInterval < 0 {
		errs = append(errs, "runner retry_initial_interval must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("LOOM_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	return filepath.Join(homeDir, ".config", "loom", "config.json")
}
