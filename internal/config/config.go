// Package config loads Config from a YAML file and applies environment
// variable overrides on top of it.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	AgentModel            string        `yaml:"agent_model"`
	SupportedModels        []string      `yaml:"supported_models"`
	ReactMaxRetries        int           `yaml:"react_max_retries"`
	ReactMaxThoughtCycles  int           `yaml:"react_max_thought_cycles"`
	CodeExecutionTimeout   time.Duration `yaml:"code_execution_timeout"`
	Persistence            Persistence   `yaml:"persistence"`
	Providers              Providers     `yaml:"providers"`
	Logging                Logging       `yaml:"logging"`
}

// Persistence selects and configures the Persistence Gateway backend.
type Persistence struct {
	// Backend is "file" or "postgres".
	Backend     string `yaml:"backend"`
	FileDir     string `yaml:"file_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Providers holds vendor credentials.
type Providers struct {
	GoogleAPIKey     string `yaml:"google_api_key"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	PerplexityAPIKey string `yaml:"perplexity_api_key"`
}

// Logging configures the observability logger.
type Logging struct {
	Level string `yaml:"level"`
	Format string `yaml:"format"`
	File  string `yaml:"file"`
}

// Default returns a Config with the same defaults the original system
// falls back to in the absence of any file or environment override.
func Default() *Config {
	return &Config{
		AgentModel:            "gemini-2.5-pro",
		SupportedModels:       []string{"gemini-2.5-pro", "gemini-2.5-flash"},
		ReactMaxRetries:       3,
		ReactMaxThoughtCycles: 5,
		CodeExecutionTimeout:  30 * time.Second,
		Persistence:           Persistence{Backend: "file", FileDir: "./sessions"},
		Logging:               Logging{Level: "info", Format: "json"},
	}
}

// Load reads path (YAML, $include-aware) if non-empty, falling back to
// Default() when path is empty or the file doesn't exist, then applies
// environment variable overrides over whatever was loaded.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); err == nil {
			raw, err := LoadRaw(path)
			if err != nil {
				return nil, err
			}
			decoded, err := decodeRawConfig(raw)
			if err != nil {
				return nil, err
			}
			cfg = mergeConfig(cfg, decoded)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// mergeConfig overlays any field fields sets on top of base, field by
// field, so a partial YAML document doesn't blank out Default()'s values.
func mergeConfig(base, fields *Config) *Config {
	if fields.AgentModel != "" {
		base.AgentModel = fields.AgentModel
	}
	if len(fields.SupportedModels) > 0 {
		base.SupportedModels = fields.SupportedModels
	}
	if fields.ReactMaxRetries != 0 {
		base.ReactMaxRetries = fields.ReactMaxRetries
	}
	if fields.ReactMaxThoughtCycles != 0 {
		base.ReactMaxThoughtCycles = fields.ReactMaxThoughtCycles
	}
	if fields.CodeExecutionTimeout != 0 {
		base.CodeExecutionTimeout = fields.CodeExecutionTimeout
	}
	if fields.Persistence.Backend != "" {
		base.Persistence.Backend = fields.Persistence.Backend
	}
	if fields.Persistence.FileDir != "" {
		base.Persistence.FileDir = fields.Persistence.FileDir
	}
	if fields.Persistence.PostgresDSN != "" {
		base.Persistence.PostgresDSN = fields.Persistence.PostgresDSN
	}
	if fields.Providers.GoogleAPIKey != "" {
		base.Providers.GoogleAPIKey = fields.Providers.GoogleAPIKey
	}
	if fields.Providers.AnthropicAPIKey != "" {
		base.Providers.AnthropicAPIKey = fields.Providers.AnthropicAPIKey
	}
	if fields.Providers.OpenAIAPIKey != "" {
		base.Providers.OpenAIAPIKey = fields.Providers.OpenAIAPIKey
	}
	if fields.Providers.PerplexityAPIKey != "" {
		base.Providers.PerplexityAPIKey = fields.Providers.PerplexityAPIKey
	}
	if fields.Logging.Level != "" {
		base.Logging.Level = fields.Logging.Level
	}
	if fields.Logging.Format != "" {
		base.Logging.Format = fields.Logging.Format
	}
	if fields.Logging.File != "" {
		base.Logging.File = fields.Logging.File
	}
	return base
}

// applyEnvOverrides mutates cfg in place per the environment variable
// table: AGENT_MODEL, SUPPORTED_MODELS, REACT_MAX_RETRIES,
// REACT_MAX_THOUGHT_CYCLES, CODE_EXECUTION_TIMEOUT, MONGODB_ENABLED (maps
// to the postgres/document-store backend switch here), GOOGLE_API_KEY,
// PPLX_API_KEY, LOG_LEVEL, LOG_FILE.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENT_MODEL"); v != "" {
		cfg.AgentModel = v
	}
	if v := os.Getenv("SUPPORTED_MODELS"); v != "" {
		cfg.SupportedModels = splitComma(v)
	}
	if v := os.Getenv("REACT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReactMaxRetries = n
		}
	}
	if v := os.Getenv("REACT_MAX_THOUGHT_CYCLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReactMaxThoughtCycles = n
		}
	}
	if v := os.Getenv("CODE_EXECUTION_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CodeExecutionTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("MONGODB_ENABLED"); strings.EqualFold(v, "true") {
		cfg.Persistence.Backend = "postgres"
		if dsn := os.Getenv("MONGODB_URI"); dsn != "" {
			cfg.Persistence.PostgresDSN = dsn
		}
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Providers.GoogleAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.AnthropicAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAIAPIKey = v
	}
	if v := os.Getenv("PPLX_API_KEY"); v != "" {
		cfg.Providers.PerplexityAPIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

func splitComma(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
