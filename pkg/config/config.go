package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all brewfind configuration.
type Config struct {
	DBPath     string           `yaml:"db_path"`
	Listen     string           `yaml:"listen"`
	LogLevel   string           `yaml:"log_level"`
	Cache      CacheConfig      `yaml:"cache"`
	Translator TranslatorConfig `yaml:"translator"`
	Budget     BudgetConfig     `yaml:"budget"`
	TransLog   TransLogConfig   `yaml:"translation_log"`
}

// CacheConfig controls the query-translation cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	TopQueries int           `yaml:"top_queries"`
}

// TranslatorConfig defines the external translation provider.
type TranslatorConfig struct {
	Provider string        `yaml:"provider"`
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// BudgetConfig caps daily translator calls.
type BudgetConfig struct {
	Enabled        bool  `yaml:"enabled"`
	MaxCallsPerDay int64 `yaml:"max_calls_per_day"`
}

// TransLogConfig controls the translator invocation log.
type TransLogConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath:   "brewfind.db",
		Listen:   ":8080",
		LogLevel: "info",
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        168 * time.Hour,
			TopQueries: 10,
		},
		Translator: TranslatorConfig{
			Provider: "openai",
			URL:      "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  30 * time.Second,
		},
		Budget: BudgetConfig{
			Enabled: false,
		},
		TransLog: TransLogConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
