package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// API
	API struct {
		Port int    `toml:"port"`
		Host string `toml:"host"`
	} `toml:"api"`

	// Crawler
	Crawler struct {
		DelayMS         int      `toml:"delay_ms"`        // politeness delay between dispatches
		MaxConcurrency  int      `toml:"max_concurrency"` // in-flight fetch+extract cap
		MaxPages        int      `toml:"max_pages"`       // per-session page cap
		FetchTimeoutSec int      `toml:"fetch_timeout"`   // per-fetch timeout in seconds
		Selectors       []string `toml:"selectors"`       // CSS selectors applied to every page
	} `toml:"crawler"`

	// AI
	AI struct {
		APIKey  string `toml:"api_key"`
		BaseURL string `toml:"base_url"`
		Model   string `toml:"model"`
	} `toml:"ai"`

	// Events
	Events struct {
		BufferSize int `toml:"buffer_size"` // per-subscriber pending-event buffer
	} `toml:"events"`

	// CLI
	CLI struct {
		BaseURL string `toml:"base_url"` // API base URL for the terminal client
	} `toml:"cli"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.API.Port = 8080
	cfg.API.Host = "0.0.0.0"
	cfg.Crawler.DelayMS = 200
	cfg.Crawler.MaxConcurrency = 2
	cfg.Crawler.MaxPages = 500
	cfg.Crawler.FetchTimeoutSec = 6
	cfg.Crawler.Selectors = []string{"h1", "h2", "h3", "p", "li", "table"}
	cfg.AI.APIKey = ""
	cfg.AI.BaseURL = "" // empty selects the public Gemini endpoint
	cfg.AI.Model = "gemini-1.5-flash"
	cfg.Events.BufferSize = 1024
	cfg.CLI.BaseURL = "http://localhost:8080"
	return cfg
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, ".config", "scrape-stream")
	return filepath.Join(configDir, "config.toml"), nil
}

// Load reads configuration from ~/.config/scrape-stream/config.toml.
// Creates the file with defaults if it doesn't exist.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		applyEnv(cfg)
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Merge with defaults for any missing values
	defaultCfg := DefaultConfig()
	if cfg.API.Port == 0 {
		cfg.API.Port = defaultCfg.API.Port
	}
	if cfg.API.Host == "" {
		cfg.API.Host = defaultCfg.API.Host
	}
	if cfg.Crawler.DelayMS == 0 {
		cfg.Crawler.DelayMS = defaultCfg.Crawler.DelayMS
	}
	if cfg.Crawler.MaxConcurrency == 0 {
		cfg.Crawler.MaxConcurrency = defaultCfg.Crawler.MaxConcurrency
	}
	if cfg.Crawler.MaxPages == 0 {
		cfg.Crawler.MaxPages = defaultCfg.Crawler.MaxPages
	}
	if cfg.Crawler.FetchTimeoutSec == 0 {
		cfg.Crawler.FetchTimeoutSec = defaultCfg.Crawler.FetchTimeoutSec
	}
	if len(cfg.Crawler.Selectors) == 0 {
		cfg.Crawler.Selectors = defaultCfg.Crawler.Selectors
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultCfg.AI.Model
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = defaultCfg.Events.BufferSize
	}
	if cfg.CLI.BaseURL == "" {
		cfg.CLI.BaseURL = defaultCfg.CLI.BaseURL
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// applyEnv overrides file values with environment variables when set
// (useful for Docker and for keeping the API key out of the file).
func applyEnv(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if base := os.Getenv("GEMINI_BASE_URL"); base != "" {
		cfg.AI.BaseURL = base
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.API.Port = p
		}
	}
	if base := os.Getenv("SCRAPE_STREAM_BASE_URL"); base != "" {
		cfg.CLI.BaseURL = base
	}
}

// Save writes the configuration to the config file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
