package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Providers ProvidersConfig `yaml:"providers"`
	AI        AIConfig        `yaml:"ai"`
	Trading   TradingConfig   `yaml:"trading"`
	Schedules SchedulesConfig `yaml:"schedules"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Web       WebConfig       `yaml:"web"`
	Logging   LoggingConfig   `yaml:"logging"`
	Pairs     []PairConfig    `yaml:"pairs"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ProvidersConfig struct {
	TwelveDataAPIKey string `yaml:"twelvedata_api_key"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

type AIConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type TradingConfig struct {
	Timeframes       []string `yaml:"timeframes"`
	ExpiryHours      int      `yaml:"expiry_hours"`
	FetchConcurrency int      `yaml:"fetch_concurrency"`
	MinConfidence    int      `yaml:"min_confidence"`
}

type SchedulesConfig struct {
	Prices  string `yaml:"prices"`
	Signals string `yaml:"signals"`
	Settle  string `yaml:"settle"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type PairConfig struct {
	Symbol    string `yaml:"symbol"`
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	IsPremium bool   `yaml:"is_premium"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/signaldesk.db"
	}
	if cfg.Providers.TimeoutSeconds == 0 {
		cfg.Providers.TimeoutSeconds = 10
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "google/gemini-2.5-flash"
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://ai.gateway.lovable.dev/v1"
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if len(cfg.Trading.Timeframes) == 0 {
		cfg.Trading.Timeframes = []string{"M5", "M15", "H1", "H4"}
	}
	if cfg.Trading.ExpiryHours == 0 {
		cfg.Trading.ExpiryHours = 24
	}
	if cfg.Trading.FetchConcurrency == 0 {
		cfg.Trading.FetchConcurrency = 5
	}
	if cfg.Schedules.Prices == "" {
		cfg.Schedules.Prices = "*/2 * * * *"
	}
	if cfg.Schedules.Signals == "" {
		cfg.Schedules.Signals = "0 * * * *"
	}
	if cfg.Schedules.Settle == "" {
		cfg.Schedules.Settle = "*/5 * * * *"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 100 {
		return fmt.Errorf("trading.min_confidence must be between 0 and 100")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	for _, p := range c.Pairs {
		if p.Symbol == "" {
			return fmt.Errorf("pairs entries require a symbol")
		}
	}
	return nil
}

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

func (c *Config) SignalExpiry() time.Duration {
	return time.Duration(c.Trading.ExpiryHours) * time.Hour
}
