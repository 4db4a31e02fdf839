package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config represents the complete application configuration
type Config struct {
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Kalshi     KalshiConfig     `mapstructure:"kalshi"`
	News       NewsConfig       `mapstructure:"news"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PolymarketConfig holds Polymarket Gamma API configuration
type PolymarketConfig struct {
	GammaAPIURL    string        `mapstructure:"gamma_api_url"`
	Limit          int           `mapstructure:"limit"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// KalshiConfig holds Kalshi trade API configuration
type KalshiConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	Limit          int           `mapstructure:"limit"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// FeedConfig identifies one RSS feed to scan
type FeedConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// NewsConfig holds RSS feed and relevance-rule configuration.
// Keywords maps a tracked category to the keywords that make a news item
// relevant to it.
type NewsConfig struct {
	Feeds    []FeedConfig        `mapstructure:"feeds"`
	Keywords map[string][]string `mapstructure:"keywords"`
	Timeout  time.Duration       `mapstructure:"timeout"`
}

// AlertsConfig holds signal-detection and alert-fatigue configuration.
// CorrelationHints lists keyword pairs that mark two markets as related
// regardless of their title similarity.
type AlertsConfig struct {
	ThresholdBps        int           `mapstructure:"threshold_bps"`
	Cooldown            time.Duration `mapstructure:"cooldown"`
	RealertDeltaBps     int           `mapstructure:"realert_delta_bps"`
	SimilarityFloor     float64       `mapstructure:"similarity_floor"`
	CorrelationMoveBps  int           `mapstructure:"correlation_move_bps"`
	CorrelationCooldown time.Duration `mapstructure:"correlation_cooldown"`
	CorrelationHints    [][]string    `mapstructure:"correlation_hints"`
	Languages           []string      `mapstructure:"languages"`
	Categories          []string      `mapstructure:"categories"`
	ScanInterval        time.Duration `mapstructure:"scan_interval"`
	HeartbeatEvery      int           `mapstructure:"heartbeat_every"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds state-store configuration
type StorageConfig struct {
	DBPath      string `mapstructure:"db_path"`
	MaxSeenNews int    `mapstructure:"max_seen_news"`
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("GAPSENTRY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Platform defaults
	v.SetDefault("polymarket.gamma_api_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.limit", 200)
	v.SetDefault("polymarket.timeout", "30s")
	v.SetDefault("polymarket.max_retries", 3)
	v.SetDefault("polymarket.retry_delay_base", "1s")

	v.SetDefault("kalshi.api_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("kalshi.limit", 500)
	v.SetDefault("kalshi.timeout", "30s")
	v.SetDefault("kalshi.max_retries", 3)
	v.SetDefault("kalshi.retry_delay_base", "1s")

	// News defaults
	v.SetDefault("news.timeout", "15s")

	// Alert defaults
	v.SetDefault("alerts.threshold_bps", 500)
	v.SetDefault("alerts.cooldown", "30m")
	v.SetDefault("alerts.realert_delta_bps", 100)
	v.SetDefault("alerts.similarity_floor", 0.45)
	v.SetDefault("alerts.correlation_move_bps", 1000)
	v.SetDefault("alerts.correlation_cooldown", "1h")
	v.SetDefault("alerts.languages", []string{"en", "he", "fr"})
	v.SetDefault("alerts.categories", []string{"crypto", "politics", "macro", "sports", "tech", "climate"})
	v.SetDefault("alerts.scan_interval", "3m")
	v.SetDefault("alerts.heartbeat_every", 120)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/gapsentry.db")
	v.SetDefault("storage.max_seen_news", 5000)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9190")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Polymarket.GammaAPIURL == "" {
		return fmt.Errorf("polymarket.gamma_api_url is required")
	}
	if c.Polymarket.Limit < 1 || c.Polymarket.Limit > 1000 {
		return fmt.Errorf("polymarket.limit must be between 1 and 1000")
	}
	if c.Kalshi.APIURL == "" {
		return fmt.Errorf("kalshi.api_url is required")
	}
	if c.Kalshi.Limit < 1 || c.Kalshi.Limit > 1000 {
		return fmt.Errorf("kalshi.limit must be between 1 and 1000")
	}

	for _, feed := range c.News.Feeds {
		if feed.Name == "" || feed.URL == "" {
			return fmt.Errorf("news.feeds entries require both name and url")
		}
	}

	if c.Alerts.ThresholdBps < 1 {
		return fmt.Errorf("alerts.threshold_bps must be at least 1")
	}
	if c.Alerts.Cooldown < time.Minute {
		return fmt.Errorf("alerts.cooldown must be at least 1 minute")
	}
	if c.Alerts.RealertDeltaBps < 0 {
		return fmt.Errorf("alerts.realert_delta_bps must not be negative")
	}
	if c.Alerts.SimilarityFloor < 0.0 || c.Alerts.SimilarityFloor > 1.0 {
		return fmt.Errorf("alerts.similarity_floor must be between 0.0 and 1.0")
	}
	if c.Alerts.CorrelationMoveBps < 1 {
		return fmt.Errorf("alerts.correlation_move_bps must be at least 1")
	}
	if c.Alerts.CorrelationCooldown < time.Minute {
		return fmt.Errorf("alerts.correlation_cooldown must be at least 1 minute")
	}
	for _, hint := range c.Alerts.CorrelationHints {
		if len(hint) != 2 || hint[0] == "" || hint[1] == "" {
			return fmt.Errorf("alerts.correlation_hints entries must be keyword pairs")
		}
	}
	if len(c.Alerts.Languages) == 0 {
		return fmt.Errorf("alerts.languages must contain at least one language")
	}
	for _, lang := range c.Alerts.Languages {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("alerts.languages entry %q is not a valid language tag: %w", lang, err)
		}
	}
	if c.Alerts.ScanInterval < time.Minute {
		return fmt.Errorf("alerts.scan_interval must be at least 1 minute")
	}
	if c.Alerts.HeartbeatEvery < 1 {
		return fmt.Errorf("alerts.heartbeat_every must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxSeenNews < 100 {
		return fmt.Errorf("storage.max_seen_news must be at least 100")
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
