package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Polymarket.GammaAPIURL != "https://gamma-api.polymarket.com" {
		t.Errorf("GammaAPIURL = %q, want default", cfg.Polymarket.GammaAPIURL)
	}
	if cfg.Alerts.ThresholdBps != 500 {
		t.Errorf("ThresholdBps = %d, want 500", cfg.Alerts.ThresholdBps)
	}
	if cfg.Alerts.Cooldown != 30*time.Minute {
		t.Errorf("Cooldown = %v, want 30m", cfg.Alerts.Cooldown)
	}
	if cfg.Alerts.RealertDeltaBps != 100 {
		t.Errorf("RealertDeltaBps = %d, want 100", cfg.Alerts.RealertDeltaBps)
	}
	if cfg.Alerts.SimilarityFloor != 0.45 {
		t.Errorf("SimilarityFloor = %v, want 0.45", cfg.Alerts.SimilarityFloor)
	}
	if len(cfg.Alerts.Languages) != 3 || cfg.Alerts.Languages[0] != "en" {
		t.Errorf("Languages = %v, want [en he fr]", cfg.Alerts.Languages)
	}
	if cfg.Alerts.CorrelationMoveBps != 1000 {
		t.Errorf("CorrelationMoveBps = %d, want 1000", cfg.Alerts.CorrelationMoveBps)
	}
	if cfg.Alerts.CorrelationCooldown != time.Hour {
		t.Errorf("CorrelationCooldown = %v, want 1h", cfg.Alerts.CorrelationCooldown)
	}
	if cfg.Storage.MaxSeenNews != 5000 {
		t.Errorf("MaxSeenNews = %d, want 5000", cfg.Storage.MaxSeenNews)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
alerts:
  threshold_bps: 300
  cooldown: 1h
  languages: ["en", "he"]
news:
  feeds:
    - name: reuters
      url: https://example.com/rss
  keywords:
    crypto: ["bitcoin", "ethereum"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Alerts.ThresholdBps != 300 {
		t.Errorf("ThresholdBps = %d, want 300", cfg.Alerts.ThresholdBps)
	}
	if cfg.Alerts.Cooldown != time.Hour {
		t.Errorf("Cooldown = %v, want 1h", cfg.Alerts.Cooldown)
	}
	if len(cfg.News.Feeds) != 1 || cfg.News.Feeds[0].Name != "reuters" {
		t.Errorf("Feeds = %v, want one reuters feed", cfg.News.Feeds)
	}
	if kws := cfg.News.Keywords["crypto"]; len(kws) != 2 {
		t.Errorf("Keywords[crypto] = %v, want two keywords", kws)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		path := writeConfig(t, "logging:\n  level: info\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero threshold", func(c *Config) { c.Alerts.ThresholdBps = 0 }, true},
		{"short cooldown", func(c *Config) { c.Alerts.Cooldown = time.Second }, true},
		{"negative realert delta", func(c *Config) { c.Alerts.RealertDeltaBps = -1 }, true},
		{"similarity floor above one", func(c *Config) { c.Alerts.SimilarityFloor = 1.5 }, true},
		{"zero correlation threshold", func(c *Config) { c.Alerts.CorrelationMoveBps = 0 }, true},
		{"short correlation cooldown", func(c *Config) { c.Alerts.CorrelationCooldown = time.Second }, true},
		{"lone correlation hint keyword", func(c *Config) {
			c.Alerts.CorrelationHints = [][]string{{"nuclear"}}
		}, true},
		{"valid correlation hints", func(c *Config) {
			c.Alerts.CorrelationHints = [][]string{{"nuclear", "sanctions"}}
		}, false},
		{"no languages", func(c *Config) { c.Alerts.Languages = nil }, true},
		{"bad language tag", func(c *Config) { c.Alerts.Languages = []string{"not a tag"} }, true},
		{"telegram enabled without token", func(c *Config) { c.Telegram.Enabled = true }, true},
		{"telegram enabled with credentials", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.BotToken = "token"
			c.Telegram.ChatID = "123"
		}, false},
		{"feed without url", func(c *Config) {
			c.News.Feeds = []FeedConfig{{Name: "reuters"}}
		}, true},
		{"empty db path", func(c *Config) { c.Storage.DBPath = "" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
