package kalshi

import (
	"testing"
	"time"

	"github.com/rewired-gh/gapsentry/internal/models"
)

func TestConvertMarkets(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	raw := []kalshiMarket{
		{
			Ticker:   "BTC-100K",
			Title:    "Will Bitcoin hit $100K?",
			Category: "Financials Crypto",
			Status:   "open",
			YesAsk:   65,
		},
		{
			// Settled, skipped
			Ticker: "OLD",
			Title:  "Settled market",
			Status: "settled",
		},
		{
			// No price at all, skipped
			Ticker: "NOPRICE",
			Title:  "No quotes yet",
			Status: "open",
		},
		{
			// Falls back to last trade
			Ticker:    "CPI-JUL",
			Title:     "CPI above 3% in July 2026",
			Category:  "Economics",
			Status:    "open",
			LastPrice: 22,
		},
	}

	markets := convertMarkets(raw, now)
	if len(markets) != 2 {
		t.Fatalf("convertMarkets() returned %d markets, want 2", len(markets))
	}

	m := markets[0]
	if m.Platform != models.PlatformKalshi {
		t.Errorf("Platform = %q, want kalshi", m.Platform)
	}
	if m.ExternalID != "BTC-100K" {
		t.Errorf("ExternalID = %q, want BTC-100K", m.ExternalID)
	}
	if m.Price != 0.65 {
		t.Errorf("Price = %v, want 0.65", m.Price)
	}
	if m.Category != "crypto" {
		t.Errorf("Category = %q, want crypto", m.Category)
	}
	if m.URL != "https://kalshi.com/markets/btc-100k" {
		t.Errorf("URL = %q", m.URL)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if markets[1].Price != 0.22 {
		t.Errorf("fallback Price = %v, want 0.22", markets[1].Price)
	}
	if markets[1].Category != "macro" {
		t.Errorf("Category = %q, want macro", markets[1].Category)
	}
}

func TestConvertMarketExpired(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	raw := []kalshiMarket{
		{Ticker: "FED-JAN", Title: "Fed cut in January 2026?", Status: "open", YesAsk: 80},
	}
	if got := convertMarkets(raw, now); len(got) != 0 {
		t.Errorf("expected expired market to be dropped, got %d markets", len(got))
	}
}
