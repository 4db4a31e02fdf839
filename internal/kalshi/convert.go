package kalshi

import (
	"strings"
	"time"

	"github.com/rewired-gh/gapsentry/internal/logger"
	"github.com/rewired-gh/gapsentry/internal/models"
	"github.com/rewired-gh/gapsentry/internal/normalize"
)

// convertMarkets turns raw Kalshi records into platform-neutral markets.
func convertMarkets(raw []kalshiMarket, now time.Time) []models.Market {
	var markets []models.Market
	for _, km := range raw {
		if km.Status != "" && km.Status != "open" && km.Status != "active" {
			continue
		}
		if normalize.IsExpired(km.Title, now) {
			continue
		}

		m, err := convertMarket(km, now)
		if err != nil {
			logger.Debug("skipping kalshi market %s: %v", km.Ticker, err)
			continue
		}
		markets = append(markets, *m)
	}
	return markets
}

func convertMarket(km kalshiMarket, now time.Time) (*models.Market, error) {
	if km.Ticker == "" || km.Title == "" {
		return nil, &models.ParseError{Platform: models.PlatformKalshi, Reason: "missing ticker or title"}
	}

	// Prices are quoted in cents; prefer the live ask, fall back to the
	// last trade.
	cents := km.YesAsk
	if cents == 0 {
		cents = km.LastPrice
	}
	if cents <= 0 || cents > 100 {
		return nil, &models.ParseError{Platform: models.PlatformKalshi, Reason: "no usable yes price"}
	}
	price := float64(cents) / 100

	title := km.Title
	if km.Subtitle != "" {
		title = title + " " + km.Subtitle
	}

	category := normalizeCategory(km.Category)
	if category == "" {
		category = normalize.Category(title)
	}

	return &models.Market{
		Platform:     models.PlatformKalshi,
		ExternalID:   km.Ticker,
		Title:        normalize.Title(title),
		DisplayTitle: km.Title,
		Category:     category,
		Price:        price,
		URL:          "https://kalshi.com/markets/" + strings.ToLower(km.Ticker),
		FetchedAt:    now,
	}, nil
}

// normalizeCategory maps Kalshi category labels onto the tracked set.
func normalizeCategory(category string) string {
	switch normalize.Title(category) {
	case "crypto", "cryptocurrency", "financials crypto":
		return "crypto"
	case "politics", "elections", "world":
		return "politics"
	case "economics", "financials", "economy":
		return "macro"
	case "sports":
		return "sports"
	case "science and technology", "technology", "tech":
		return "tech"
	case "climate and weather", "weather", "climate":
		return "climate"
	default:
		return ""
	}
}
