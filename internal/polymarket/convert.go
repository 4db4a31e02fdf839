package polymarket

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/rewired-gh/gapsentry/internal/logger"
	"github.com/rewired-gh/gapsentry/internal/models"
	"github.com/rewired-gh/gapsentry/internal/normalize"
)

// convertEvents flattens Gamma events into platform-neutral markets. Each
// event contributes its first market carrying a usable Yes price.
func convertEvents(events []gammaEvent, now time.Time) []models.Market {
	var markets []models.Market
	for _, ev := range events {
		if !ev.Active || ev.Closed {
			continue
		}
		if normalize.IsExpired(ev.Title, now) {
			continue
		}

		m, err := convertEvent(ev, now)
		if err != nil {
			logger.Debug("skipping polymarket event %s: %v", ev.ID, err)
			continue
		}
		markets = append(markets, *m)
	}
	return markets
}

func convertEvent(ev gammaEvent, now time.Time) (*models.Market, error) {
	if ev.ID == "" || ev.Title == "" {
		return nil, &models.ParseError{Platform: models.PlatformPolymarket, Reason: "missing id or title"}
	}

	price, ok := firstYesPrice(ev.Markets)
	if !ok {
		return nil, &models.ParseError{Platform: models.PlatformPolymarket, Reason: "no usable yes price"}
	}
	if price < 0 || price > 1 {
		return nil, &models.ParseError{Platform: models.PlatformPolymarket, Reason: "price out of range"}
	}

	category := ev.Category
	if category == "" {
		category = normalize.Category(ev.Title)
	}

	return &models.Market{
		Platform:     models.PlatformPolymarket,
		ExternalID:   ev.ID,
		Title:        normalize.Title(ev.Title),
		DisplayTitle: ev.Title,
		Category:     normalizeCategory(category),
		Price:        price,
		URL:          "https://polymarket.com/event/" + ev.Slug,
		FetchedAt:    now,
	}, nil
}

// firstYesPrice walks an event's markets and returns the first Yes price it
// can parse, falling back to bestAsk and then lastTradePrice when the
// outcome arrays are absent.
func firstYesPrice(markets []gammaMarket) (float64, bool) {
	for _, m := range markets {
		if p, ok := yesOutcomePrice(m); ok {
			return p, true
		}
		if m.BestAsk > 0 {
			return m.BestAsk, true
		}
		if m.LastTradePrice > 0 {
			return m.LastTradePrice, true
		}
	}
	return 0, false
}

func yesOutcomePrice(m gammaMarket) (float64, bool) {
	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return 0, false
	}
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return 0, false
	}

	for i, outcome := range outcomes {
		if i >= len(prices) {
			break
		}
		if outcome != "Yes" {
			continue
		}
		p, err := strconv.ParseFloat(prices[i], 64)
		if err != nil {
			return 0, false
		}
		return p, true
	}
	return 0, false
}

// normalizeCategory maps Gamma category labels onto the tracked set.
func normalizeCategory(category string) string {
	switch normalize.Title(category) {
	case "crypto", "cryptocurrency":
		return "crypto"
	case "politics", "us politics", "global politics", "elections":
		return "politics"
	case "economy", "economics", "finance", "business", "macro":
		return "macro"
	case "sports":
		return "sports"
	case "tech", "technology", "science", "ai":
		return "tech"
	case "climate", "weather":
		return "climate"
	default:
		return normalize.Category(category)
	}
}
