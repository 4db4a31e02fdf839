// Package normalize prepares market titles for cross-platform comparison and
// infers the tracked category of a market from its text.
package normalize

import (
	"regexp"
	"strings"
	"time"
)

var (
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	monthYearRe  = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b.{0,15}?\b(20\d{2})\b`)
)

var monthIndex = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Title lowercases a market title, strips punctuation, and collapses runs of
// whitespace, so that the same question phrased on two platforms compares
// cleanly.
func Title(s string) string {
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens splits a normalized title into its words.
func Tokens(s string) []string {
	norm := Title(s)
	if norm == "" {
		return nil
	}
	return strings.Split(norm, " ")
}

// IsExpired reports whether a title names a month and year that have already
// passed. Platforms occasionally keep resolved markets listed as active;
// these would otherwise produce stale pairings.
func IsExpired(title string, now time.Time) bool {
	m := monthYearRe.FindStringSubmatch(title)
	if m == nil {
		return false
	}
	month, ok := monthIndex[strings.ToLower(m[1])]
	if !ok {
		return false
	}
	year, err := time.Parse("2006", m[2])
	if err != nil {
		return false
	}
	// Expired once the named month is fully over.
	end := time.Date(year.Year(), month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return !now.Before(end)
}

var categoryKeywords = map[string][]string{
	"crypto":   {"bitcoin", "btc", "ethereum", "eth", "crypto", "solana", "dogecoin", "stablecoin"},
	"politics": {"election", "president", "senate", "congress", "parliament", "minister", "vote", "impeach", "nominee"},
	"macro":    {"fed", "interest rate", "inflation", "cpi", "gdp", "recession", "unemployment", "tariff"},
	"sports":   {"nba", "nfl", "mlb", "premier league", "world cup", "super bowl", "championship", "olympics"},
	"tech":     {"openai", "apple", "google", "tesla", "spacex", "ipo", "chip", "semiconductor", "ai model"},
	"climate":  {"hurricane", "temperature", "wildfire", "emissions", "climate", "heat wave", "el nino"},
}

// Category infers the tracked category with the most keyword hits across the
// given texts. Ties break lexicographically; no hits return the empty string.
func Category(texts ...string) string {
	joined := strings.ToLower(strings.Join(texts, " "))

	best := ""
	bestHits := 0
	for cat, kws := range categoryKeywords {
		hits := 0
		for _, kw := range kws {
			if strings.Contains(joined, kw) {
				hits++
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && cat < best) {
			best = cat
			bestHits = hits
		}
	}
	return best
}
