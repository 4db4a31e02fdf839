// Package models defines the core domain entities: markets, matched pairs,
// snapshots, alert records, and the per-cycle signal types.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Platform identifies the prediction-market venue a record came from.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// Market is a single tradeable question on one platform, normalized at
// ingestion. Title is the normalized form used for matching; DisplayTitle
// retains the original casing for alert text.
type Market struct {
	Platform     Platform  `json:"platform"`
	ExternalID   string    `json:"external_id"`
	Title        string    `json:"title"`
	DisplayTitle string    `json:"display_title"`
	Category     string    `json:"category"`
	Price        float64   `json:"price"`
	URL          string    `json:"url"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// MarketKey identifies a market across cycles. (Platform, ExternalID) is
// unique within a scan.
type MarketKey struct {
	Platform   Platform
	ExternalID string
}

// Key returns the cross-cycle identity of the market.
func (m *Market) Key() MarketKey {
	return MarketKey{Platform: m.Platform, ExternalID: m.ExternalID}
}

// Validate checks market field constraints.
func (m *Market) Validate() error {
	if m.Platform != PlatformPolymarket && m.Platform != PlatformKalshi {
		return fmt.Errorf("unknown platform %q", m.Platform)
	}
	if m.ExternalID == "" {
		return errors.New("external ID must not be empty")
	}
	if m.Title == "" {
		return errors.New("title must not be empty")
	}
	if m.Price < 0.0 || m.Price > 1.0 {
		return errors.New("price must be between 0.0 and 1.0")
	}
	if m.FetchedAt.IsZero() {
		return errors.New("fetched at must be set")
	}
	return nil
}

// MatchedPair is a cross-platform correspondence between one Polymarket and
// one Kalshi market. The referenced markets are not owned by the pair.
type MatchedPair struct {
	Poly       *Market
	Kalshi     *Market
	Similarity float64
}

// PairKey derives the stable identifier for a matched pair from both
// external IDs. It does not depend on match order or similarity.
func PairKey(polyID, kalshiID string) string {
	return polyID + "|" + kalshiID
}

// Key returns the stable pair identifier.
func (p *MatchedPair) Key() string {
	return PairKey(p.Poly.ExternalID, p.Kalshi.ExternalID)
}
