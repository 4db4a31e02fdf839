package models

import (
	"errors"
	"time"
)

// GapDirection records which platform prices the question higher.
type GapDirection string

const (
	GapPolyAbove   GapDirection = "poly>kalshi"
	GapKalshiAbove GapDirection = "kalshi>poly"
)

// GapSignal is a cross-platform pricing divergence on a matched pair.
type GapSignal struct {
	Pair      MatchedPair
	GapBps    int
	Direction GapDirection
}

// Key returns the deduplication key for the signal.
func (s *GapSignal) Key() string {
	return "gap:" + s.Pair.Key()
}

// MoveSignal is a large price swing of one market between two scan cycles.
type MoveSignal struct {
	Market         Market
	BeforePrice    float64
	AfterPrice     float64
	MoveBps        int
	ElapsedMinutes int
}

// Key returns the deduplication key for the signal.
func (s *MoveSignal) Key() string {
	return "move:" + MarketRef(s.Market.Platform, s.Market.ExternalID)
}

// CorrelationSignal flags two related markets where one moved sharply while
// the other barely reacted. Move magnitudes are signed.
type CorrelationSignal struct {
	Mover          Market
	Laggard        Market
	MoverMoveBps   int
	LaggardMoveBps int
}

// Key returns the deduplication key for the signal. It is ordered: the same
// pair with mover and laggard swapped is a distinct signal.
func (s *CorrelationSignal) Key() string {
	return "corr:" + MarketRef(s.Mover.Platform, s.Mover.ExternalID) +
		"|" + MarketRef(s.Laggard.Platform, s.Laggard.ExternalID)
}

// MarketRef renders a market key as "platform:externalID", the form used
// inside signal keys.
func MarketRef(platform Platform, externalID string) string {
	return string(platform) + ":" + externalID
}

// NewsItem is a single entry fetched from an RSS feed.
type NewsItem struct {
	GUID      string
	Title     string
	Link      string
	Source    string
	FeedName  string
	Published time.Time
}

// NewsSignal is a market-relevant news item that passed the relevance filter.
type NewsSignal struct {
	Item            NewsItem
	MatchedKeywords []string
	Category        string
}

// CycleReport summarizes one scan cycle for the caller.
type CycleReport struct {
	CycleID        string
	MarketsScanned int
	PairsMatched   int
	SignalsFired   int
	Errors         []error
}

// Err joins the cycle's collected errors, or returns nil for a clean cycle.
func (r *CycleReport) Err() error {
	return errors.Join(r.Errors...)
}
