package models

import (
	"time"
)

// PricePoint is the last observed price of a market and when it was fetched.
type PricePoint struct {
	Price     float64
	FetchedAt time.Time
}

// Snapshot is the persisted state of the previous successful scan cycle.
// It is read at the start of a cycle and replaced wholesale at the end of a
// successful one; a cycle never partially updates it.
type Snapshot struct {
	Markets map[MarketKey]PricePoint
	Pairs   map[string]int // pair key → last-seen gap in bps
	SavedAt time.Time
}

// NewSnapshot returns an empty snapshot, the baseline for a first run.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Markets: make(map[MarketKey]PricePoint),
		Pairs:   make(map[string]int),
	}
}

// AlertRecord is the suppression memory for one signal key. At most one
// record exists per key; records are pruned once the underlying market
// disappears from active listings.
type AlertRecord struct {
	SignalKey   string
	LastFiredAt time.Time
	LastValue   int // magnitude in bps that triggered the alert; 0 for news
}
