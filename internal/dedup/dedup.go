// Package dedup suppresses repeated alerts for the same signal key.
package dedup

import (
	"time"

	"github.com/rewired-gh/gapsentry/internal/models"
)

// Policy decides whether a signal may fire again. A signal fires when its
// key has no record, when the cooldown since the last firing has elapsed, or
// when its magnitude moved by more than RealertDeltaBps since the last
// firing.
type Policy struct {
	Cooldown        time.Duration
	RealertDeltaBps int
}

// ShouldFire reports whether the signal may alert now and, if so, returns
// the record to store for it. history holds the current record per key;
// absence means the key never fired or its record was pruned.
func (p *Policy) ShouldFire(key string, valueBps int, history map[string]models.AlertRecord, now time.Time) (bool, models.AlertRecord) {
	record := models.AlertRecord{
		SignalKey:   key,
		LastFiredAt: now,
		LastValue:   valueBps,
	}

	prev, ok := history[key]
	if !ok {
		return true, record
	}
	if now.Sub(prev.LastFiredAt) > p.Cooldown {
		return true, record
	}

	delta := valueBps - prev.LastValue
	if delta < 0 {
		delta = -delta
	}
	if delta > p.RealertDeltaBps {
		return true, record
	}

	return false, prev
}

// Prune drops records whose keys are no longer active, so vanished markets
// do not pin suppression state forever.
func Prune(history map[string]models.AlertRecord, active map[string]bool) {
	for key := range history {
		if !active[key] {
			delete(history, key)
		}
	}
}
