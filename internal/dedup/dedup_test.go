package dedup

import (
	"testing"
	"time"

	"github.com/rewired-gh/gapsentry/internal/models"
)

func TestShouldFire(t *testing.T) {
	policy := &Policy{Cooldown: 30 * time.Minute, RealertDeltaBps: 100}
	now := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		history  map[string]models.AlertRecord
		valueBps int
		at       time.Time
		want     bool
	}{
		{
			"no record fires",
			map[string]models.AlertRecord{},
			1720, now, true,
		},
		{
			"unchanged within cooldown suppressed",
			map[string]models.AlertRecord{
				"gap:p1|k1": {SignalKey: "gap:p1|k1", LastFiredAt: now, LastValue: 1720},
			},
			1720, now.Add(10 * time.Minute), false,
		},
		{
			"grown past realert delta fires",
			map[string]models.AlertRecord{
				"gap:p1|k1": {SignalKey: "gap:p1|k1", LastFiredAt: now, LastValue: 1720},
			},
			1900, now.Add(10 * time.Minute), true,
		},
		{
			"shrunk past realert delta fires",
			map[string]models.AlertRecord{
				"gap:p1|k1": {SignalKey: "gap:p1|k1", LastFiredAt: now, LastValue: 1720},
			},
			1500, now.Add(10 * time.Minute), true,
		},
		{
			"delta exactly at realert delta suppressed",
			map[string]models.AlertRecord{
				"gap:p1|k1": {SignalKey: "gap:p1|k1", LastFiredAt: now, LastValue: 1720},
			},
			1820, now.Add(10 * time.Minute), false,
		},
		{
			"cooldown elapsed fires",
			map[string]models.AlertRecord{
				"gap:p1|k1": {SignalKey: "gap:p1|k1", LastFiredAt: now, LastValue: 1720},
			},
			1720, now.Add(31 * time.Minute), true,
		},
		{
			"cooldown exactly elapsed suppressed",
			map[string]models.AlertRecord{
				"gap:p1|k1": {SignalKey: "gap:p1|k1", LastFiredAt: now, LastValue: 1720},
			},
			1720, now.Add(30 * time.Minute), false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fired, record := policy.ShouldFire("gap:p1|k1", tt.valueBps, tt.history, tt.at)
			if fired != tt.want {
				t.Fatalf("ShouldFire() = %v, want %v", fired, tt.want)
			}
			if fired {
				if record.LastFiredAt != tt.at {
					t.Errorf("record LastFiredAt = %v, want %v", record.LastFiredAt, tt.at)
				}
				if record.LastValue != tt.valueBps {
					t.Errorf("record LastValue = %d, want %d", record.LastValue, tt.valueBps)
				}
			}
		})
	}
}

func TestPrune(t *testing.T) {
	history := map[string]models.AlertRecord{
		"gap:p1|k1":    {SignalKey: "gap:p1|k1"},
		"move:poly:p2": {SignalKey: "move:poly:p2"},
		"news:g1":      {SignalKey: "news:g1"},
	}
	active := map[string]bool{"gap:p1|k1": true}

	Prune(history, active)

	if len(history) != 1 {
		t.Fatalf("Prune left %d records, want 1", len(history))
	}
	if _, ok := history["gap:p1|k1"]; !ok {
		t.Error("active record was pruned")
	}
}
