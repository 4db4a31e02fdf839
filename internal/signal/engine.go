// Package signal derives gap and move signals from current prices and the
// previous cycle's snapshot.
package signal

import (
	"math"
	"sort"
	"strings"

	"github.com/rewired-gh/gapsentry/internal/match"
	"github.com/rewired-gh/gapsentry/internal/models"
)

// toBps converts an absolute probability difference to basis points,
// rounding half away from zero.
func toBps(diff float64) int {
	return int(math.Round(math.Abs(diff) * 10000))
}

// GapBps returns the cross-platform price difference of a pair in basis
// points, regardless of threshold.
func GapBps(pair models.MatchedPair) int {
	return toBps(pair.Poly.Price - pair.Kalshi.Price)
}

// Gaps returns a signal for every matched pair whose cross-platform price
// difference is at or above thresholdBps. The threshold is inclusive.
func Gaps(pairs []models.MatchedPair, thresholdBps int) []models.GapSignal {
	var signals []models.GapSignal
	for _, pair := range pairs {
		gapBps := toBps(pair.Poly.Price - pair.Kalshi.Price)
		if gapBps < thresholdBps {
			continue
		}

		direction := models.GapPolyAbove
		if pair.Kalshi.Price > pair.Poly.Price {
			direction = models.GapKalshiAbove
		}

		signals = append(signals, models.GapSignal{
			Pair:      pair,
			GapBps:    gapBps,
			Direction: direction,
		})
	}
	return signals
}

// Moves returns a signal for every market whose price swung by at least
// thresholdBps since the prior snapshot. A market seen for the first time
// has no baseline and produces no signal.
func Moves(markets []models.Market, prior *models.Snapshot, thresholdBps int) []models.MoveSignal {
	var signals []models.MoveSignal
	for _, m := range markets {
		prev, ok := prior.Markets[m.Key()]
		if !ok {
			continue
		}

		moveBps := toBps(m.Price - prev.Price)
		if moveBps < thresholdBps {
			continue
		}

		elapsed := int(math.Round(m.FetchedAt.Sub(prev.FetchedAt).Minutes()))
		signals = append(signals, models.MoveSignal{
			Market:         m,
			BeforePrice:    prev.Price,
			AfterPrice:     m.Price,
			MoveBps:        moveBps,
			ElapsedMinutes: elapsed,
		})
	}
	return signals
}

// correlationSimilarity is the title similarity above which two markets are
// treated as tracking related questions even without a keyword hint.
const correlationSimilarity = 0.4

// laggardFraction of the move threshold is the most a related market may
// have moved to count as not having reacted.
const laggardFraction = 0.3

// Correlations flags pairs of related markets where one moved by at least
// thresholdBps since the prior snapshot while the other stayed nearly flat.
// Relatedness comes from keyword hint pairs (one keyword per title, either
// way around) or from title similarity. Markets without a baseline are
// ignored. Results are ordered by mover magnitude, largest first.
func Correlations(markets []models.Market, prior *models.Snapshot, thresholdBps int, hints [][2]string) []models.CorrelationSignal {
	type movement struct {
		market  models.Market
		moveBps int // signed
	}

	var moved []movement
	for _, m := range markets {
		prev, ok := prior.Markets[m.Key()]
		if !ok {
			continue
		}
		moved = append(moved, movement{
			market:  m,
			moveBps: signedBps(m.Price - prev.Price),
		})
	}

	laggardMax := int(math.Round(float64(thresholdBps) * laggardFraction))

	var signals []models.CorrelationSignal
	for i := range moved {
		for j := i + 1; j < len(moved); j++ {
			a, b := moved[i], moved[j]
			if !related(a.market, b.market, hints) {
				continue
			}

			absA, absB := abs(a.moveBps), abs(b.moveBps)
			switch {
			case absA >= thresholdBps && absB < laggardMax:
				signals = append(signals, models.CorrelationSignal{
					Mover: a.market, Laggard: b.market,
					MoverMoveBps: a.moveBps, LaggardMoveBps: b.moveBps,
				})
			case absB >= thresholdBps && absA < laggardMax:
				signals = append(signals, models.CorrelationSignal{
					Mover: b.market, Laggard: a.market,
					MoverMoveBps: b.moveBps, LaggardMoveBps: a.moveBps,
				})
			}
		}
	}

	sort.Slice(signals, func(i, j int) bool {
		mi, mj := abs(signals[i].MoverMoveBps), abs(signals[j].MoverMoveBps)
		if mi != mj {
			return mi > mj
		}
		return signals[i].Key() < signals[j].Key()
	})
	return signals
}

// related reports whether two markets plausibly track the same underlying
// question. Titles are already normalized to lowercase.
func related(a, b models.Market, hints [][2]string) bool {
	for _, hint := range hints {
		if (strings.Contains(a.Title, hint[0]) && strings.Contains(b.Title, hint[1])) ||
			(strings.Contains(a.Title, hint[1]) && strings.Contains(b.Title, hint[0])) {
			return true
		}
	}
	return match.Similarity(a.Title, b.Title) > correlationSimilarity
}

func signedBps(diff float64) int {
	return int(math.Round(diff * 10000))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
