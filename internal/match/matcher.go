// Package match pairs equivalent markets across platforms by fuzzy title
// similarity.
package match

import (
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/rewired-gh/gapsentry/internal/models"
	"github.com/rewired-gh/gapsentry/internal/normalize"
)

// Similarity scores how alike two titles are, in [0, 1]. The score is
// symmetric: both argument orders are tried and the larger sequence ratio is
// kept, and a token-set overlap ratio catches reorderings the sequence
// matcher underrates.
func Similarity(a, b string) float64 {
	ta := normalize.Tokens(a)
	tb := normalize.Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	r1 := difflib.NewMatcher(ta, tb).Ratio()
	r2 := difflib.NewMatcher(tb, ta).Ratio()

	best := r1
	if r2 > best {
		best = r2
	}
	if j := jaccard(ta, tb); j > best {
		best = j
	}
	return best
}

// jaccard computes token-set overlap over union.
func jaccard(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, tok := range a {
		set[tok] = true
	}
	seen := make(map[string]bool, len(b))
	inter := 0
	for _, tok := range b {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if set[tok] {
			inter++
		}
	}
	union := len(set) + len(seen) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// candidate is one scored cross-platform pairing under consideration.
type candidate struct {
	polyIdx   int
	kalshiIdx int
	sim       float64
}

// Pairs matches Polymarket markets against Kalshi markets one-to-one.
// Candidates below floor are discarded, as are pairs whose categories are
// both known and disagree. The remaining candidates are committed greedily
// by descending similarity; ties break on the Polymarket external ID, then
// the Kalshi external ID, so the result is deterministic regardless of
// input order.
func Pairs(poly, kalshi []models.Market, floor float64) []models.MatchedPair {
	var cands []candidate
	for pi := range poly {
		for ki := range kalshi {
			if poly[pi].Category != "" && kalshi[ki].Category != "" &&
				poly[pi].Category != kalshi[ki].Category {
				continue
			}
			sim := Similarity(poly[pi].Title, kalshi[ki].Title)
			if sim < floor {
				continue
			}
			cands = append(cands, candidate{polyIdx: pi, kalshiIdx: ki, sim: sim})
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.sim != b.sim {
			return a.sim > b.sim
		}
		if poly[a.polyIdx].ExternalID != poly[b.polyIdx].ExternalID {
			return poly[a.polyIdx].ExternalID < poly[b.polyIdx].ExternalID
		}
		return kalshi[a.kalshiIdx].ExternalID < kalshi[b.kalshiIdx].ExternalID
	})

	usedPoly := make(map[int]bool)
	usedKalshi := make(map[int]bool)
	var pairs []models.MatchedPair
	for _, c := range cands {
		if usedPoly[c.polyIdx] || usedKalshi[c.kalshiIdx] {
			continue
		}
		usedPoly[c.polyIdx] = true
		usedKalshi[c.kalshiIdx] = true
		pairs = append(pairs, models.MatchedPair{
			Poly:       &poly[c.polyIdx],
			Kalshi:     &kalshi[c.kalshiIdx],
			Similarity: c.sim,
		})
	}
	return pairs
}
