package news

import (
	"sort"
	"strings"

	"github.com/rewired-gh/gapsentry/internal/match"
	"github.com/rewired-gh/gapsentry/internal/models"
)

// nearDupThreshold is the title similarity above which two headlines are
// treated as the same story.
const nearDupThreshold = 0.8

// Filter selects market-relevant news items by keyword rules.
type Filter struct {
	rules map[string][]string // category → keywords, lowercased
}

// NewFilter builds a filter from category keyword rules.
func NewFilter(rules map[string][]string) *Filter {
	lowered := make(map[string][]string, len(rules))
	for cat, kws := range rules {
		out := make([]string, 0, len(kws))
		for _, kw := range kws {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				out = append(out, kw)
			}
		}
		if len(out) > 0 {
			lowered[cat] = out
		}
	}
	return &Filter{rules: lowered}
}

// Signals returns one signal per relevant, previously unseen item. seen
// reports whether a GUID was already alerted in an earlier cycle. Within a
// batch, headlines nearly identical to one already selected are suppressed
// so syndicated copies of one story alert once.
func (f *Filter) Signals(items []models.NewsItem, seen func(guid string) bool) []models.NewsSignal {
	var signals []models.NewsSignal
	var acceptedTitles []string

	for _, item := range items {
		if seen(item.GUID) {
			continue
		}

		keywords, category := f.classify(item.Title)
		if len(keywords) == 0 {
			continue
		}

		dup := false
		for _, title := range acceptedTitles {
			if match.Similarity(title, item.Title) > nearDupThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		acceptedTitles = append(acceptedTitles, item.Title)
		signals = append(signals, models.NewsSignal{
			Item:            item,
			MatchedKeywords: keywords,
			Category:        category,
		})
	}
	return signals
}

// classify returns every keyword the title contains and the category with
// the most hits. Ties between categories break lexicographically.
func (f *Filter) classify(title string) ([]string, string) {
	lowered := strings.ToLower(title)

	var all []string
	best := ""
	bestHits := 0
	for cat, kws := range f.rules {
		hits := 0
		for _, kw := range kws {
			if strings.Contains(lowered, kw) {
				all = append(all, kw)
				hits++
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && cat < best) {
			best = cat
			bestHits = hits
		}
	}
	if len(all) == 0 {
		return nil, ""
	}

	sort.Strings(all)
	all = dedupeStrings(all)
	return all, best
}

func dedupeStrings(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
