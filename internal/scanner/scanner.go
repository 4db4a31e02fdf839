// Package scanner orchestrates one scan cycle: fetch, match, detect,
// deduplicate, deliver, and commit.
package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/rewired-gh/gapsentry/internal/config"
	"github.com/rewired-gh/gapsentry/internal/dedup"
	"github.com/rewired-gh/gapsentry/internal/format"
	"github.com/rewired-gh/gapsentry/internal/logger"
	"github.com/rewired-gh/gapsentry/internal/match"
	"github.com/rewired-gh/gapsentry/internal/metrics"
	"github.com/rewired-gh/gapsentry/internal/models"
	"github.com/rewired-gh/gapsentry/internal/news"
	"github.com/rewired-gh/gapsentry/internal/signal"
	"github.com/rewired-gh/gapsentry/internal/storage"
)

// ErrCycleInProgress is returned when a cycle starts while the previous one
// is still running.
var ErrCycleInProgress = errors.New("scan cycle already in progress")

// maxCorrelationAlerts caps the correlation anomalies considered per cycle,
// keeping only the largest movers.
const maxCorrelationAlerts = 2

// MarketFetcher retrieves the active markets of one platform.
type MarketFetcher interface {
	FetchActiveMarkets(ctx context.Context) ([]models.Market, error)
}

// NewsFetcher retrieves the items of one RSS feed.
type NewsFetcher interface {
	FetchFeedItems(ctx context.Context, feedName, feedURL string) ([]models.NewsItem, error)
}

// Deliverer sends one formatted message to the notification channel.
type Deliverer interface {
	Send(text string) error
}

// Scanner runs the detection pipeline over both platforms and the news
// feeds. Cycles never overlap; a tick that arrives while a cycle is running
// is skipped.
type Scanner struct {
	mu sync.Mutex

	store      *storage.Storage
	poly       MarketFetcher
	kalshi     MarketFetcher
	news       NewsFetcher
	filter     *news.Filter
	deliver    Deliverer // nil when notifications are disabled
	policy     *dedup.Policy
	corrPolicy *dedup.Policy
	metrics    *metrics.Metrics
	feeds      []config.FeedConfig
	langs      []language.Tag
	catSet     map[string]bool
	hints      [][2]string
	floor      float64
	gapBps     int
	moveBps    int
	corrBps    int
}

// New builds a scanner from the alert configuration and its collaborators.
// deliver may be nil; signals are then detected and recorded but not sent.
func New(
	cfg config.AlertsConfig,
	store *storage.Storage,
	poly, kalshi MarketFetcher,
	newsFetcher NewsFetcher,
	feeds []config.FeedConfig,
	filter *news.Filter,
	deliver Deliverer,
	m *metrics.Metrics,
) *Scanner {
	langs := make([]language.Tag, 0, len(cfg.Languages))
	for _, code := range cfg.Languages {
		langs = append(langs, format.Resolve(code))
	}
	catSet := make(map[string]bool, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		catSet[cat] = true
	}
	hints := make([][2]string, 0, len(cfg.CorrelationHints))
	for _, hint := range cfg.CorrelationHints {
		if len(hint) == 2 {
			hints = append(hints, [2]string{strings.ToLower(hint[0]), strings.ToLower(hint[1])})
		}
	}
	return &Scanner{
		store:      store,
		poly:       poly,
		kalshi:     kalshi,
		news:       newsFetcher,
		filter:     filter,
		deliver:    deliver,
		policy:     &dedup.Policy{Cooldown: cfg.Cooldown, RealertDeltaBps: cfg.RealertDeltaBps},
		corrPolicy: &dedup.Policy{Cooldown: cfg.CorrelationCooldown, RealertDeltaBps: cfg.RealertDeltaBps},
		metrics:    m,
		feeds:      feeds,
		langs:      langs,
		catSet:     catSet,
		hints:      hints,
		floor:      cfg.SimilarityFloor,
		gapBps:     cfg.ThresholdBps,
		moveBps:    cfg.ThresholdBps,
		corrBps:    cfg.CorrelationMoveBps,
	}
}

// RunCycle executes one scan cycle. It returns ErrCycleInProgress without a
// report when the previous cycle has not finished.
func (s *Scanner) RunCycle(ctx context.Context) (*models.CycleReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer s.mu.Unlock()

	start := time.Now()
	report := &models.CycleReport{CycleID: uuid.NewString()}

	// A failed load degrades to a cold start, not a dead cycle.
	prior, err := s.store.LoadSnapshot()
	if err != nil {
		logger.Error("failed to load snapshot, starting from empty baseline: %v", err)
		report.Errors = append(report.Errors, err)
		prior = models.NewSnapshot()
	}
	records, err := s.store.LoadAlertRecords()
	if err != nil {
		logger.Error("failed to load alert records: %v", err)
		report.Errors = append(report.Errors, err)
		records = make(map[string]models.AlertRecord)
	}

	polyMarkets, kalshiMarkets, items, failed := s.fetchAll(ctx, report)

	polyMarkets = s.selectMarkets(polyMarkets)
	kalshiMarkets = s.selectMarkets(kalshiMarkets)
	report.MarketsScanned = len(polyMarkets) + len(kalshiMarkets)

	pairs := match.Pairs(polyMarkets, kalshiMarkets, s.floor)
	report.PairsMatched = len(pairs)

	gaps := signal.Gaps(pairs, s.gapBps)
	allMarkets := append(append([]models.Market(nil), polyMarkets...), kalshiMarkets...)
	moves := signal.Moves(allMarkets, prior, s.moveBps)
	corrs := signal.Correlations(allMarkets, prior, s.corrBps, s.hints)
	if len(corrs) > maxCorrelationAlerts {
		corrs = corrs[:maxCorrelationAlerts]
	}

	newsSignals := s.filter.Signals(items, func(guid string) bool {
		seen, err := s.store.SeenNews(guid)
		if err != nil {
			logger.Warn("failed to check seen news %s: %v", guid, err)
			return false
		}
		return seen
	})

	now := time.Now().UTC()
	s.fireSignals(gaps, moves, corrs, newsSignals, records, now, report)

	// The next baseline holds every current market and pair gap, fired or
	// not, so the following cycle diffs against fresh prices.
	next := models.NewSnapshot()
	next.SavedAt = now
	for _, m := range allMarkets {
		next.Markets[m.Key()] = models.PricePoint{Price: m.Price, FetchedAt: m.FetchedAt}
	}
	active := make(map[string]bool)
	for i := range pairs {
		gapBps := signal.GapBps(pairs[i])
		next.Pairs[pairs[i].Key()] = gapBps
		active["gap:"+pairs[i].Key()] = true
	}
	for _, m := range allMarkets {
		active["move:"+models.MarketRef(m.Platform, m.ExternalID)] = true
	}

	// A transient outage must not erase the failed platform's baseline or
	// release its suppression records. Carry the prior state forward so the
	// gap does not re-fire inside its cooldown once the platform recovers.
	for key, point := range prior.Markets {
		if !failed[key.Platform] {
			continue
		}
		if _, ok := next.Markets[key]; !ok {
			next.Markets[key] = point
		}
		active["move:"+models.MarketRef(key.Platform, key.ExternalID)] = true
	}
	if failed[models.PlatformPolymarket] || failed[models.PlatformKalshi] {
		for pairKey, gapBps := range prior.Pairs {
			if _, ok := next.Pairs[pairKey]; !ok {
				next.Pairs[pairKey] = gapBps
			}
			active["gap:"+pairKey] = true
		}
	}

	for key := range records {
		if corrRecordActive(key, next.Markets) {
			active[key] = true
		}
	}
	dedup.Prune(records, active)

	seenGUIDs := make([]string, 0, len(items))
	for _, item := range items {
		seenGUIDs = append(seenGUIDs, item.GUID)
	}

	if ctx.Err() != nil {
		logger.Warn("cycle %s cancelled before commit, keeping prior baseline", report.CycleID)
		report.Errors = append(report.Errors, ctx.Err())
		s.finish(report, start)
		return report, nil
	}

	if err := s.store.Commit(next, records, seenGUIDs); err != nil {
		logger.Error("failed to commit cycle state, prior baseline stays authoritative: %v", err)
		report.Errors = append(report.Errors, err)
	} else if s.metrics != nil {
		s.metrics.TrackedMarkets.Set(float64(len(next.Markets)))
		s.metrics.MatchedPairs.Set(float64(len(pairs)))
	}

	s.finish(report, start)
	logger.Info("cycle %s: %d markets, %d pairs, %d signals fired",
		report.CycleID, report.MarketsScanned, report.PairsMatched, report.SignalsFired)
	return report, nil
}

// fetchAll runs the platform and feed fetches concurrently. A failed source
// contributes an empty set and a FetchError; it never blocks its siblings.
// Platforms that failed are reported so the caller can keep their prior
// baseline instead of treating the outage as an empty market list.
func (s *Scanner) fetchAll(ctx context.Context, report *models.CycleReport) ([]models.Market, []models.Market, []models.NewsItem, map[models.Platform]bool) {
	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		polyMarkets   []models.Market
		kalshiMarkets []models.Market
		items         []models.NewsItem
		failed        = make(map[models.Platform]bool)
	)

	fail := func(source string, err error) {
		mu.Lock()
		report.Errors = append(report.Errors, err)
		mu.Unlock()
		if s.metrics != nil {
			s.metrics.FetchErrors.WithLabelValues(source).Inc()
		}
		logger.Warn("fetch %s failed: %v", source, err)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		markets, err := s.poly.FetchActiveMarkets(ctx)
		if err != nil {
			fail("polymarket", err)
			mu.Lock()
			failed[models.PlatformPolymarket] = true
			mu.Unlock()
			return
		}
		mu.Lock()
		polyMarkets = markets
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		markets, err := s.kalshi.FetchActiveMarkets(ctx)
		if err != nil {
			fail("kalshi", err)
			mu.Lock()
			failed[models.PlatformKalshi] = true
			mu.Unlock()
			return
		}
		mu.Lock()
		kalshiMarkets = markets
		mu.Unlock()
	}()

	for _, feed := range s.feeds {
		wg.Add(1)
		go func(feed config.FeedConfig) {
			defer wg.Done()
			feedItems, err := s.news.FetchFeedItems(ctx, feed.Name, feed.URL)
			if err != nil {
				fail("news:"+feed.Name, err)
				return
			}
			mu.Lock()
			items = append(items, feedItems...)
			mu.Unlock()
		}(feed)
	}

	wg.Wait()
	return polyMarkets, kalshiMarkets, items, failed
}

// corrRecordActive reports whether a correlation record key still refers to
// two markets present in the snapshot. Keys look like
// "corr:platform:id|platform:id".
func corrRecordActive(key string, markets map[models.MarketKey]models.PricePoint) bool {
	rest, ok := strings.CutPrefix(key, "corr:")
	if !ok {
		return false
	}
	refs := strings.SplitN(rest, "|", 2)
	if len(refs) != 2 {
		return false
	}
	return marketPresent(refs[0], markets) && marketPresent(refs[1], markets)
}

func marketPresent(ref string, markets map[models.MarketKey]models.PricePoint) bool {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return false
	}
	_, ok := markets[models.MarketKey{Platform: models.Platform(parts[0]), ExternalID: parts[1]}]
	return ok
}

// selectMarkets drops invalid records, markets outside the tracked
// categories, and duplicate keys within one platform's result.
func (s *Scanner) selectMarkets(markets []models.Market) []models.Market {
	seen := make(map[models.MarketKey]bool, len(markets))
	out := markets[:0]
	for i := range markets {
		m := markets[i]
		if err := m.Validate(); err != nil {
			logger.Debug("dropping invalid market: %v", err)
			continue
		}
		if len(s.catSet) > 0 && m.Category != "" && !s.catSet[m.Category] {
			continue
		}
		if seen[m.Key()] {
			continue
		}
		seen[m.Key()] = true
		out = append(out, m)
	}
	return out
}

// fireSignals applies the suppression policy and delivers what passes.
func (s *Scanner) fireSignals(
	gaps []models.GapSignal,
	moves []models.MoveSignal,
	corrs []models.CorrelationSignal,
	newsSignals []models.NewsSignal,
	records map[string]models.AlertRecord,
	now time.Time,
	report *models.CycleReport,
) {
	for i := range gaps {
		sig := &gaps[i]
		fire, record := s.policy.ShouldFire(sig.Key(), sig.GapBps, records, now)
		if !fire {
			continue
		}
		records[sig.Key()] = record
		report.SignalsFired++
		s.count("gap")
		s.send(report, func(tag language.Tag) string { return format.RenderGap(sig, tag) })
	}

	for i := range moves {
		sig := &moves[i]
		fire, record := s.policy.ShouldFire(sig.Key(), sig.MoveBps, records, now)
		if !fire {
			continue
		}
		records[sig.Key()] = record
		report.SignalsFired++
		s.count("move")
		s.send(report, func(tag language.Tag) string { return format.RenderMove(sig, tag) })
	}

	// Correlation anomalies run on their own, longer cooldown.
	for i := range corrs {
		sig := &corrs[i]
		value := sig.MoverMoveBps
		if value < 0 {
			value = -value
		}
		fire, record := s.corrPolicy.ShouldFire(sig.Key(), value, records, now)
		if !fire {
			continue
		}
		records[sig.Key()] = record
		report.SignalsFired++
		s.count("correlation")
		s.send(report, func(tag language.Tag) string { return format.RenderCorrelation(sig, tag) })
	}

	// News dedup runs on GUIDs, not alert records; anything here is new.
	for i := range newsSignals {
		sig := &newsSignals[i]
		report.SignalsFired++
		s.count("news")
		s.send(report, func(tag language.Tag) string { return format.RenderNews(sig, tag) })
	}
}

// send renders the signal once per configured language and delivers each
// rendering. Delivery failures are reported but never undo the suppression
// record already taken.
func (s *Scanner) send(report *models.CycleReport, render func(language.Tag) string) {
	if s.deliver == nil {
		return
	}
	for _, tag := range s.langs {
		if err := s.deliver.Send(render(tag)); err != nil {
			derr := &models.DeliveryError{Language: tag.String(), Err: err}
			logger.Error("%v", derr)
			report.Errors = append(report.Errors, derr)
			if s.metrics != nil {
				s.metrics.DeliveryErrors.Inc()
			}
		}
	}
}

func (s *Scanner) count(signalType string) {
	if s.metrics != nil {
		s.metrics.SignalsTotal.WithLabelValues(signalType).Inc()
	}
}

func (s *Scanner) finish(report *models.CycleReport, start time.Time) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if len(report.Errors) > 0 {
		status = "error"
	}
	s.metrics.CyclesTotal.WithLabelValues(status).Inc()
	s.metrics.CycleDuration.Observe(time.Since(start).Seconds())
}
