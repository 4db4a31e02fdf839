package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/rewired-gh/gapsentry/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:", 1000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot(price float64, at time.Time) *models.Snapshot {
	snap := models.NewSnapshot()
	snap.Markets[models.MarketKey{Platform: models.PlatformPolymarket, ExternalID: "p1"}] =
		models.PricePoint{Price: price, FetchedAt: at}
	snap.Markets[models.MarketKey{Platform: models.PlatformKalshi, ExternalID: "k1"}] =
		models.PricePoint{Price: 0.44, FetchedAt: at}
	snap.Pairs["p1|k1"] = 1720
	snap.SavedAt = at
	return snap
}

func TestLoadSnapshotEmpty(t *testing.T) {
	s := newTestStorage(t)

	snap, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(snap.Markets) != 0 || len(snap.Pairs) != 0 {
		t.Errorf("expected empty snapshot, got %d markets, %d pairs", len(snap.Markets), len(snap.Pairs))
	}
	if !snap.SavedAt.IsZero() {
		t.Errorf("SavedAt = %v, want zero", snap.SavedAt)
	}
}

func TestCommitAndLoadRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	at := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

	snap := sampleSnapshot(0.62, at)
	records := map[string]models.AlertRecord{
		"gap:p1|k1": {SignalKey: "gap:p1|k1", LastFiredAt: at, LastValue: 1720},
	}

	if err := s.Commit(snap, records, []string{"guid-1", "guid-2"}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	key := models.MarketKey{Platform: models.PlatformPolymarket, ExternalID: "p1"}
	if got := loaded.Markets[key]; got.Price != 0.62 || !got.FetchedAt.Equal(at) {
		t.Errorf("loaded market = %+v, want price 0.62 at %v", got, at)
	}
	if loaded.Pairs["p1|k1"] != 1720 {
		t.Errorf("loaded pair gap = %d, want 1720", loaded.Pairs["p1|k1"])
	}
	if !loaded.SavedAt.Equal(at) {
		t.Errorf("SavedAt = %v, want %v", loaded.SavedAt, at)
	}

	loadedRecords, err := s.LoadAlertRecords()
	if err != nil {
		t.Fatalf("LoadAlertRecords() error = %v", err)
	}
	r, ok := loadedRecords["gap:p1|k1"]
	if !ok || r.LastValue != 1720 || !r.LastFiredAt.Equal(at) {
		t.Errorf("loaded record = %+v, want value 1720 at %v", r, at)
	}

	for _, guid := range []string{"guid-1", "guid-2"} {
		seen, err := s.SeenNews(guid)
		if err != nil {
			t.Fatalf("SeenNews(%q) error = %v", guid, err)
		}
		if !seen {
			t.Errorf("SeenNews(%q) = false, want true", guid)
		}
	}
	if seen, _ := s.SeenNews("guid-3"); seen {
		t.Error("SeenNews(guid-3) = true, want false")
	}
}

func TestCommitReplacesWholesale(t *testing.T) {
	s := newTestStorage(t)
	at := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

	if err := s.Commit(sampleSnapshot(0.62, at), nil, nil); err != nil {
		t.Fatalf("first Commit() error = %v", err)
	}

	// Second snapshot drops k1 and the pair entirely.
	next := models.NewSnapshot()
	next.Markets[models.MarketKey{Platform: models.PlatformPolymarket, ExternalID: "p1"}] =
		models.PricePoint{Price: 0.70, FetchedAt: at.Add(time.Hour)}
	next.SavedAt = at.Add(time.Hour)

	if err := s.Commit(next, nil, nil); err != nil {
		t.Fatalf("second Commit() error = %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(loaded.Markets) != 1 {
		t.Errorf("loaded %d markets, want 1", len(loaded.Markets))
	}
	if len(loaded.Pairs) != 0 {
		t.Errorf("loaded %d pairs, want 0 after replacement", len(loaded.Pairs))
	}
}

func TestCommitAtomicRollback(t *testing.T) {
	s := newTestStorage(t)
	at := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

	good := sampleSnapshot(0.62, at)
	if err := s.Commit(good, nil, []string{"guid-1"}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	// An out-of-range price aborts the transaction partway through.
	bad := sampleSnapshot(1.5, at.Add(time.Hour))
	err := s.Commit(bad, nil, []string{"guid-2"})
	if err == nil {
		t.Fatal("Commit() with invalid price should fail")
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Commit() error = %T, want *PersistenceError", err)
	}

	// The earlier committed state must survive untouched.
	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	key := models.MarketKey{Platform: models.PlatformPolymarket, ExternalID: "p1"}
	if got := loaded.Markets[key]; got.Price != 0.62 {
		t.Errorf("price after failed commit = %v, want 0.62", got.Price)
	}
	if !loaded.SavedAt.Equal(at) {
		t.Errorf("SavedAt = %v, want %v", loaded.SavedAt, at)
	}
	if seen, _ := s.SeenNews("guid-2"); seen {
		t.Error("guid-2 marked seen despite rollback")
	}
}

func TestSeenNewsTrim(t *testing.T) {
	s, err := New(":memory:", 1000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()
	s.maxSeenNews = 2

	at := time.Now()
	if err := s.Commit(sampleSnapshot(0.5, at), nil, []string{"g1"}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := s.Commit(sampleSnapshot(0.5, at), nil, []string{"g2", "g3"}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if seen, _ := s.SeenNews("g1"); seen {
		t.Error("oldest GUID survived trim")
	}
	for _, guid := range []string{"g2", "g3"} {
		if seen, _ := s.SeenNews(guid); !seen {
			t.Errorf("SeenNews(%q) = false, want true", guid)
		}
	}
}
