// Package storage provides SQLite-backed persistence for the scan snapshot,
// alert suppression records, and seen news GUIDs.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/gapsentry/internal/models"
	_ "modernc.org/sqlite"
)

// PersistenceError reports a failed state commit. The in-memory snapshot
// from the previous cycle stays authoritative when this happens.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db          *sql.DB
	maxSeenNews int
}

// New opens or creates the SQLite database at dbPath. The special path
// ":memory:" keeps the database in memory, used by tests.
func New(dbPath string, maxSeenNews int) (*Storage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxSeenNews: maxSeenNews}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshot_markets (
			platform    TEXT NOT NULL,
			external_id TEXT NOT NULL,
			price       REAL NOT NULL,
			fetched_at  INTEGER NOT NULL,
			PRIMARY KEY (platform, external_id)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_pairs (
			pair_key TEXT PRIMARY KEY,
			gap_bps  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_meta (
			id       INTEGER PRIMARY KEY CHECK (id = 1),
			saved_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alert_records (
			signal_key    TEXT PRIMARY KEY,
			last_fired_at INTEGER NOT NULL,
			last_value    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS seen_news (
			guid     TEXT PRIMARY KEY,
			first_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot returns the persisted snapshot, or an empty one when no
// cycle has committed yet.
func (s *Storage) LoadSnapshot() (*models.Snapshot, error) {
	snap := models.NewSnapshot()

	var savedAtNano int64
	err := s.db.QueryRow(`SELECT saved_at FROM snapshot_meta WHERE id = 1`).Scan(&savedAtNano)
	if err == sql.ErrNoRows {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot meta: %w", err)
	}
	snap.SavedAt = time.Unix(0, savedAtNano)

	rows, err := s.db.Query(`SELECT platform, external_id, price, fetched_at FROM snapshot_markets`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot markets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var platform, externalID string
		var price float64
		var fetchedAtNano int64
		if err := rows.Scan(&platform, &externalID, &price, &fetchedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot market: %w", err)
		}
		key := models.MarketKey{Platform: models.Platform(platform), ExternalID: externalID}
		snap.Markets[key] = models.PricePoint{Price: price, FetchedAt: time.Unix(0, fetchedAtNano)}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pairRows, err := s.db.Query(`SELECT pair_key, gap_bps FROM snapshot_pairs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot pairs: %w", err)
	}
	defer pairRows.Close()
	for pairRows.Next() {
		var key string
		var gapBps int
		if err := pairRows.Scan(&key, &gapBps); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot pair: %w", err)
		}
		snap.Pairs[key] = gapBps
	}
	return snap, pairRows.Err()
}

// LoadAlertRecords returns all suppression records keyed by signal key.
func (s *Storage) LoadAlertRecords() (map[string]models.AlertRecord, error) {
	rows, err := s.db.Query(`SELECT signal_key, last_fired_at, last_value FROM alert_records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]models.AlertRecord)
	for rows.Next() {
		var r models.AlertRecord
		var firedAtNano int64
		if err := rows.Scan(&r.SignalKey, &firedAtNano, &r.LastValue); err != nil {
			return nil, fmt.Errorf("failed to scan alert record: %w", err)
		}
		r.LastFiredAt = time.Unix(0, firedAtNano)
		records[r.SignalKey] = r
	}
	return records, rows.Err()
}

// SeenNews reports whether a news GUID has already been alerted.
func (s *Storage) SeenNews(guid string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM seen_news WHERE guid = ?`, guid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check seen news: %w", err)
	}
	return true, nil
}

// Commit replaces the snapshot and alert records wholesale and marks the
// given news GUIDs as seen, all in one transaction. Either everything lands
// or the previously committed state survives untouched.
func (s *Storage) Commit(snap *models.Snapshot, records map[string]models.AlertRecord, seenGUIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM snapshot_markets`); err != nil {
		return &PersistenceError{Op: "clear markets", Err: err}
	}
	for key, point := range snap.Markets {
		if point.Price < 0 || point.Price > 1 {
			return &PersistenceError{Op: "validate market",
				Err: fmt.Errorf("price %v out of range for %s:%s", point.Price, key.Platform, key.ExternalID)}
		}
		if _, err := tx.Exec(
			`INSERT INTO snapshot_markets (platform, external_id, price, fetched_at) VALUES (?,?,?,?)`,
			string(key.Platform), key.ExternalID, point.Price, point.FetchedAt.UnixNano(),
		); err != nil {
			return &PersistenceError{Op: "insert market", Err: err}
		}
	}

	if _, err := tx.Exec(`DELETE FROM snapshot_pairs`); err != nil {
		return &PersistenceError{Op: "clear pairs", Err: err}
	}
	for key, gapBps := range snap.Pairs {
		if _, err := tx.Exec(
			`INSERT INTO snapshot_pairs (pair_key, gap_bps) VALUES (?,?)`,
			key, gapBps,
		); err != nil {
			return &PersistenceError{Op: "insert pair", Err: err}
		}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO snapshot_meta (id, saved_at) VALUES (1, ?)`,
		snap.SavedAt.UnixNano(),
	); err != nil {
		return &PersistenceError{Op: "save meta", Err: err}
	}

	if _, err := tx.Exec(`DELETE FROM alert_records`); err != nil {
		return &PersistenceError{Op: "clear alert records", Err: err}
	}
	for _, r := range records {
		if _, err := tx.Exec(
			`INSERT INTO alert_records (signal_key, last_fired_at, last_value) VALUES (?,?,?)`,
			r.SignalKey, r.LastFiredAt.UnixNano(), r.LastValue,
		); err != nil {
			return &PersistenceError{Op: "insert alert record", Err: err}
		}
	}

	now := time.Now().UnixNano()
	for _, guid := range seenGUIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO seen_news (guid, first_at) VALUES (?,?)`,
			guid, now,
		); err != nil {
			return &PersistenceError{Op: "insert seen news", Err: err}
		}
	}
	if _, err := tx.Exec(`
		DELETE FROM seen_news WHERE guid NOT IN (
			SELECT guid FROM seen_news ORDER BY first_at DESC LIMIT ?
		)`, s.maxSeenNews); err != nil {
		return &PersistenceError{Op: "trim seen news", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	return nil
}
