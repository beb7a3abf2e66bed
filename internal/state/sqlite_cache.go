package state

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// Load reads the snapshot for key. Query failures and unparseable rows are
// logged as corruption and reported absent.
func (s *SQLiteStore) Load(key string) (*core.CacheEntry, bool) {
	if s.db == nil {
		s.warnCorrupt(key, ErrNotOpened)
		return nil, false
	}

	var capturedAt string
	err := s.db.QueryRowContext(ctx(),
		`SELECT captured_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&capturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("no cache entry", "key", key)
		return nil, false
	}
	if err != nil {
		s.warnCorrupt(key, err)
		return nil, false
	}

	ts, err := parseTime(capturedAt)
	if err != nil {
		s.warnCorrupt(key, err)
		return nil, false
	}

	rows, err := s.db.QueryContext(ctx(), `
		SELECT qualified_name, name, kind FROM cache_records
		WHERE key = ?
		ORDER BY position
	`, key)
	if err != nil {
		s.warnCorrupt(key, err)
		return nil, false
	}
	defer func() { _ = rows.Close() }()

	entry := &core.CacheEntry{CapturedAt: ts, Records: []core.AssetRecord{}}
	for rows.Next() {
		var qn, name, kind string
		if err := rows.Scan(&qn, &name, &kind); err != nil {
			s.warnCorrupt(key, err)
			return nil, false
		}
		entry.Records = append(entry.Records, core.AssetRecord{QualifiedName: qn, Name: name, Kind: core.ParseKind(kind)})
	}
	if err := rows.Err(); err != nil {
		s.warnCorrupt(key, err)
		return nil, false
	}

	s.logger.Debug("loaded cache entry", "key", key, "records", len(entry.Records))
	return entry, true
}

func (s *SQLiteStore) warnCorrupt(key string, err error) {
	s.logger.Warn("treating cache entry as absent",
		"path", s.path, "error", &core.CacheCorruptionError{Key: key, Err: err})
}

// IsValid reports whether an entry exists for key and is younger than maxAge.
func (s *SQLiteStore) IsValid(key string, maxAge time.Duration) bool {
	entry, ok := s.Load(key)
	return ok && entry.ValidAt(s.now(), maxAge)
}

// Save replaces the snapshot for key in a single transaction.
// The stored timestamp never moves backwards for a key.
func (s *SQLiteStore) Save(key string, records []core.AssetRecord) error {
	if s.db == nil {
		return ErrNotOpened
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("cache key is required")
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	capturedAt := s.now().UTC()
	var prev string
	err = tx.QueryRowContext(ctx(), `SELECT captured_at FROM cache_entries WHERE key = ?`, key).Scan(&prev)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read previous entry: %w", err)
	default:
		if prevTime, perr := parseTime(prev); perr == nil && prevTime.After(capturedAt) {
			capturedAt = prevTime
		}
	}

	if _, err := tx.ExecContext(ctx(), `DELETE FROM cache_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete previous records: %w", err)
	}

	if _, err := tx.ExecContext(ctx(), `
		INSERT INTO cache_entries (key, captured_at) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET captured_at = excluded.captured_at
	`, key, formatTime(capturedAt)); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx(), `
		INSERT INTO cache_records (key, position, qualified_name, name, kind)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx(), key, i, r.QualifiedName, r.Name, string(r.Kind)); err != nil {
			return fmt.Errorf("insert record %s: %w", r.QualifiedName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("saved cache entry", "key", key, "records", len(records), "path", s.path)
	return nil
}

// Clear removes the snapshot for key. Clearing a missing entry is not an error.
func (s *SQLiteStore) Clear(key string) error {
	if s.db == nil {
		return ErrNotOpened
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx(), `DELETE FROM cache_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if _, err := tx.ExecContext(ctx(), `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return tx.Commit()
}

// Status describes the snapshot for key without returning its records.
func (s *SQLiteStore) Status(key string, maxAge time.Duration) core.CacheStatus {
	status := core.CacheStatus{Key: key}
	entry, ok := s.Load(key)
	if !ok {
		return status
	}
	now := s.now()
	status.Present = true
	status.AgeSeconds = entry.Age(now).Seconds()
	status.Valid = entry.ValidAt(now, maxAge)
	status.Records = len(entry.Records)
	return status
}
