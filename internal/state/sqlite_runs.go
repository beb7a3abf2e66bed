package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// CreateRun records the start of a sync run over the given links.
func (s *SQLiteStore) CreateRun(links []string) (*core.Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}
	if links == nil {
		links = []string{}
	}

	encoded, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("encode links: %w", err)
	}

	run := &core.Run{
		ID:        generateID(),
		Links:     links,
		Status:    core.RunStatusRunning,
		StartedAt: s.now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.Any("links", links))

	_, err = s.db.ExecContext(ctx(),
		`INSERT INTO runs (id, links, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(encoded), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// CompleteRun marks a run finished with its final counts.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, counts core.RunCounts, errMsg string) error {
	if s.db == nil {
		return ErrNotOpened
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.ExecContext(ctx(), `
		UPDATE runs SET status = ?, completed_at = ?,
			discovered = ?, matched = ?, ambiguous = ?, created = ?, verified = ?, failed = ?,
			error = ?
		WHERE id = ?
	`, string(status), formatTime(s.now()),
		counts.Discovered, counts.Matched, counts.Ambiguous, counts.Created, counts.Verified, counts.Failed,
		errVal, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

const runColumns = `id, links, status, started_at, completed_at,
	discovered, matched, ambiguous, created, verified, failed, error`

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	row := s.db.QueryRowContext(ctx(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*core.Run, error) {
	var (
		run         core.Run
		links       string
		status      string
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
	)
	if err := row.Scan(&run.ID, &links, &status, &startedAt, &completedAt,
		&run.Counts.Discovered, &run.Counts.Matched, &run.Counts.Ambiguous,
		&run.Counts.Created, &run.Counts.Verified, &run.Counts.Failed, &errMsg); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(links), &run.Links); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	run.Status = core.RunStatus(status)

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return &run, nil
}
