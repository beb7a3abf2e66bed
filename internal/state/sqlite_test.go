package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/assetlink/internal/testutil"
	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func setupTestStore(t *testing.T) (*SQLiteStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	store := NewSQLiteStore(Config{Now: clock.Now, Logger: testutil.NewTestLogger(t)})
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func sampleRecords() []core.AssetRecord {
	return []core.AssetRecord{
		{QualifiedName: "default/snowflake/2/DB/PUBLIC/CUSTOMERS", Name: "CUSTOMERS", Kind: core.KindTable},
		{QualifiedName: "default/snowflake/2/DB/PUBLIC/CUSTOMERS/ID", Name: "ID", Kind: core.KindColumn},
		{QualifiedName: "default/snowflake/2/DB/PUBLIC/ORDERS", Name: "ORDERS", Kind: core.KindTable},
	}
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(Config{})

	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_InitSchema(t *testing.T) {
	store, _ := setupTestStore(t)

	for _, table := range []string{"cache_entries", "cache_records", "runs"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
			continue
		}
		_ = rows.Close()
	}

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Re-running migrations is a no-op.
	require.NoError(t, store.InitSchema())
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := NewSQLiteStore(Config{})
	require.NoError(t, store.Open(path))
	require.NoError(t, store.InitSchema())
	require.NoError(t, store.Save("postgres", sampleRecords()))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(Config{})
	require.NoError(t, reopened.Open(path))
	defer reopened.Close()
	require.NoError(t, reopened.InitSchema())

	entry, ok := reopened.Load("postgres")
	require.True(t, ok)
	assert.Equal(t, sampleRecords(), entry.Records)
	assert.Equal(t, path, reopened.Path())
}

func TestSQLiteStore_CacheRoundTrip(t *testing.T) {
	store, clock := setupTestStore(t)

	require.NoError(t, store.Save("snowflake", sampleRecords()))

	entry, ok := store.Load("snowflake")
	require.True(t, ok)
	assert.Equal(t, sampleRecords(), entry.Records)
	assert.True(t, entry.CapturedAt.Equal(clock.now))

	// Overwrite with fewer records replaces the whole snapshot.
	require.NoError(t, store.Save("snowflake", sampleRecords()[:1]))
	entry, ok = store.Load("snowflake")
	require.True(t, ok)
	assert.Len(t, entry.Records, 1)

	_, ok = store.Load("postgres")
	assert.False(t, ok, "keys are independent")
}

func TestSQLiteStore_ValidityBoundary(t *testing.T) {
	store, clock := setupTestStore(t)
	const maxAge = 6 * time.Hour
	require.NoError(t, store.Save("postgres", sampleRecords()))
	start := clock.now

	clock.now = start.Add(maxAge - time.Second)
	assert.True(t, store.IsValid("postgres", maxAge))

	clock.now = start.Add(maxAge + time.Second)
	assert.False(t, store.IsValid("postgres", maxAge))
}

func TestSQLiteStore_CapturedAtIsMonotonic(t *testing.T) {
	store, clock := setupTestStore(t)
	first := clock.now
	require.NoError(t, store.Save("postgres", sampleRecords()))

	clock.now = first.Add(-time.Minute)
	require.NoError(t, store.Save("postgres", sampleRecords()))

	entry, ok := store.Load("postgres")
	require.True(t, ok)
	assert.True(t, entry.CapturedAt.Equal(first))
}

func TestSQLiteStore_ClearAndStatus(t *testing.T) {
	store, clock := setupTestStore(t)

	assert.Equal(t, core.CacheStatus{Key: "postgres"}, store.Status("postgres", time.Hour))
	require.NoError(t, store.Save("postgres", sampleRecords()))

	clock.now = clock.now.Add(30 * time.Minute)
	status := store.Status("postgres", time.Hour)
	assert.True(t, status.Present)
	assert.True(t, status.Valid)
	assert.InDelta(t, 1800, status.AgeSeconds, 0.001)
	assert.Equal(t, 3, status.Records)

	require.NoError(t, store.Clear("postgres"))
	assert.False(t, store.Status("postgres", time.Hour).Present)
	require.NoError(t, store.Clear("postgres"))
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(Config{})

	_, ok := store.Load("postgres")
	assert.False(t, ok)
	assert.ErrorIs(t, store.Save("postgres", nil), ErrNotOpened)
	assert.ErrorIs(t, store.Clear("postgres"), ErrNotOpened)
	_, err := store.CreateRun(nil)
	assert.ErrorIs(t, err, ErrNotOpened)
}

func TestSQLiteStore_SaveFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLiteStoreWithDB(db, Config{})

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT captured_at FROM cache_entries`).
		WithArgs("postgres").
		WillReturnRows(sqlmock.NewRows([]string{"captured_at"}))
	mock.ExpectExec(`DELETE FROM cache_records`).
		WithArgs("postgres").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO cache_entries`).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = store.Save("postgres", sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert cache entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_LoadFailsSoft(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger, logs := testutil.NewCaptureLogger()
	store := NewSQLiteStoreWithDB(db, Config{Logger: logger})

	mock.ExpectQuery(`SELECT captured_at FROM cache_entries`).
		WithArgs("postgres").
		WillReturnError(errors.New("database disk image is malformed"))

	entry, ok := store.Load("postgres")
	assert.False(t, ok)
	assert.Nil(t, entry)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "malformed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_LoadRejectsBadTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLiteStoreWithDB(db, Config{})
	mock.ExpectQuery(`SELECT captured_at FROM cache_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"captured_at"}).AddRow("not a time"))

	_, ok := store.Load("postgres")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Run history tests ---

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	store, clock := setupTestStore(t)

	run, err := store.CreateRun([]string{"postgres:staging", "staging:snowflake"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	clock.now = clock.now.Add(time.Minute)
	counts := RunCounts{Discovered: 40, Matched: 12, Ambiguous: 1, Created: 3, Verified: 8, Failed: 1}
	require.NoError(t, store.CompleteRun(run.ID, RunStatusCompleted, counts, ""))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, counts, got.Counts)
	assert.Equal(t, []string{"postgres:staging", "staging:snowflake"}, got.Links)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(clock.now))
	assert.Empty(t, got.Error)
}

func TestSQLiteStore_FailedRunKeepsError(t *testing.T) {
	store, _ := setupTestStore(t)

	run, err := store.CreateRun(nil)
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(run.ID, RunStatusFailed, RunCounts{}, "page 3 failed"))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "page 3 failed", got.Error)
	assert.Empty(t, got.Links)
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.GetRun("missing")
	assert.ErrorContains(t, err, "run not found")
	assert.ErrorContains(t, store.CompleteRun("missing", RunStatusCompleted, RunCounts{}, ""), "run not found")
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store, clock := setupTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.CreateRun([]string{"a:b"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
		clock.now = clock.now.Add(time.Hour)
	}

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "newest first")
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
