package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/assetlink/internal/testutil"
	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func sampleRecords() []core.AssetRecord {
	return []core.AssetRecord{
		{QualifiedName: "default/postgres/1/db/public/customers", Name: "customers", Kind: core.KindTable},
		{QualifiedName: "default/postgres/1/db/public/customers/id", Name: "id", Kind: core.KindColumn},
		{QualifiedName: "default/postgres/1/db/public", Name: "public", Kind: core.KindSchema},
		{QualifiedName: "default/postgres/1/db/public/orders", Name: "orders", Kind: core.KindTable},
	}
}

func newTestStore(t *testing.T) (*FileStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	store := NewFileStore(FileConfig{
		Dir:    filepath.Join(t.TempDir(), "cache"),
		Now:    clock.Now,
		Logger: testutil.NewTestLogger(t),
	})
	return store, clock
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, clock := newTestStore(t)
	records := sampleRecords()

	require.NoError(t, store.Save("postgres", records))

	entry, ok := store.Load("postgres")
	require.True(t, ok)
	assert.Equal(t, records, entry.Records, "records must round-trip in content and order")
	assert.True(t, entry.CapturedAt.Equal(clock.now))
}

func TestFileStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	entry, ok := store.Load("nothing")
	assert.False(t, ok)
	assert.Nil(t, entry)
	assert.False(t, store.IsValid("nothing", time.Hour))
}

func TestFileStore_ValidityBoundary(t *testing.T) {
	const maxAge = 24 * time.Hour

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"fresh", 0, true},
		{"one second before expiry", maxAge - time.Second, true},
		{"exactly at expiry", maxAge, false},
		{"one second after expiry", maxAge + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, clock := newTestStore(t)
			require.NoError(t, store.Save("snowflake", sampleRecords()))

			clock.Advance(tt.elapsed)
			assert.Equal(t, tt.want, store.IsValid("snowflake", maxAge))
		})
	}
}

func TestFileStore_OnDiskFormat(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save("postgres", sampleRecords()[:1]))

	raw, err := os.ReadFile(store.Path("postgres"))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc, 2)
	assert.JSONEq(t, `"2024-01-15T10:30:00Z"`, string(doc["timestamp"]))
	assert.JSONEq(t, `[["default/postgres/1/db/public/customers","customers","Table"]]`, string(doc["data"]))
}

func TestFileStore_EmptyRecordsEncodeAsArray(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save("empty", nil))

	raw, err := os.ReadFile(store.Path("empty"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data": []`)

	entry, ok := store.Load("empty")
	require.True(t, ok)
	assert.Empty(t, entry.Records)
}

func TestFileStore_CorruptEntryIsAbsent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{not json"},
		{"missing timestamp", `{"data": []}`},
		{"bad timestamp", `{"timestamp": "yesterday", "data": []}`},
		{"data not a list", `{"timestamp": "2024-01-15T10:30:00Z", "data": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewCaptureLogger()
			dir := t.TempDir()
			store := NewFileStore(FileConfig{Dir: dir, Logger: logger})
			require.NoError(t, os.WriteFile(store.Path("broken"), []byte(tt.content), 0600))

			entry, ok := store.Load("broken")
			assert.False(t, ok)
			assert.Nil(t, entry)
			assert.False(t, store.IsValid("broken", time.Hour))
			assert.Contains(t, logs.String(), "level=WARN")
			assert.Contains(t, logs.String(), "is corrupt")
		})
	}
}

func TestFileStore_IgnoresMalformedRecords(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	dir := t.TempDir()
	store := NewFileStore(FileConfig{Dir: dir, Logger: logger})

	content := `{
  "timestamp": "2024-01-15T10:30:00.123456",
  "data": [
    ["a/b/customers", "customers", "Table"],
    ["a/b/orders", "orders"],
    ["a/b/orders/id", "id", "Column", "extra"],
    ["a/b/payments", "payments", 7],
    ["a/b/s3/users.csv", "users.csv", "S3Object"]
  ]
}`
	require.NoError(t, os.WriteFile(store.Path("legacy"), []byte(content), 0600))

	entry, ok := store.Load("legacy")
	require.True(t, ok)
	assert.Equal(t, []core.AssetRecord{
		{QualifiedName: "a/b/customers", Name: "customers", Kind: core.KindTable},
		{QualifiedName: "a/b/s3/users.csv", Name: "users.csv", Kind: core.KindObject},
	}, entry.Records)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC), entry.CapturedAt)
	assert.Equal(t, 1, logs.Count("ignored malformed cache records"))
}

func TestFileStore_CapturedAtIsMonotonic(t *testing.T) {
	store, clock := newTestStore(t)
	first := clock.now

	require.NoError(t, store.Save("postgres", sampleRecords()))

	clock.Advance(-time.Hour)
	require.NoError(t, store.Save("postgres", sampleRecords()[:1]))

	entry, ok := store.Load("postgres")
	require.True(t, ok)
	assert.True(t, entry.CapturedAt.Equal(first), "timestamp must not move backwards")
	assert.Len(t, entry.Records, 1, "records are still replaced")

	clock.Advance(3 * time.Hour)
	require.NoError(t, store.Save("postgres", sampleRecords()))
	entry, ok = store.Load("postgres")
	require.True(t, ok)
	assert.True(t, entry.CapturedAt.Equal(clock.now))
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save("postgres", sampleRecords()))
	require.NoError(t, store.Save("postgres", sampleRecords()))

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "postgres.json", entries[0].Name())
}

func TestFileStore_SaveRequiresKey(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.Save("  ", sampleRecords()))
}

func TestFileStore_ClearAndStatus(t *testing.T) {
	store, clock := newTestStore(t)

	status := store.Status("postgres", time.Hour)
	assert.Equal(t, core.CacheStatus{Key: "postgres"}, status)

	require.NoError(t, store.Save("postgres", sampleRecords()))
	clock.Advance(90 * time.Minute)

	status = store.Status("postgres", time.Hour)
	assert.True(t, status.Present)
	assert.False(t, status.Valid)
	assert.InDelta(t, 5400, status.AgeSeconds, 0.001)
	assert.Equal(t, 4, status.Records)

	status = store.Status("postgres", 2*time.Hour)
	assert.True(t, status.Valid)

	require.NoError(t, store.Clear("postgres"))
	assert.False(t, store.Status("postgres", time.Hour).Present)
	assert.NoError(t, store.Clear("postgres"), "clearing a missing entry is a no-op")
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "postgres", sanitizeKey("postgres"))
	assert.Equal(t, "snowflake-ary_v1.0", sanitizeKey("snowflake-ary_v1.0"))
	assert.Equal(t, "s3_bucket_prefix", sanitizeKey("s3/bucket prefix"))
}
