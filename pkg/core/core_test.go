package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"Table", KindTable},
		{"Column", KindColumn},
		{"Schema", KindSchema},
		{"Object", KindObject},
		{"S3Object", KindObject},
		{"View", Kind("View")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.in))
		})
	}
}

func TestAssetRecord_Parent(t *testing.T) {
	col := AssetRecord{QualifiedName: "default/postgres/1/db/public/customers/id", Kind: KindColumn}
	assert.Equal(t, "default/postgres/1/db/public/customers", col.Parent())

	assert.Empty(t, AssetRecord{QualifiedName: "root"}.Parent())
	assert.Empty(t, AssetRecord{QualifiedName: "/root"}.Parent())
}

func TestIdempotencyKey(t *testing.T) {
	link := LineageLink{
		Source: AssetRecord{QualifiedName: "a/b/customers"},
		Target: AssetRecord{QualifiedName: "x/y/CUSTOMERS"},
		Level:  LevelTable,
	}

	key := link.Key()
	assert.Equal(t, "table:a/b/customers->x/y/CUSTOMERS", key.String())
	assert.Len(t, key.Digest(), 32)
	assert.Equal(t, key.Digest(), link.Key().Digest(), "digest must be deterministic")

	column := key
	column.Level = LevelColumn
	assert.NotEqual(t, key.Digest(), column.Digest(), "level is part of the key")

	reversed := IdempotencyKey{Source: key.Target, Target: key.Source, Level: key.Level}
	assert.NotEqual(t, key.Digest(), reversed.Digest(), "direction is part of the key")
}

func TestSummarize(t *testing.T) {
	outcomes := []LinkOutcome{
		{Status: LinkCreated},
		{Status: LinkVerified},
		{Status: LinkVerified},
		{Status: LinkFailed, Err: errors.New("boom")},
	}
	s := Summarize(outcomes)
	assert.Equal(t, LinkSummary{Created: 1, Verified: 2, Failed: 1}, s)
	assert.Equal(t, 4, s.Total())
	assert.Equal(t, LinkSummary{Created: 2, Verified: 4, Failed: 2}, s.Add(s))
}

func TestCacheEntry_ValidAt(t *testing.T) {
	captured := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	entry := &CacheEntry{CapturedAt: captured}
	maxAge := 24 * time.Hour

	assert.True(t, entry.ValidAt(captured.Add(maxAge-time.Second), maxAge))
	assert.False(t, entry.ValidAt(captured.Add(maxAge), maxAge))
	assert.False(t, entry.ValidAt(captured.Add(maxAge+time.Second), maxAge))

	var missing *CacheEntry
	assert.False(t, missing.ValidAt(captured, maxAge))
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("timeout")

	var remote *RemoteDiscoveryError
	err := fmt.Errorf("sync: %w", &RemoteDiscoveryError{Key: "snowflake", Page: 3, Err: cause})
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 3, remote.Page)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `"snowflake" failed on page 3`)

	creation := &LineageCreationError{Key: IdempotencyKey{Source: "a", Target: "b", Level: LevelTable}, Err: cause}
	assert.ErrorIs(t, creation, cause)
	assert.Contains(t, creation.Error(), "table:a->b")

	corrupt := &CacheCorruptionError{Key: "postgres", Err: cause}
	assert.ErrorIs(t, corrupt, cause)
}

func TestAmbiguityWarning_Error(t *testing.T) {
	first := AssetRecord{QualifiedName: "t/CUSTOMERS/NAME"}
	second := AssetRecord{QualifiedName: "t/CUSTOMERS/NAME#2"}
	w := &AmbiguityWarning{
		Level:      LevelColumn,
		Source:     AssetRecord{QualifiedName: "s/CUSTOMERS/NAME"},
		Chosen:     first,
		Candidates: []AssetRecord{first, second},
	}
	assert.Contains(t, w.Error(), "matches 2 targets")
	assert.Contains(t, w.Error(), `using "t/CUSTOMERS/NAME"`)
}
