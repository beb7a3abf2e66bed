package core

import "time"

// CacheEntry is a timestamped snapshot of a complete discovery pass.
type CacheEntry struct {
	CapturedAt time.Time
	Records    []AssetRecord
}

// Age returns how old the entry is relative to now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CapturedAt)
}

// ValidAt reports whether the entry is younger than maxAge at now.
func (e *CacheEntry) ValidAt(now time.Time, maxAge time.Duration) bool {
	return e != nil && now.Sub(e.CapturedAt) < maxAge
}

// CacheStatus describes a cache entry without exposing its records.
type CacheStatus struct {
	Key        string
	Present    bool
	AgeSeconds float64
	Valid      bool
	Records    int
}

// CacheStore persists discovery snapshots, one per dataset key.
//
// Load fails soft: a missing, unreadable or malformed entry is reported as
// absent. Save must only be called with the records of a complete pass.
type CacheStore interface {
	Load(key string) (*CacheEntry, bool)
	IsValid(key string, maxAge time.Duration) bool
	Save(key string, records []AssetRecord) error
	Clear(key string) error
	Status(key string, maxAge time.Duration) CacheStatus
}
