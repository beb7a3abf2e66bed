// Package state provides SQLite-backed persistence for assetlink.
// It holds discovery snapshots (an alternative core.CacheStore backend to the
// JSON files in internal/cache) and the history of sync runs.
package state

import (
	"errors"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// ErrNotOpened is returned when the store is used before Open.
var ErrNotOpened = errors.New("database not opened")

// Type aliases so callers can stay within the state package.
type (
	// Run is an alias for core.Run.
	Run = core.Run

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// RunCounts is an alias for core.RunCounts.
	RunCounts = core.RunCounts
)

// Re-export status constants from core.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed
)

var (
	_ core.CacheStore = (*SQLiteStore)(nil)
	_ core.RunStore   = (*SQLiteStore)(nil)
)
