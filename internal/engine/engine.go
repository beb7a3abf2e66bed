// Package engine runs a sync: discovery of every dataset a link touches,
// table and column matching per link, and idempotent lineage creation.
// Runs are recorded in a core.RunStore and observed by a metrics.Recorder
// when those are configured.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/assetlink/internal/lineage"
	"github.com/leapstack-labs/assetlink/internal/matching"
	"github.com/leapstack-labs/assetlink/internal/metrics"
	"github.com/leapstack-labs/assetlink/pkg/core"
)

// Discoverer returns the records of a dataset.
type Discoverer interface {
	Discover(ctx context.Context, key string, forceRefresh bool) ([]core.AssetRecord, error)
}

// Link is one lineage hop between two datasets.
type Link struct {
	Source  string
	Target  string
	Columns bool
}

// String renders the link as "source:target".
func (l Link) String() string {
	return l.Source + ":" + l.Target
}

// ParseLink parses "source:target".
func ParseLink(s string) (Link, error) {
	src, tgt, ok := strings.Cut(s, ":")
	src, tgt = strings.TrimSpace(src), strings.TrimSpace(tgt)
	if !ok || src == "" || tgt == "" {
		return Link{}, fmt.Errorf("invalid link %q: expected source:target", s)
	}
	if src == tgt {
		return Link{}, fmt.Errorf("invalid link %q: source and target are the same dataset", s)
	}
	return Link{Source: src, Target: tgt}, nil
}

// Config holds engine configuration.
type Config struct {
	// Links are the hops to process, in order.
	Links []Link
	// ForceRefresh bypasses valid cache entries.
	ForceRefresh bool
	// DryRun matches without touching lineage on the platform.
	DryRun bool
	// Runs records run history (optional).
	Runs core.RunStore
	// Metrics observes run results (optional).
	Metrics *metrics.Recorder
	// Now returns the current time (optional, defaults to time.Now).
	Now func() time.Time
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Engine orchestrates a sync run.
type Engine struct {
	discovery Discoverer
	matcher   *matching.Engine
	builder   *lineage.Builder
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
}

// New creates an engine. links may be nil for dry runs and matching only.
func New(discovery Discoverer, links core.LinkStore, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		discovery: discovery,
		matcher:   matching.New(logger.With("component", "matching")),
		cfg:       cfg,
		now:       now,
		logger:    logger,
	}
	if links != nil {
		e.builder = lineage.NewBuilder(links, logger.With("component", "lineage"))
	}
	return e
}
