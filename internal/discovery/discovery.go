// Package discovery lists every asset under a dataset prefix, page by page,
// and keeps the result in a core.CacheStore so repeated runs inside the
// freshness window make no remote calls.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// Source names a dataset can be read from.
const (
	SourcePlatform = "platform"
	SourceBucket   = "bucket"
)

// progressEvery is how many processed records pass between progress logs.
const progressEvery = 100

// DefaultMaxAge is the cache freshness window used when Config.MaxAge is zero.
const DefaultMaxAge = 24 * time.Hour

// Dataset is a named, prefix-scoped slice of an inventory.
type Dataset struct {
	// Key identifies the dataset and its cache entry.
	Key string
	// Prefix is the qualified-name prefix every record must fall under.
	Prefix string
	// Source selects the AssetSource; empty means SourcePlatform.
	Source string
}

// Config configures a Discoverer.
type Config struct {
	// Datasets are the known datasets.
	Datasets []Dataset
	// MaxAge is the cache freshness window (optional, defaults to DefaultMaxAge).
	MaxAge time.Duration
	// Sources holds additional sources by name, e.g. SourceBucket.
	Sources map[string]core.AssetSource
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Discoverer implements the cache-aware discovery pass.
type Discoverer struct {
	sources  map[string]core.AssetSource
	store    core.CacheStore
	datasets map[string]Dataset
	order    []string
	maxAge   time.Duration
	logger   *slog.Logger
}

// New creates a Discoverer. source serves datasets whose Source is empty or
// SourcePlatform.
func New(source core.AssetSource, store core.CacheStore, cfg Config) *Discoverer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	sources := make(map[string]core.AssetSource, len(cfg.Sources)+1)
	for name, s := range cfg.Sources {
		sources[name] = s
	}
	if source != nil {
		sources[SourcePlatform] = source
	}

	d := &Discoverer{
		sources:  sources,
		store:    store,
		datasets: make(map[string]Dataset, len(cfg.Datasets)),
		maxAge:   maxAge,
		logger:   logger,
	}
	for _, ds := range cfg.Datasets {
		if ds.Source == "" {
			ds.Source = SourcePlatform
		}
		if _, seen := d.datasets[ds.Key]; !seen {
			d.order = append(d.order, ds.Key)
		}
		d.datasets[ds.Key] = ds
	}
	return d
}

// Datasets returns the configured datasets in configuration order.
func (d *Discoverer) Datasets() []Dataset {
	out := make([]Dataset, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.datasets[key])
	}
	return out
}

// Dataset looks up a dataset by key.
func (d *Discoverer) Dataset(key string) (Dataset, bool) {
	ds, ok := d.datasets[key]
	return ds, ok
}

// MaxAge returns the freshness window applied to cache entries.
func (d *Discoverer) MaxAge() time.Duration {
	return d.maxAge
}

// Discover returns every record of the dataset. A valid cache entry is
// returned as-is unless forceRefresh is set. Otherwise all pages are fetched
// in order and the complete result is saved before returning; a failed page
// aborts the pass and leaves the cache untouched.
func (d *Discoverer) Discover(ctx context.Context, key string, forceRefresh bool) ([]core.AssetRecord, error) {
	ds, ok := d.datasets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownDataset, key)
	}

	if !forceRefresh && d.store.IsValid(key, d.maxAge) {
		if entry, ok := d.store.Load(key); ok {
			d.logger.Info("using cached assets",
				"dataset", key,
				"records", len(entry.Records),
				"captured_at", entry.CapturedAt)
			return entry.Records, nil
		}
	}

	source, ok := d.sources[ds.Source]
	if !ok {
		return nil, fmt.Errorf("dataset %s: no source named %q", key, ds.Source)
	}

	records, err := d.fetchAll(ctx, ds, source)
	if err != nil {
		return nil, err
	}

	if err := d.store.Save(key, records); err != nil {
		d.logger.Error("failed to save discovery snapshot", "dataset", key, "error", err)
	}
	return records, nil
}

func (d *Discoverer) fetchAll(ctx context.Context, ds Dataset, source core.AssetSource) ([]core.AssetRecord, error) {
	start := time.Now()
	scope := strings.TrimSuffix(ds.Prefix, "/") + "/"

	d.logger.Info("discovering assets", "dataset", ds.Key, "prefix", ds.Prefix, "source", ds.Source)

	records := []core.AssetRecord{}
	processed := 0
	cursor := ""
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, &core.RemoteDiscoveryError{Key: ds.Key, Page: page, Err: err}
		}

		result, err := source.SearchAssets(ctx, ds.Prefix, cursor)
		if err != nil {
			return nil, &core.RemoteDiscoveryError{Key: ds.Key, Page: page, Err: err}
		}
		if result == nil {
			return nil, &core.RemoteDiscoveryError{Key: ds.Key, Page: page, Err: errors.New("empty response")}
		}

		for _, r := range result.Records {
			processed++
			if processed%progressEvery == 0 {
				d.logger.Info("discovery progress", "dataset", ds.Key, "processed", processed, "page", page)
			}
			if !strings.HasPrefix(r.QualifiedName, scope) {
				continue
			}
			records = append(records, r)
		}

		if result.NextCursor == "" {
			break
		}
		if result.NextCursor == cursor {
			return nil, &core.RemoteDiscoveryError{Key: ds.Key, Page: page, Err: fmt.Errorf("cursor %q did not advance", cursor)}
		}
		cursor = result.NextCursor
	}

	d.logger.Info("discovery completed",
		"dataset", ds.Key,
		"processed", processed,
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds())
	return records, nil
}
