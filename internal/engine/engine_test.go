package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/assetlink/internal/cache"
	"github.com/leapstack-labs/assetlink/internal/discovery"
	"github.com/leapstack-labs/assetlink/internal/metrics"
	"github.com/leapstack-labs/assetlink/internal/state"
	"github.com/leapstack-labs/assetlink/internal/testutil"
	"github.com/leapstack-labs/assetlink/pkg/core"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pgPrefix = "default/postgres/1"
	s3Prefix = "default/s3/2"
	sfPrefix = "default/snowflake/3"
)

// inventorySource serves every record under the requested prefix in one page.
type inventorySource struct {
	records []core.AssetRecord
	calls   int
	err     error
}

func (s *inventorySource) SearchAssets(_ context.Context, prefix, _ string) (*core.AssetPage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []core.AssetRecord
	for _, r := range s.records {
		if strings.HasPrefix(r.QualifiedName, prefix+"/") {
			out = append(out, r)
		}
	}
	return &core.AssetPage{Records: out}, nil
}

type memoryLinks struct {
	links   map[core.IdempotencyKey]bool
	creates int
	fail    map[string]bool
}

func (m *memoryLinks) FindLineageLink(_ context.Context, key core.IdempotencyKey) (*core.LineageLink, error) {
	if m.links[key] {
		return &core.LineageLink{Source: core.AssetRecord{QualifiedName: key.Source}, Target: core.AssetRecord{QualifiedName: key.Target}, Level: key.Level}, nil
	}
	return nil, nil
}

func (m *memoryLinks) CreateLineageLink(_ context.Context, link core.LineageLink) (*core.LineageLink, error) {
	if m.fail[link.Source.Name] {
		return nil, errors.New("rejected")
	}
	m.creates++
	m.links[link.Key()] = true
	return &link, nil
}

func rec(prefix, path, name string, kind core.Kind) core.AssetRecord {
	return core.AssetRecord{QualifiedName: prefix + "/" + path, Name: name, Kind: kind}
}

func inventory() []core.AssetRecord {
	return []core.AssetRecord{
		rec(pgPrefix, "db/public/customers", "customers", core.KindTable),
		rec(pgPrefix, "db/public/customers/id", "id", core.KindColumn),
		rec(pgPrefix, "db/public/orders", "orders", core.KindTable),
		rec(s3Prefix, "bucket/customers.csv", "customers.csv", core.KindObject),
		rec(s3Prefix, "bucket/orders.csv", "orders.csv", core.KindObject),
		rec(sfPrefix, "DB/PUBLIC/CUSTOMERS", "CUSTOMERS", core.KindTable),
		rec(sfPrefix, "DB/PUBLIC/CUSTOMERS/ID", "ID", core.KindColumn),
		rec(sfPrefix, "DB/PUBLIC/ORDERS", "ORDERS", core.KindTable),
	}
}

type fixture struct {
	source  *inventorySource
	links   *memoryLinks
	runs    *state.SQLiteStore
	metrics *metrics.Recorder
	disc    *discovery.Discoverer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	runs := state.NewSQLiteStore(state.Config{})
	require.NoError(t, runs.Open(":memory:"))
	require.NoError(t, runs.InitSchema())
	t.Cleanup(func() { _ = runs.Close() })

	src := &inventorySource{records: inventory()}
	store := cache.NewFileStore(cache.FileConfig{Dir: t.TempDir()})
	disc := discovery.New(src, store, discovery.Config{
		Datasets: []discovery.Dataset{
			{Key: "postgres", Prefix: pgPrefix},
			{Key: "staging", Prefix: s3Prefix},
			{Key: "snowflake", Prefix: sfPrefix},
		},
		MaxAge: time.Hour,
	})

	return &fixture{
		source:  src,
		links:   &memoryLinks{links: map[core.IdempotencyKey]bool{}, fail: map[string]bool{}},
		runs:    runs,
		metrics: metrics.New(),
		disc:    disc,
	}
}

func (f *fixture) engine(t *testing.T, mutate func(*Config)) *Engine {
	cfg := Config{
		Links: []Link{
			{Source: "postgres", Target: "staging"},
			{Source: "staging", Target: "snowflake"},
			{Source: "postgres", Target: "snowflake", Columns: true},
		},
		Runs:    f.runs,
		Metrics: f.metrics,
		Logger:  testutil.NewTestLogger(t),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(f.disc, f.links, cfg)
}

func TestParseLink(t *testing.T) {
	tests := []struct {
		in      string
		want    Link
		wantErr bool
	}{
		{"postgres:staging", Link{Source: "postgres", Target: "staging"}, false},
		{" staging : snowflake ", Link{Source: "staging", Target: "snowflake"}, false},
		{"postgres", Link{}, true},
		{":staging", Link{}, true},
		{"a:a", Link{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLink(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Source+":"+tt.want.Target, got.String())
		})
	}
}

func TestRun_CreatesThenVerifies(t *testing.T) {
	f := newFixture(t)

	report, err := f.engine(t, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Hops, 3)

	// 2 tables per hop + 1 column on the last hop.
	assert.Equal(t, core.LinkSummary{Created: 7}, report.Summary())
	assert.Equal(t, 7, report.Counts.Matched)
	assert.Equal(t, 8, report.Counts.Discovered)
	assert.Equal(t, map[string]int{"postgres": 3, "staging": 2, "snowflake": 3}, report.Discovered)
	assert.Equal(t, 3, f.source.calls, "each dataset discovered once per run")

	rerun, err := f.engine(t, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.LinkSummary{Verified: 7}, rerun.Summary())
	assert.Equal(t, 7, f.links.creates)
	assert.Equal(t, 3, f.source.calls, "second run is served from cache")

	runs, err := f.runs.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, core.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, []string{"postgres:staging", "staging:snowflake", "postgres:snowflake"}, runs[0].Links)

	n, err := promtest.GatherAndCount(f.metrics.Registry(), "assetlink_discovered_assets")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRun_DryRunCreatesNothing(t *testing.T) {
	f := newFixture(t)

	report, err := f.engine(t, func(c *Config) { c.DryRun = true }).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Empty(t, report.RunID)
	assert.Equal(t, 7, report.Counts.Matched)
	assert.Zero(t, report.Summary().Total())
	assert.Zero(t, f.links.creates)

	runs, err := f.runs.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs, "dry runs are not recorded")
}

func TestRun_DryRunWithoutLinkStore(t *testing.T) {
	f := newFixture(t)
	e := New(f.disc, nil, Config{Links: []Link{{Source: "postgres", Target: "staging"}}, DryRun: true})

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Hops[0].Tables, 2)

	e = New(f.disc, nil, Config{Links: []Link{{Source: "postgres", Target: "staging"}}})
	_, err = e.Run(context.Background())
	assert.ErrorContains(t, err, "lineage store is required")
}

func TestRun_LinkFailuresAreCounted(t *testing.T) {
	f := newFixture(t)
	f.links.fail["orders"] = true

	report, err := f.engine(t, func(c *Config) {
		c.Links = []Link{{Source: "postgres", Target: "staging"}}
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.LinkSummary{Created: 1, Failed: 1}, report.Summary())
	failures := report.Hops[0].Failures()
	require.Len(t, failures, 1)
	var lerr *core.LineageCreationError
	assert.ErrorAs(t, failures[0].Err, &lerr)

	run, err := f.runs.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Counts.Failed)
}

func TestRun_DiscoveryFailureAbortsAndIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("502 bad gateway")

	report, err := f.engine(t, nil).Run(context.Background())
	require.Error(t, err)

	var derr *core.RemoteDiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "postgres", derr.Key)
	assert.Zero(t, f.links.creates)

	run, err := f.runs.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "502 bad gateway")
}

func TestRun_UnknownDataset(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine(t, func(c *Config) {
		c.Links = []Link{{Source: "postgres", Target: "oracle"}}
	}).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrUnknownDataset)
}

func TestRun_NoLinks(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine(t, func(c *Config) { c.Links = nil }).Run(context.Background())
	assert.ErrorContains(t, err, "no links configured")
}

func TestMatch(t *testing.T) {
	f := newFixture(t)

	hop, err := f.engine(t, nil).Match(context.Background(), Link{Source: "postgres", Target: "snowflake", Columns: true})
	require.NoError(t, err)
	assert.Len(t, hop.Tables, 2)
	require.Len(t, hop.Columns, 1)
	assert.Equal(t, "ID", hop.Columns[0].Target.Name)
	assert.Empty(t, hop.TableOutcomes)
	assert.Zero(t, f.links.creates)
}
