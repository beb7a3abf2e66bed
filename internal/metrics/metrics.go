// Package metrics collects per-run counters in a private Prometheus registry.
// A batch run has no scrape endpoint, so the registry is pushed to a
// Pushgateway or written to a node_exporter textfile when the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "assetlink"

// Recorder holds the run metrics.
type Recorder struct {
	registry    *prometheus.Registry
	discovered  *prometheus.GaugeVec
	matches     *prometheus.GaugeVec
	ambiguous   *prometheus.GaugeVec
	links       *prometheus.GaugeVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	lastFailure prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		discovered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "discovered_assets",
			Help:      "Assets returned by discovery in the last run, per dataset.",
		}, []string{"dataset"}),
		matches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "match_groups",
			Help:      "Match groups produced in the last run, per link and level.",
		}, []string{"link", "level"}),
		ambiguous: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ambiguous_matches",
			Help:      "Sources with more than one candidate target in the last run.",
		}, []string{"link", "level"}),
		links: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lineage_links",
			Help:      "Lineage links handled in the last run, per link, level and status.",
		}, []string{"link", "level", "status"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		lastFailure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_failure_timestamp_seconds",
			Help:      "Unix time of the last failed run.",
		}),
	}
	r.registry.MustRegister(r.discovered, r.matches, r.ambiguous, r.links, r.duration, r.lastSuccess, r.lastFailure)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveDiscovery records how many assets a dataset returned.
func (r *Recorder) ObserveDiscovery(dataset string, records int) {
	r.discovered.WithLabelValues(dataset).Set(float64(records))
}

// ObserveMatches records match results for one hop at one level.
func (r *Recorder) ObserveMatches(link string, level core.Level, groups, ambiguous int) {
	r.matches.WithLabelValues(link, string(level)).Set(float64(groups))
	r.ambiguous.WithLabelValues(link, string(level)).Set(float64(ambiguous))
}

// ObserveLinks records lineage outcomes for one hop at one level.
func (r *Recorder) ObserveLinks(link string, level core.Level, s core.LinkSummary) {
	r.links.WithLabelValues(link, string(level), string(core.LinkCreated)).Set(float64(s.Created))
	r.links.WithLabelValues(link, string(level), string(core.LinkVerified)).Set(float64(s.Verified))
	r.links.WithLabelValues(link, string(level), string(core.LinkFailed)).Set(float64(s.Failed))
}

// ObserveRun records the end of a run.
func (r *Recorder) ObserveRun(d time.Duration, success bool, at time.Time) {
	r.duration.Set(d.Seconds())
	if success {
		r.lastSuccess.Set(float64(at.Unix()))
		return
	}
	r.lastFailure.Set(float64(at.Unix()))
}

// Push replaces the job's metrics on the Pushgateway at url.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// WriteTextfile writes the metrics in text exposition format to path,
// for node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
