package engine

// run.go - orchestration of a sync run

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// Run processes every configured link. Discovery failures abort the run and
// are returned; per-link lineage failures are only counted in the report.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	if len(e.cfg.Links) == 0 {
		return nil, fmt.Errorf("no links configured")
	}
	if e.builder == nil && !e.cfg.DryRun {
		return nil, fmt.Errorf("lineage store is required unless dry-run is set")
	}

	start := e.now()
	report := &Report{DryRun: e.cfg.DryRun, Discovered: map[string]int{}}
	e.logger.Info("starting run", "links", len(e.cfg.Links), "dry_run", e.cfg.DryRun, "force_refresh", e.cfg.ForceRefresh)

	var run *core.Run
	if e.cfg.Runs != nil && !e.cfg.DryRun {
		names := make([]string, len(e.cfg.Links))
		for i, l := range e.cfg.Links {
			names[i] = l.String()
		}
		var err error
		run, err = e.cfg.Runs.CreateRun(names)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		report.RunID = run.ID
		e.logger.Debug("created run", "run_id", run.ID)
	}

	runErr := e.process(ctx, report)

	report.tally()
	report.Duration = e.now().Sub(start)

	if run != nil {
		status, msg := core.RunStatusCompleted, ""
		if runErr != nil {
			status, msg = core.RunStatusFailed, runErr.Error()
		}
		if err := e.cfg.Runs.CompleteRun(run.ID, status, report.Counts, msg); err != nil {
			e.logger.Error("failed to record run", "run_id", run.ID, "error", err)
		}
	}
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveRun(report.Duration, runErr == nil, e.now())
	}

	if runErr != nil {
		e.logger.Error("run failed", "run_id", report.RunID, "error", runErr)
		return report, runErr
	}

	e.logger.Info("run completed",
		"run_id", report.RunID,
		"discovered", report.Counts.Discovered,
		"matched", report.Counts.Matched,
		"ambiguous", report.Counts.Ambiguous,
		"created", report.Counts.Created,
		"verified", report.Counts.Verified,
		"failed", report.Counts.Failed,
		"duration_ms", report.Duration.Milliseconds())
	return report, nil
}

func (e *Engine) process(ctx context.Context, report *Report) error {
	inventories := map[string][]core.AssetRecord{}
	load := func(key string) ([]core.AssetRecord, error) {
		if records, ok := inventories[key]; ok {
			return records, nil
		}
		records, err := e.discovery.Discover(ctx, key, e.cfg.ForceRefresh)
		if err != nil {
			return nil, err
		}
		inventories[key] = records
		report.Discovered[key] = len(records)
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.ObserveDiscovery(key, len(records))
		}
		return records, nil
	}

	for _, link := range e.cfg.Links {
		source, err := load(link.Source)
		if err != nil {
			return fmt.Errorf("link %s: %w", link, err)
		}
		target, err := load(link.Target)
		if err != nil {
			return fmt.Errorf("link %s: %w", link, err)
		}

		hop := e.matchHop(link, source, target)
		report.Hops = append(report.Hops, hop)

		if e.cfg.DryRun {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		e.buildHop(ctx, hop)
	}
	return nil
}

// Match discovers both datasets of link and matches them without creating
// any lineage.
func (e *Engine) Match(ctx context.Context, link Link) (*HopReport, error) {
	source, err := e.discovery.Discover(ctx, link.Source, e.cfg.ForceRefresh)
	if err != nil {
		return nil, err
	}
	target, err := e.discovery.Discover(ctx, link.Target, e.cfg.ForceRefresh)
	if err != nil {
		return nil, err
	}
	return e.matchHop(link, source, target), nil
}

func (e *Engine) matchHop(link Link, source, target []core.AssetRecord) *HopReport {
	hop := &HopReport{Link: link}

	var warnings []*core.AmbiguityWarning
	hop.Tables, warnings = e.matcher.MatchTables(source, target)
	hop.Warnings = append(hop.Warnings, warnings...)
	e.observeMatches(link, core.LevelTable, len(hop.Tables), len(warnings))

	if link.Columns {
		hop.Columns, warnings = e.matcher.MatchColumns(source, target, hop.Tables)
		hop.Warnings = append(hop.Warnings, warnings...)
		e.observeMatches(link, core.LevelColumn, len(hop.Columns), len(warnings))
	}

	e.logger.Info("matched link",
		"link", link.String(),
		"tables", len(hop.Tables),
		"columns", len(hop.Columns),
		"ambiguous", len(hop.Warnings))
	return hop
}

func (e *Engine) buildHop(ctx context.Context, hop *HopReport) {
	hop.TableOutcomes = e.builder.BuildTableLineage(ctx, hop.Tables)
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveLinks(hop.Link.String(), core.LevelTable, core.Summarize(hop.TableOutcomes))
	}
	if !hop.Link.Columns {
		return
	}
	hop.ColumnOutcomes = e.builder.BuildColumnLineage(ctx, hop.Columns)
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveLinks(hop.Link.String(), core.LevelColumn, core.Summarize(hop.ColumnOutcomes))
	}
}

func (e *Engine) observeMatches(link Link, level core.Level, groups, ambiguous int) {
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveMatches(link.String(), level, groups, ambiguous)
	}
}
