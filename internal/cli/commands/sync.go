package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/internal/engine"
	"github.com/leapstack-labs/assetlink/internal/metrics"
	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/spf13/cobra"
)

// SyncOptions holds options for the sync command.
type SyncOptions struct {
	ForceRefresh bool
	DryRun       bool
	Links        []string // source:target overrides for the configured links
	Columns      bool     // column matching for links given with --link
}

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	opts := &SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Discover, match and create lineage for every configured link",
		Long: `Run a full sync over the configured links.

For each link both datasets are discovered (cached snapshots are reused while
fresh), assets are matched by normalized name, and a lineage process is created
on the platform for every match that does not already have one. Rerunning a
sync verifies existing links instead of duplicating them.

Individual lineage failures are reported and counted; only discovery failures
abort the run with a non-zero exit code.`,
		Example: `  # Sync every link in assetlink.yaml
  assetlink sync

  # Preview without writing lineage
  assetlink sync --dry-run

  # Refresh caches and sync a single hop
  assetlink sync --force-refresh --link postgres:staging`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.ForceRefresh, "force-refresh", false, "Ignore caches and fetch every dataset")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Match without creating lineage")
	cmd.Flags().StringArrayVar(&opts.Links, "link", nil, "Link to process as source:target (repeatable, overrides configured links)")
	cmd.Flags().BoolVar(&opts.Columns, "columns", false, "Match columns for links given with --link")

	return cmd
}

func syncLinks(cc *CommandContext, opts *SyncOptions) ([]engine.Link, error) {
	var links []engine.Link
	if len(opts.Links) > 0 {
		for _, s := range opts.Links {
			link, err := engine.ParseLink(s)
			if err != nil {
				return nil, err
			}
			link.Columns = opts.Columns
			links = append(links, link)
		}
		return links, nil
	}
	for _, l := range cc.Cfg.Links {
		links = append(links, engine.Link{Source: l.Source, Target: l.Target, Columns: l.Columns})
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("no links configured\nHint: add links to assetlink.yaml or pass --link source:target")
	}
	return links, nil
}

func runSync(cmd *cobra.Command, opts *SyncOptions) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	links, err := syncLinks(cc, opts)
	if err != nil {
		return err
	}

	d, err := cc.Discoverer()
	if err != nil {
		return err
	}

	cfg := engine.Config{
		Links:        links,
		ForceRefresh: opts.ForceRefresh,
		DryRun:       opts.DryRun,
		Metrics:      metrics.New(),
		Logger:       cc.Logger.With("component", "engine"),
	}

	var store core.LinkStore
	if !opts.DryRun {
		client, err := cc.Platform()
		if err != nil {
			return err
		}
		store = client
		runs, err := cc.State()
		if err != nil {
			return err
		}
		cfg.Runs = runs
	}

	report, runErr := engine.New(d, store, cfg).Run(cmd.Context())
	if !opts.DryRun {
		exportMetrics(cc, cfg.Metrics)
	}

	if report != nil {
		if err := renderSync(cc.Renderer, report); err != nil {
			return err
		}
	}
	return runErr
}

// exportMetrics pushes and writes run metrics when configured. Export
// failures are logged and never fail the run.
func exportMetrics(cc *CommandContext, rec *metrics.Recorder) {
	m := cc.Cfg.Metrics
	if m.PushgatewayURL != "" {
		if err := rec.Push(cc.cmd.Context(), m.PushgatewayURL, m.Job); err != nil {
			cc.Logger.Warn("failed to push metrics", "url", m.PushgatewayURL, "error", err)
		}
	}
	if m.Textfile != "" {
		if err := rec.WriteTextfile(m.Textfile); err != nil {
			cc.Logger.Warn("failed to write metrics textfile", "path", m.Textfile, "error", err)
		}
	}
}

func renderSync(r *output.Renderer, report *engine.Report) error {
	out := syncOutput(report)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		title := "Sync"
		if out.DryRun {
			title = "Sync (dry run)"
		}
		r.Println(output.FormatHeader(1, title))
		r.Println("")
		if out.RunID != "" {
			r.Println(output.FormatKeyValue("Run", out.RunID))
		}
		r.Println(output.FormatKeyValue("Duration", report.Duration.Round(time.Millisecond).String()))
		r.Println("")
		for _, hop := range out.Hops {
			renderHop(r, hop, true)
			r.Println("")
		}
		renderSummary(r, out.Summary, true)
	default:
		for _, hop := range out.Hops {
			renderHop(r, hop, false)
			r.Println("")
		}
		renderSummary(r, out.Summary, false)
		r.Println("")
		msg := fmt.Sprintf("Sync completed in %s", report.Duration.Round(time.Millisecond))
		if out.DryRun {
			msg = fmt.Sprintf("Dry run completed in %s (no lineage written)", report.Duration.Round(time.Millisecond))
		}
		if out.Summary.Failed > 0 {
			r.Warning(fmt.Sprintf("%s with %d failed links", msg, out.Summary.Failed))
		} else {
			r.Success(msg)
		}
	}
	return nil
}
