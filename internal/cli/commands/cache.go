package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear discovery caches",
		Long: `Inspect and clear the per-dataset discovery snapshots.

Snapshots live in cache.dir (file backend) or in the state database (sqlite
backend) and are considered fresh for cache.max_age_hours.`,
	}

	cmd.AddCommand(newCacheStatusCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cache entry of every dataset",
		Example: `  assetlink cache status
  assetlink cache status -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheStatus(cmd)
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [dataset...]",
		Short: "Delete cache entries (all datasets when none are given)",
		Example: `  # Clear every dataset
  assetlink cache clear

  # Clear one dataset
  assetlink cache clear postgres`,
		ValidArgsFunction: func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return getConfig(cmd).DatasetKeys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd, args)
		},
	}
}

func runCacheStatus(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	store, err := cc.CacheStore()
	if err != nil {
		return err
	}

	maxAge := cc.Cfg.Cache.MaxAge()
	keys := cc.Cfg.DatasetKeys()
	statuses := make([]output.CacheStatusOutput, 0, len(keys))
	for _, key := range keys {
		statuses = append(statuses, cacheStatusOutput(store.Status(key, maxAge)))
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(statuses)
	}
	if len(statuses) == 0 {
		r.Muted("No datasets configured")
		return nil
	}

	rows := make([][]string, len(statuses))
	for i, s := range statuses {
		rows[i] = []string{s.Dataset, cacheState(s), formatAge(s), strconv.Itoa(s.Records)}
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Cache Status"))
		r.Println("")
		r.Println(output.FormatKeyValue("Backend", cc.Cfg.Cache.Backend))
		r.Println(output.FormatKeyValue("Max Age", maxAge.String()))
		r.Println("")
	}
	r.Table([]string{"Dataset", "State", "Age", "Records"}, rows)
	return nil
}

func cacheStatusOutput(s core.CacheStatus) output.CacheStatusOutput {
	return output.CacheStatusOutput{
		Dataset:    s.Key,
		Present:    s.Present,
		Valid:      s.Valid,
		AgeSeconds: s.AgeSeconds,
		Records:    s.Records,
	}
}

func cacheState(s output.CacheStatusOutput) string {
	switch {
	case !s.Present:
		return "missing"
	case s.Valid:
		return "fresh"
	default:
		return "expired"
	}
}

func formatAge(s output.CacheStatusOutput) string {
	if !s.Present {
		return "-"
	}
	return time.Duration(s.AgeSeconds * float64(time.Second)).Round(time.Second).String()
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	store, err := cc.CacheStore()
	if err != nil {
		return err
	}

	keys := args
	if len(keys) == 0 {
		keys = cc.Cfg.DatasetKeys()
	}

	r := cc.Renderer
	for _, key := range keys {
		if err := store.Clear(key); err != nil {
			return fmt.Errorf("clear cache %s: %w", key, err)
		}
		cc.Logger.Debug("cleared cache", "dataset", key)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string][]string{"cleared": keys})
	}
	r.Success(fmt.Sprintf("Cleared %d cache entries", len(keys)))
	return nil
}
