package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/spf13/cobra"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	var forceRefresh bool
	var showAssets bool

	cmd := &cobra.Command{
		Use:   "discover <dataset>",
		Short: "Discover the assets of a dataset",
		Long: `Fetch every asset under a dataset's qualified-name prefix and cache the result.

A cache entry younger than cache.max_age_hours is returned without contacting
the platform. A failed page aborts the pass and leaves the previous cache entry
untouched.

Output adapts to environment:
  - Terminal: Styled summary
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Discover the postgres dataset (uses the cache when fresh)
  assetlink discover postgres

  # Bypass the cache
  assetlink discover postgres --force-refresh

  # List every asset as JSON
  assetlink discover staging --assets -o json`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return getConfig(cmd).DatasetKeys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, args[0], forceRefresh, showAssets)
		},
	}

	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "Ignore the cache and fetch from the source")
	cmd.Flags().BoolVar(&showAssets, "assets", false, "List every discovered asset")

	return cmd
}

func runDiscover(cmd *cobra.Command, dataset string, forceRefresh, showAssets bool) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	d, err := cc.Discoverer()
	if err != nil {
		return err
	}

	records, err := d.Discover(cmd.Context(), dataset, forceRefresh)
	if err != nil {
		return err
	}

	out := output.DiscoverOutput{
		Dataset: dataset,
		Records: len(records),
		Kinds:   kindCounts(records),
	}
	if showAssets {
		out.Assets = assetOutputs(records)
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return discoverMarkdown(r, out, records, showAssets)
	default:
		return discoverText(r, out, records, showAssets)
	}
}

func discoverText(r *output.Renderer, out output.DiscoverOutput, records []core.AssetRecord, showAssets bool) error {
	r.Success(fmt.Sprintf("Discovered %d assets in %s", out.Records, out.Dataset))
	for _, kind := range sortedKinds(out.Kinds) {
		r.Printf("  %-10s %d\n", kind, out.Kinds[kind])
	}
	if showAssets && len(records) > 0 {
		r.Println("")
		r.Table([]string{"Kind", "Name", "Qualified Name"}, assetRows(records))
	}
	return nil
}

func discoverMarkdown(r *output.Renderer, out output.DiscoverOutput, records []core.AssetRecord, showAssets bool) error {
	r.Println(output.FormatHeader(1, "Discovery: "+out.Dataset))
	r.Println("")
	r.Println(output.FormatKeyValue("Records", strconv.Itoa(out.Records)))
	for _, kind := range sortedKinds(out.Kinds) {
		r.Println(output.FormatKeyValue(kind, strconv.Itoa(out.Kinds[kind])))
	}
	if showAssets && len(records) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Assets"))
		r.Table([]string{"Kind", "Name", "Qualified Name"}, assetRows(records))
	}
	return nil
}

func assetRows(records []core.AssetRecord) [][]string {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{string(rec.Kind), rec.Name, rec.QualifiedName}
	}
	return rows
}

func sortedKinds(counts map[string]int) []string {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
