package commands

import (
	"fmt"

	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/internal/engine"
	"github.com/spf13/cobra"
)

// NewMatchCommand creates the match command.
func NewMatchCommand() *cobra.Command {
	var columns bool
	var forceRefresh bool

	cmd := &cobra.Command{
		Use:   "match <source> <target>",
		Short: "Preview matches between two datasets",
		Long: `Discover two datasets and pair their assets by normalized name.

Tables are paired case-insensitively, with object-store file extensions
stripped. With --columns, columns are paired within each matched table pair.
Nothing is written to the platform.`,
		Example: `  # Table-level matches
  assetlink match postgres staging

  # Include column matches
  assetlink match staging snowflake --columns`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) >= 2 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return getConfig(cmd).DatasetKeys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := engine.ParseLink(args[0] + ":" + args[1])
			if err != nil {
				return err
			}
			link.Columns = columns
			return runMatch(cmd, link, forceRefresh)
		},
	}

	cmd.Flags().BoolVar(&columns, "columns", false, "Also match columns within matched tables")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "Ignore the cache and fetch from the source")

	return cmd
}

func runMatch(cmd *cobra.Command, link engine.Link, forceRefresh bool) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	d, err := cc.Discoverer()
	if err != nil {
		return err
	}

	eng := engine.New(d, nil, engine.Config{
		ForceRefresh: forceRefresh,
		Logger:       cc.Logger.With("component", "engine"),
	})
	hop, err := eng.Match(cmd.Context(), link)
	if err != nil {
		return err
	}

	out := hopOutput(hop)
	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Matches"))
		r.Println("")
		renderHop(r, out, true)
	default:
		renderHop(r, out, false)
		r.Println("")
		r.Success(fmt.Sprintf("%d tables, %d columns matched", len(hop.Tables), len(hop.Columns)))
	}
	return nil
}
