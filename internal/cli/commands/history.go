package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Long: `Show the most recent sync runs recorded in the state database, newest first.

Dry runs are not recorded.`,
		Example: `  assetlink history
  assetlink history --limit 5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	store, err := cc.State()
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	out := make([]output.RunOutput, len(runs))
	for i, run := range runs {
		out[i] = runOutput(run)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	if len(out) == 0 {
		r.Muted("No runs recorded")
		return nil
	}

	rows := make([][]string, len(out))
	for i, run := range out {
		rows[i] = []string{
			run.ID,
			run.Status,
			run.StartedAt.Local().Format(time.DateTime),
			runDuration(run),
			strings.Join(run.Links, ", "),
			strconv.Itoa(run.Counts.Created),
			strconv.Itoa(run.Counts.Verified),
			strconv.Itoa(run.Counts.Failed),
		}
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Run History"))
		r.Println("")
	}
	r.Table([]string{"Run", "Status", "Started", "Duration", "Links", "Created", "Verified", "Failed"}, rows)

	for _, run := range out {
		if run.Error != "" {
			r.Error(fmt.Sprintf("%s: %s", run.ID, run.Error))
		}
	}
	return nil
}

func runOutput(run *core.Run) output.RunOutput {
	return output.RunOutput{
		ID:          run.ID,
		Status:      string(run.Status),
		Links:       run.Links,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Counts:      summaryOutput(run.Counts),
		Error:       run.Error,
	}
}

func runDuration(run output.RunOutput) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
