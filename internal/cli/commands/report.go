package commands

// report.go - rendering of match and sync results

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/internal/engine"
	"github.com/leapstack-labs/assetlink/pkg/core"
)

func hopOutput(h *engine.HopReport) output.HopOutput {
	out := output.HopOutput{Link: h.Link.String(), Matches: []output.MatchOutput{}}
	for _, set := range [][]core.MatchGroup{h.Tables, h.Columns} {
		for _, g := range set {
			out.Matches = append(out.Matches, output.MatchOutput{
				Level:  string(g.Level),
				Source: g.Source.QualifiedName,
				Target: g.Target.QualifiedName,
			})
		}
	}
	for _, w := range h.Warnings {
		candidates := make([]string, len(w.Candidates))
		for i, c := range w.Candidates {
			candidates[i] = c.QualifiedName
		}
		out.Ambiguous = append(out.Ambiguous, output.AmbiguityOutput{
			Level:      string(w.Level),
			Source:     w.Source.QualifiedName,
			Chosen:     w.Chosen.QualifiedName,
			Candidates: candidates,
		})
	}
	for _, set := range [][]core.LinkOutcome{h.TableOutcomes, h.ColumnOutcomes} {
		for _, o := range set {
			lo := output.LinkOutcomeOutput{
				Level:  string(o.Link.Level),
				Source: o.Link.Source.QualifiedName,
				Target: o.Link.Target.QualifiedName,
				Status: string(o.Status),
			}
			if o.Err != nil {
				lo.Error = o.Err.Error()
			}
			out.Outcomes = append(out.Outcomes, lo)
		}
	}
	return out
}

func syncOutput(report *engine.Report) output.SyncOutput {
	out := output.SyncOutput{
		RunID:      report.RunID,
		DryRun:     report.DryRun,
		DurationMS: report.Duration.Milliseconds(),
		Discovered: report.Discovered,
		Hops:       make([]output.HopOutput, 0, len(report.Hops)),
		Summary:    summaryOutput(report.Counts),
	}
	for _, h := range report.Hops {
		out.Hops = append(out.Hops, hopOutput(h))
	}
	return out
}

func summaryOutput(c core.RunCounts) output.SyncSummary {
	return output.SyncSummary{
		Discovered: c.Discovered,
		Matched:    c.Matched,
		Ambiguous:  c.Ambiguous,
		Created:    c.Created,
		Verified:   c.Verified,
		Failed:     c.Failed,
	}
}

func matchRows(hop output.HopOutput) [][]string {
	rows := make([][]string, len(hop.Matches))
	for i, m := range hop.Matches {
		rows[i] = []string{m.Level, m.Source, m.Target}
	}
	return rows
}

// renderHop writes the matches, warnings and failures of one hop.
func renderHop(r *output.Renderer, hop output.HopOutput, markdown bool) {
	if markdown {
		r.Println(output.FormatHeader(2, hop.Link))
	} else {
		r.Header(2, hop.Link)
	}

	if len(hop.Matches) == 0 {
		r.Muted("No matches")
	} else {
		r.Table([]string{"Level", "Source", "Target"}, matchRows(hop))
	}

	for _, a := range hop.Ambiguous {
		r.Warning(fmt.Sprintf("%s %s matches %d targets; using %s", a.Level, a.Source, len(a.Candidates), a.Chosen))
	}
	for _, o := range hop.Outcomes {
		if o.Status == string(core.LinkFailed) {
			r.Error(fmt.Sprintf("%s %s -> %s: %s", o.Level, o.Source, o.Target, o.Error))
		}
	}
}

func renderSummary(r *output.Renderer, s output.SyncSummary, markdown bool) {
	pairs := [][2]string{
		{"Discovered", strconv.Itoa(s.Discovered)},
		{"Matched", strconv.Itoa(s.Matched)},
		{"Ambiguous", strconv.Itoa(s.Ambiguous)},
		{"Created", strconv.Itoa(s.Created)},
		{"Verified", strconv.Itoa(s.Verified)},
		{"Failed", strconv.Itoa(s.Failed)},
	}
	if markdown {
		r.Println(output.FormatHeader(2, "Summary"))
		for _, p := range pairs {
			r.Println(output.FormatKeyValue(p[0], p[1]))
		}
		return
	}
	r.Header(2, "Summary")
	for _, p := range pairs {
		r.Printf("  %-11s %s\n", p[0]+":", p[1])
	}
}
