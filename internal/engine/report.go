package engine

import (
	"time"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// HopReport is the result of one link.
type HopReport struct {
	Link           Link
	Tables         []core.MatchGroup
	Columns        []core.MatchGroup
	Warnings       []*core.AmbiguityWarning
	TableOutcomes  []core.LinkOutcome
	ColumnOutcomes []core.LinkOutcome
}

// Summary counts the lineage outcomes of the hop.
func (h *HopReport) Summary() core.LinkSummary {
	return core.Summarize(h.TableOutcomes).Add(core.Summarize(h.ColumnOutcomes))
}

// Failures returns the failed outcomes of the hop.
func (h *HopReport) Failures() []core.LinkOutcome {
	var out []core.LinkOutcome
	for _, set := range [][]core.LinkOutcome{h.TableOutcomes, h.ColumnOutcomes} {
		for _, o := range set {
			if o.Status == core.LinkFailed {
				out = append(out, o)
			}
		}
	}
	return out
}

// Report is the result of a run.
type Report struct {
	RunID      string
	DryRun     bool
	Discovered map[string]int
	Hops       []*HopReport
	Counts     core.RunCounts
	Duration   time.Duration
}

// Summary counts lineage outcomes across every hop.
func (r *Report) Summary() core.LinkSummary {
	var s core.LinkSummary
	for _, h := range r.Hops {
		s = s.Add(h.Summary())
	}
	return s
}

func (r *Report) tally() {
	c := core.RunCounts{}
	for _, n := range r.Discovered {
		c.Discovered += n
	}
	for _, h := range r.Hops {
		c.Matched += len(h.Tables) + len(h.Columns)
		c.Ambiguous += len(h.Warnings)
	}
	s := r.Summary()
	c.Created, c.Verified, c.Failed = s.Created, s.Verified, s.Failed
	r.Counts = c
}
