package lineage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// Builder creates missing lineage links and verifies existing ones.
type Builder struct {
	client core.LinkStore
	logger *slog.Logger
}

// NewBuilder creates a Builder backed by client.
func NewBuilder(client core.LinkStore, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{client: client, logger: logger}
}

// BuildTableLineage upserts one table-level link per group.
func (b *Builder) BuildTableLineage(ctx context.Context, groups []core.MatchGroup) []core.LinkOutcome {
	return b.build(ctx, core.LevelTable, groups)
}

// BuildColumnLineage upserts one column-level link per group.
func (b *Builder) BuildColumnLineage(ctx context.Context, groups []core.MatchGroup) []core.LinkOutcome {
	return b.build(ctx, core.LevelColumn, groups)
}

func (b *Builder) build(ctx context.Context, level core.Level, groups []core.MatchGroup) []core.LinkOutcome {
	outcomes := make([]core.LinkOutcome, 0, len(groups))
	done := make(map[core.IdempotencyKey]bool, len(groups))

	for _, g := range groups {
		link := g.Link()
		key := link.Key()

		if g.Level != level {
			outcomes = append(outcomes, b.fail(link, fmt.Errorf("group level %q does not match %q", g.Level, level)))
			continue
		}
		if done[key] {
			outcomes = append(outcomes, core.LinkOutcome{Link: link, Status: core.LinkVerified})
			continue
		}

		outcome := b.upsert(ctx, link)
		if outcome.Status != core.LinkFailed {
			done[key] = true
		}
		outcomes = append(outcomes, outcome)
	}

	s := core.Summarize(outcomes)
	b.logger.Info("lineage built",
		"level", level,
		"groups", len(groups),
		"created", s.Created,
		"verified", s.Verified,
		"failed", s.Failed)
	return outcomes
}

func (b *Builder) upsert(ctx context.Context, link core.LineageLink) core.LinkOutcome {
	key := link.Key()

	existing, err := b.client.FindLineageLink(ctx, key)
	if err != nil {
		return b.fail(link, fmt.Errorf("lookup: %w", err))
	}
	if existing != nil {
		b.logger.Debug("lineage exists", "key", key.String())
		return core.LinkOutcome{Link: link, Status: core.LinkVerified}
	}

	if _, err := b.client.CreateLineageLink(ctx, link); err != nil {
		return b.fail(link, fmt.Errorf("create: %w", err))
	}
	b.logger.Info("lineage created",
		"level", link.Level,
		"source", link.Source.QualifiedName,
		"target", link.Target.QualifiedName)
	return core.LinkOutcome{Link: link, Status: core.LinkCreated}
}

func (b *Builder) fail(link core.LineageLink, err error) core.LinkOutcome {
	lerr := &core.LineageCreationError{Key: link.Key(), Err: err}
	b.logger.Error("lineage failed",
		"source", link.Source.QualifiedName,
		"target", link.Target.QualifiedName,
		"error", lerr)
	return core.LinkOutcome{Link: link, Status: core.LinkFailed, Err: lerr}
}
