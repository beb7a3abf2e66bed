package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Level is the granularity of a match or lineage link.
type Level string

// Level constants.
const (
	LevelTable  Level = "table"
	LevelColumn Level = "column"
)

// MatchGroup pairs a source asset with a target asset at one level.
type MatchGroup struct {
	Source AssetRecord
	Target AssetRecord
	Level  Level
}

// Link converts the group into the lineage link it implies.
func (g MatchGroup) Link() LineageLink {
	return LineageLink{Source: g.Source, Target: g.Target, Level: g.Level}
}

// LineageLink asserts that data flows from Source to Target.
type LineageLink struct {
	Source AssetRecord
	Target AssetRecord
	Level  Level
}

// Key returns the idempotency key of the link.
func (l LineageLink) Key() IdempotencyKey {
	return IdempotencyKey{Source: l.Source.QualifiedName, Target: l.Target.QualifiedName, Level: l.Level}
}

// IdempotencyKey identifies a lineage link across runs.
type IdempotencyKey struct {
	Source string
	Target string
	Level  Level
}

// String renders the key as "level:source->target".
func (k IdempotencyKey) String() string {
	return fmt.Sprintf("%s:%s->%s", k.Level, k.Source, k.Target)
}

// Digest returns a stable 32 character hex identifier for the key.
func (k IdempotencyKey) Digest() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:16])
}

// LinkStatus is the result of upserting one lineage link.
type LinkStatus string

// Link status constants.
const (
	LinkCreated  LinkStatus = "created"
	LinkVerified LinkStatus = "verified"
	LinkFailed   LinkStatus = "failed"
)

// LinkOutcome records what happened to one match group.
type LinkOutcome struct {
	Link   LineageLink
	Status LinkStatus
	Err    error
}

// LinkSummary counts outcomes by status.
type LinkSummary struct {
	Created  int
	Verified int
	Failed   int
}

// Total returns the number of outcomes summarized.
func (s LinkSummary) Total() int {
	return s.Created + s.Verified + s.Failed
}

// Add returns the element-wise sum of two summaries.
func (s LinkSummary) Add(o LinkSummary) LinkSummary {
	return LinkSummary{
		Created:  s.Created + o.Created,
		Verified: s.Verified + o.Verified,
		Failed:   s.Failed + o.Failed,
	}
}

// Summarize counts outcomes by status.
func Summarize(outcomes []LinkOutcome) LinkSummary {
	var s LinkSummary
	for _, o := range outcomes {
		switch o.Status {
		case LinkCreated:
			s.Created++
		case LinkVerified:
			s.Verified++
		case LinkFailed:
			s.Failed++
		}
	}
	return s
}
