// Package matching pairs assets across two inventories by normalized name.
//
// Table-like assets (tables and object-store files) match when their
// normalized names are equal. Columns match only inside an already matched
// pair of tables. When several targets share a name the first one in target
// order wins and an AmbiguityWarning is reported.
package matching

import (
	"log/slog"
	"path"
	"strings"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// objectExtensions are stripped from object names before comparison.
var objectExtensions = []string{".CSV", ".TSV", ".JSON", ".PARQUET", ".AVRO", ".ORC", ".TXT"}

// Engine matches assets. It holds no state between calls.
type Engine struct {
	logger *slog.Logger
}

// New creates a matching engine. A nil logger discards output.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// Normalize returns the comparison key for an asset: the uppercased display
// name. Object names are reduced to their base name with a known data file
// extension (and an optional trailing .GZ) removed, so "exports/customers.csv"
// compares equal to the table CUSTOMERS.
func Normalize(a core.AssetRecord) string {
	name := strings.ToUpper(strings.TrimSpace(a.Name))
	if a.Kind != core.KindObject {
		return name
	}
	name = path.Base(name)
	name = strings.TrimSuffix(name, ".GZ")
	for _, ext := range objectExtensions {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// MatchTables pairs table-like source assets with table-like target assets.
// Non table-like records on either side are ignored, as are sources without
// a counterpart. Groups follow source order.
func (e *Engine) MatchTables(source, target []core.AssetRecord) ([]core.MatchGroup, []*core.AmbiguityWarning) {
	sources := core.FilterKind(source, core.Kind.TableLike)
	targets := core.FilterKind(target, core.Kind.TableLike)

	groups, warnings := e.pair(core.LevelTable, sources, indexByName(targets))
	e.logger.Info("matched tables",
		"sources", len(sources),
		"targets", len(targets),
		"groups", len(groups),
		"ambiguous", len(warnings))
	return groups, warnings
}

// MatchColumns pairs columns of each matched table group. A source column is
// only compared with columns whose owning asset is the group's target, so a
// column can never be linked across tables.
func (e *Engine) MatchColumns(source, target []core.AssetRecord, tableGroups []core.MatchGroup) ([]core.MatchGroup, []*core.AmbiguityWarning) {
	sourceCols := byParent(core.FilterKind(source, isColumn))
	targetCols := byParent(core.FilterKind(target, isColumn))

	var (
		groups   []core.MatchGroup
		warnings []*core.AmbiguityWarning
	)
	for _, tg := range tableGroups {
		if tg.Level != core.LevelTable {
			continue
		}
		srcCols := sourceCols[tg.Source.QualifiedName]
		tgtCols := targetCols[tg.Target.QualifiedName]
		if len(srcCols) == 0 || len(tgtCols) == 0 {
			e.logger.Debug("no columns to match",
				"source", tg.Source.QualifiedName,
				"target", tg.Target.QualifiedName,
				"source_columns", len(srcCols),
				"target_columns", len(tgtCols))
			continue
		}

		g, w := e.pair(core.LevelColumn, srcCols, indexByName(tgtCols))
		groups = append(groups, g...)
		warnings = append(warnings, w...)
	}

	e.logger.Info("matched columns",
		"table_groups", len(tableGroups),
		"groups", len(groups),
		"ambiguous", len(warnings))
	return groups, warnings
}

// pair matches each source against the indexed targets.
func (e *Engine) pair(level core.Level, sources []core.AssetRecord, index map[string][]core.AssetRecord) ([]core.MatchGroup, []*core.AmbiguityWarning) {
	var (
		groups   []core.MatchGroup
		warnings []*core.AmbiguityWarning
	)
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		if seen[src.QualifiedName] {
			continue
		}
		seen[src.QualifiedName] = true

		candidates := index[Normalize(src)]
		if len(candidates) == 0 {
			continue
		}
		chosen := candidates[0]
		groups = append(groups, core.MatchGroup{Source: src, Target: chosen, Level: level})

		if len(candidates) > 1 {
			w := &core.AmbiguityWarning{
				Level:      level,
				Source:     src,
				Chosen:     chosen,
				Candidates: append([]core.AssetRecord(nil), candidates...),
			}
			e.logger.Warn("ambiguous match", "error", w)
			warnings = append(warnings, w)
		}
	}
	return groups, warnings
}

// indexByName groups records by normalized name, keeping record order.
// Repeated records stay in the index so a source facing a duplicated target
// is reported as ambiguous.
func indexByName(records []core.AssetRecord) map[string][]core.AssetRecord {
	index := make(map[string][]core.AssetRecord, len(records))
	for _, r := range records {
		key := Normalize(r)
		index[key] = append(index[key], r)
	}
	return index
}

func byParent(columns []core.AssetRecord) map[string][]core.AssetRecord {
	out := make(map[string][]core.AssetRecord)
	for _, c := range columns {
		out[c.Parent()] = append(out[c.Parent()], c)
	}
	return out
}

func isColumn(k core.Kind) bool { return k == core.KindColumn }
