package core

import "strings"

// Kind classifies an asset discovered from a metadata source.
type Kind string

// Asset kind constants.
const (
	KindTable  Kind = "Table"
	KindColumn Kind = "Column"
	KindSchema Kind = "Schema"
	KindObject Kind = "Object"
)

// ParseKind maps a platform type name onto a Kind.
// Unknown type names are kept verbatim so they survive a cache round-trip.
func ParseKind(typeName string) Kind {
	switch strings.TrimSpace(typeName) {
	case "Table":
		return KindTable
	case "Column":
		return KindColumn
	case "Schema":
		return KindSchema
	case "Object", "S3Object":
		return KindObject
	default:
		return Kind(typeName)
	}
}

// TableLike reports whether assets of this kind take part in table-level matching.
// Object-store files stand in for tables in the staging layer.
func (k Kind) TableLike() bool {
	return k == KindTable || k == KindObject
}

// AssetRecord is a single asset as seen by a metadata source.
type AssetRecord struct {
	// QualifiedName is the hierarchical, system-unique path
	// (e.g. "default/postgres/123/db/public/customers/id").
	QualifiedName string
	// Name is the display name (e.g. "id").
	Name string
	// Kind is the asset type.
	Kind Kind
}

// Parent returns the qualified name of the owning asset, i.e. the qualified
// name with its last segment removed. Returns "" for single-segment names.
func (a AssetRecord) Parent() string {
	idx := strings.LastIndex(a.QualifiedName, "/")
	if idx <= 0 {
		return ""
	}
	return a.QualifiedName[:idx]
}

// FilterKind returns the records matching keep, preserving order.
func FilterKind(records []AssetRecord, keep func(Kind) bool) []AssetRecord {
	out := make([]AssetRecord, 0, len(records))
	for _, r := range records {
		if keep(r.Kind) {
			out = append(out, r)
		}
	}
	return out
}
