package core

import "context"

// AssetPage is one page of a paged asset listing.
// An empty NextCursor means there are no further pages.
type AssetPage struct {
	Records    []AssetRecord
	NextCursor string
}

// AssetSource is a paged metadata listing. The first page is requested with
// an empty cursor.
type AssetSource interface {
	SearchAssets(ctx context.Context, prefix, cursor string) (*AssetPage, error)
}

// LinkStore is the part of the metadata platform that holds lineage links.
// FindLineageLink returns (nil, nil) when no link with the key exists.
type LinkStore interface {
	FindLineageLink(ctx context.Context, key IdempotencyKey) (*LineageLink, error)
	CreateLineageLink(ctx context.Context, link LineageLink) (*LineageLink, error)
}
