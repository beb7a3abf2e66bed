package objectstore

import (
	"context"
	"path"
	"strings"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// Source adapts a Lister to core.AssetSource. Each object becomes an Object
// asset named <connection>/<bucket>/<key>.
type Source struct {
	lister     Lister
	connection string
	bucket     string
	keyPrefix  string
}

// NewSource creates a Source over one bucket. keyPrefix narrows the listing
// to part of the bucket.
func NewSource(lister Lister, connection, bucket, keyPrefix string) *Source {
	return &Source{
		lister:     lister,
		connection: strings.TrimSuffix(connection, "/"),
		bucket:     bucket,
		keyPrefix:  keyPrefix,
	}
}

// BucketQualifiedName returns the qualified name of the bucket itself.
func (s *Source) BucketQualifiedName() string {
	return s.connection + "/" + s.bucket
}

// QualifiedName returns the asset qualified name for an object key.
func (s *Source) QualifiedName(key string) string {
	return s.BucketQualifiedName() + "/" + key
}

// Record converts an object into its asset record.
func (s *Source) Record(o Object) core.AssetRecord {
	return core.AssetRecord{
		QualifiedName: s.QualifiedName(o.Key),
		Name:          path.Base(o.Key),
		Kind:          core.KindObject,
	}
}

// SearchAssets lists one page of objects. The prefix argument is the dataset
// prefix and is not sent to the store; records are built under it by
// construction and filtered by the caller. Folder placeholders are skipped.
func (s *Source) SearchAssets(ctx context.Context, _ string, cursor string) (*core.AssetPage, error) {
	page, err := s.lister.ListObjects(ctx, s.bucket, s.keyPrefix, cursor)
	if err != nil {
		return nil, err
	}

	out := &core.AssetPage{Records: make([]core.AssetRecord, 0, len(page.Objects)), NextCursor: page.NextToken}
	for _, o := range page.Objects {
		if o.Key == "" || strings.HasSuffix(o.Key, "/") {
			continue
		}
		out.Records = append(out.Records, s.Record(o))
	}
	return out, nil
}

var _ core.AssetSource = (*Source)(nil)
