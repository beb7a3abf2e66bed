// Package staging registers bucket objects that the metadata platform does
// not know about yet, so the staging layer can take part in lineage.
package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/assetlink/internal/objectstore"
	"github.com/leapstack-labs/assetlink/internal/platform"
	"github.com/leapstack-labs/assetlink/pkg/core"
)

// AssetCreator registers assets on the platform.
type AssetCreator interface {
	CreateAssets(ctx context.Context, assets []platform.Asset) (int, error)
}

// Config configures a Registrar.
type Config struct {
	// Connection is the qualified name of the object-store connection.
	Connection string
	// Bucket is the bucket to list.
	Bucket string
	// Prefix narrows the listing to part of the bucket.
	Prefix string
	// Owner is the business owner recorded on registered objects (optional).
	Owner string
	// ComplianceTags are added as labels to every registered object.
	ComplianceTags []string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Result describes a registration pass.
type Result struct {
	Listed     int
	Existing   int
	Registered int
	Missing    []core.AssetRecord
	// Classes holds the classification of each missing object, keyed by
	// qualified name.
	Classes map[string]Classification
}

// Registrar compares a bucket listing with the platform inventory.
type Registrar struct {
	lister   objectstore.Lister
	platform core.AssetSource
	creator  AssetCreator
	source   *objectstore.Source
	cfg      Config
	logger   *slog.Logger
}

// NewRegistrar creates a Registrar. inventory is searched for existing
// objects and creator receives the missing ones.
func NewRegistrar(lister objectstore.Lister, inventory core.AssetSource, creator AssetCreator, cfg Config) *Registrar {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registrar{
		lister:   lister,
		platform: inventory,
		creator:  creator,
		source:   objectstore.NewSource(lister, cfg.Connection, cfg.Bucket, cfg.Prefix),
		cfg:      cfg,
		logger:   logger,
	}
}

// Plan lists the bucket and returns the objects missing from the platform
// without registering anything.
func (r *Registrar) Plan(ctx context.Context) (*Result, []objectstore.Object, error) {
	objects, err := objectstore.ListAll(ctx, r.lister, r.cfg.Bucket, r.cfg.Prefix)
	if err != nil {
		return nil, nil, err
	}

	existing, err := r.existing(ctx)
	if err != nil {
		return nil, nil, err
	}

	res := &Result{Classes: make(map[string]Classification)}
	var missing []objectstore.Object
	for _, o := range objects {
		if o.Key == "" || strings.HasSuffix(o.Key, "/") {
			continue
		}
		rec := r.source.Record(o)
		res.Listed++
		if existing[rec.QualifiedName] {
			res.Existing++
			continue
		}
		res.Missing = append(res.Missing, rec)
		res.Classes[rec.QualifiedName] = Classify(o.Key)
		missing = append(missing, o)
	}
	return res, missing, nil
}

// Register creates platform assets for every object missing from the
// platform. Objects already registered are left alone, so repeated passes
// register nothing new.
func (r *Registrar) Register(ctx context.Context) (*Result, error) {
	res, missing, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		r.logger.Info("all objects registered", "bucket", r.cfg.Bucket, "objects", res.Listed)
		return res, nil
	}

	assets := make([]platform.Asset, 0, len(missing))
	sensitive := 0
	for _, o := range missing {
		rec := r.source.Record(o)
		class := res.Classes[rec.QualifiedName]
		if class.HasPII() {
			sensitive++
		}
		assets = append(assets, platform.Asset{
			Record:     rec,
			Attributes: r.attributes(o, class),
			Labels:     class.Labels(r.cfg.ComplianceTags),
		})
	}

	if _, err := r.creator.CreateAssets(ctx, assets); err != nil {
		return res, fmt.Errorf("register objects: %w", err)
	}
	res.Registered = len(assets)

	r.logger.Info("registered objects",
		"bucket", r.cfg.Bucket,
		"listed", res.Listed,
		"existing", res.Existing,
		"registered", res.Registered,
		"with_pii", sensitive)
	return res, nil
}

func (r *Registrar) attributes(o objectstore.Object, class Classification) map[string]any {
	attrs := map[string]any{
		"connectionQualifiedName": r.cfg.Connection,
		"s3BucketName":            r.cfg.Bucket,
		"s3BucketQualifiedName":   r.source.BucketQualifiedName(),
		"s3ObjectKey":             o.Key,
		"s3ObjectSize":            o.Size,
		"description":             class.Description(r.cfg.Owner),
	}
	if !o.LastModified.IsZero() {
		attrs["s3ObjectLastModifiedTime"] = o.LastModified.UnixMilli()
	}
	if r.cfg.Owner != "" {
		attrs["ownerUsers"] = []string{ownerUser(r.cfg.Owner)}
	}
	return attrs
}

// existing returns the qualified names of objects the platform already has.
func (r *Registrar) existing(ctx context.Context) (map[string]bool, error) {
	prefix := r.source.BucketQualifiedName()

	seen := make(map[string]bool)
	cursor := ""
	for page := 1; ; page++ {
		result, err := r.platform.SearchAssets(ctx, prefix, cursor)
		if err != nil {
			return nil, &core.RemoteDiscoveryError{Key: r.cfg.Bucket, Page: page, Err: err}
		}
		if result == nil {
			return nil, &core.RemoteDiscoveryError{Key: r.cfg.Bucket, Page: page, Err: errors.New("empty response")}
		}
		for _, rec := range result.Records {
			if rec.Kind == core.KindObject {
				seen[rec.QualifiedName] = true
			}
		}
		if result.NextCursor == "" || result.NextCursor == cursor {
			return seen, nil
		}
		cursor = result.NextCursor
	}
}
