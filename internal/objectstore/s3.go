// Package objectstore lists objects in an S3-compatible bucket and exposes
// them as staging-layer assets.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// Object is one listed object.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectPage is one page of a listing. An empty NextToken marks the last page.
type ObjectPage struct {
	Objects   []Object
	NextToken string
}

// Lister enumerates objects under a bucket prefix.
type Lister interface {
	ListObjects(ctx context.Context, bucket, prefix, token string) (ObjectPage, error)
}

// Config configures an S3 lister.
type Config struct {
	// Region defaults to DefaultRegion.
	Region string
	// Endpoint overrides the AWS endpoint (host:port or URL) for
	// S3-compatible stores.
	Endpoint string
	// AccessKey and SecretKey select static credentials. When both are empty
	// the default AWS credential chain is used, unless Anonymous is set.
	AccessKey string
	SecretKey string
	// Anonymous sends unsigned requests, for public buckets.
	Anonymous bool
	// PathStyle forces path-style addressing; implied when Endpoint is set.
	PathStyle bool
	// PageSize caps keys per page (optional, S3 default 1000).
	PageSize int32
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// listAPI is the subset of the S3 client used here.
type listAPI interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Lister lists objects with the AWS SDK.
type S3Lister struct {
	api      listAPI
	pageSize int32
	logger   *slog.Logger
}

// NewS3Lister builds a lister from cfg.
func NewS3Lister(ctx context.Context, cfg Config) (*S3Lister, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	switch {
	case cfg.Anonymous:
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case cfg.AccessKey != "" || cfg.SecretKey != "":
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, errors.New("both access key and secret key are required for static credentials")
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle || endpoint != ""
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3Lister(client, cfg), nil
}

func newS3Lister(api listAPI, cfg Config) *S3Lister {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &S3Lister{api: api, pageSize: cfg.PageSize, logger: logger}
}

// ListObjects returns one page of objects under prefix. token is the
// continuation token of the previous page, empty for the first.
func (l *S3Lister) ListObjects(ctx context.Context, bucket, prefix, token string) (ObjectPage, error) {
	if bucket == "" {
		return ObjectPage{}, errors.New("bucket name is required")
	}

	in := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	if token != "" {
		in.ContinuationToken = aws.String(token)
	}
	if l.pageSize > 0 {
		in.MaxKeys = aws.Int32(l.pageSize)
	}

	out, err := l.api.ListObjectsV2(ctx, in)
	if err != nil {
		return ObjectPage{}, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
	}

	page := ObjectPage{Objects: make([]Object, 0, len(out.Contents))}
	for _, o := range out.Contents {
		page.Objects = append(page.Objects, Object{
			Key:          aws.ToString(o.Key),
			Size:         aws.ToInt64(o.Size),
			LastModified: aws.ToTime(o.LastModified),
		})
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextToken = aws.ToString(out.NextContinuationToken)
	}

	l.logger.Debug("listed objects", "bucket", bucket, "prefix", prefix, "objects", len(page.Objects))
	return page, nil
}

// ListAll drains every page of the listing.
func ListAll(ctx context.Context, l Lister, bucket, prefix string) ([]Object, error) {
	var (
		all   []Object
		token string
	)
	for {
		page, err := l.ListObjects(ctx, bucket, prefix, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Objects...)
		if page.NextToken == "" {
			return all, nil
		}
		token = page.NextToken
	}
}
