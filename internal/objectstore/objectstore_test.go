package objectstore

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/leapstack-labs/assetlink/internal/testutil"
	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves keys in pages of pageSize using numeric continuation tokens.
type fakeS3 struct {
	keys     []string
	pageSize int
	inputs   []*s3.ListObjectsV2Input
	err      error
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+f.pageSize, len(f.keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(f.keys))}
	for i, k := range f.keys[start:end] {
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(100 * (start + i + 1))),
			LastModified: aws.Time(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
		})
	}
	if end < len(f.keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func TestS3Lister_ListObjects(t *testing.T) {
	api := &fakeS3{keys: []string{"exports/customers.csv", "exports/orders.csv", "exports/payments.csv"}, pageSize: 2}
	l := newS3Lister(api, Config{PageSize: 2, Logger: testutil.NewTestLogger(t)})

	page, err := l.ListObjects(context.Background(), "tech-challenge", "exports/", "")
	require.NoError(t, err)
	require.Len(t, page.Objects, 2)
	assert.Equal(t, Object{
		Key:          "exports/customers.csv",
		Size:         100,
		LastModified: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}, page.Objects[0])
	assert.Equal(t, "2", page.NextToken)

	in := api.inputs[0]
	assert.Equal(t, "tech-challenge", aws.ToString(in.Bucket))
	assert.Equal(t, "exports/", aws.ToString(in.Prefix))
	assert.Nil(t, in.ContinuationToken)
	assert.Equal(t, int32(2), aws.ToInt32(in.MaxKeys))

	page, err = l.ListObjects(context.Background(), "tech-challenge", "exports/", page.NextToken)
	require.NoError(t, err)
	assert.Len(t, page.Objects, 1)
	assert.Empty(t, page.NextToken)
	assert.Equal(t, "2", aws.ToString(api.inputs[1].ContinuationToken))
}

func TestS3Lister_Errors(t *testing.T) {
	l := newS3Lister(&fakeS3{err: errors.New("AccessDenied")}, Config{})

	_, err := l.ListObjects(context.Background(), "", "", "")
	assert.ErrorContains(t, err, "bucket name is required")

	_, err = l.ListObjects(context.Background(), "b", "p/", "")
	assert.ErrorContains(t, err, "list s3://b/p/: AccessDenied")
}

func TestListAll(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}
	l := newS3Lister(&fakeS3{keys: keys, pageSize: 2}, Config{})

	objects, err := ListAll(context.Background(), l, "b", "")
	require.NoError(t, err)
	require.Len(t, objects, 5)
	assert.Equal(t, "e", objects[4].Key)
}

func TestNewS3Lister_StaticCredentialsNeedBothKeys(t *testing.T) {
	_, err := NewS3Lister(context.Background(), Config{AccessKey: "AKIA"})
	assert.ErrorContains(t, err, "both access key and secret key")
}

func TestNewS3Lister_Anonymous(t *testing.T) {
	l, err := NewS3Lister(context.Background(), Config{Anonymous: true, Endpoint: "localhost:9000"})
	require.NoError(t, err)
	assert.NotNil(t, l.api)
}

// stubLister returns canned pages keyed by token.
type stubLister struct {
	pages map[string]ObjectPage
	calls []string
}

func (s *stubLister) ListObjects(_ context.Context, bucket, prefix, token string) (ObjectPage, error) {
	s.calls = append(s.calls, bucket+"|"+prefix+"|"+token)
	return s.pages[token], nil
}

func TestSource_SearchAssets(t *testing.T) {
	lister := &stubLister{pages: map[string]ObjectPage{
		"": {
			Objects: []Object{
				{Key: "exports/"},
				{Key: "exports/customers.csv", Size: 10},
			},
			NextToken: "t1",
		},
		"t1": {Objects: []Object{{Key: "exports/orders.csv", Size: 20}}},
	}}
	src := NewSource(lister, "default/s3/1700000000/", "tech-challenge", "exports/")

	page, err := src.SearchAssets(context.Background(), "default/s3/1700000000", "")
	require.NoError(t, err)
	assert.Equal(t, "t1", page.NextCursor)
	assert.Equal(t, []core.AssetRecord{{
		QualifiedName: "default/s3/1700000000/tech-challenge/exports/customers.csv",
		Name:          "customers.csv",
		Kind:          core.KindObject,
	}}, page.Records)

	page, err = src.SearchAssets(context.Background(), "default/s3/1700000000", "t1")
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, "orders.csv", page.Records[0].Name)

	assert.Equal(t, []string{"tech-challenge|exports/|", "tech-challenge|exports/|t1"}, lister.calls)
}
