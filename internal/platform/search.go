package platform

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

var searchAttributes = []string{"name", "qualifiedName"}

// SearchAssets returns one page of active assets whose qualified name starts
// with prefix. The cursor is the decimal offset of the page; an empty
// NextCursor marks the last page.
func (c *Client) SearchAssets(ctx context.Context, prefix, cursor string) (*core.AssetPage, error) {
	from := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid search cursor %q", cursor)
		}
		from = n
	}

	req := searchRequest{
		DSL: searchDSL{
			From:  from,
			Size:  c.pageSize,
			Query: prefixQuery("qualifiedName", prefix),
			Sort:  []map[string]any{{"qualifiedName": map[string]any{"order": "asc"}}},
		},
		Attributes: searchAttributes,
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, searchPath, req, &resp); err != nil {
		return nil, err
	}

	page := &core.AssetPage{Records: make([]core.AssetRecord, 0, len(resp.Entities))}
	for _, e := range resp.Entities {
		qn := e.stringAttr("qualifiedName")
		if qn == "" {
			continue
		}
		page.Records = append(page.Records, core.AssetRecord{
			QualifiedName: qn,
			Name:          e.stringAttr("name"),
			Kind:          core.ParseKind(e.TypeName),
		})
	}

	next := from + len(resp.Entities)
	switch {
	case len(resp.Entities) < c.pageSize:
	case resp.ApproximateCount > 0 && next >= resp.ApproximateCount:
	default:
		page.NextCursor = strconv.Itoa(next)
	}

	c.logger.Debug("search page",
		"prefix", prefix,
		"from", from,
		"entities", len(resp.Entities),
		"approximate_count", resp.ApproximateCount)
	return page, nil
}

// Ping runs a single-result search over every active asset and returns the
// platform's approximate asset count.
func (c *Client) Ping(ctx context.Context) (int, error) {
	req := searchRequest{
		DSL:        searchDSL{Size: 1, Query: prefixQuery("qualifiedName", "")},
		Attributes: searchAttributes,
	}
	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, searchPath, req, &resp); err != nil {
		return 0, err
	}
	return resp.ApproximateCount, nil
}
