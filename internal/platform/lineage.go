package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// Process type names per lineage level.
const (
	typeProcess       = "Process"
	typeColumnProcess = "ColumnProcess"
)

// TypeName maps an asset kind onto the platform's entity type name.
func TypeName(k core.Kind) string {
	switch k {
	case core.KindObject:
		return "S3Object"
	default:
		return string(k)
	}
}

func processType(level core.Level) string {
	if level == core.LevelColumn {
		return typeColumnProcess
	}
	return typeProcess
}

// ProcessQualifiedName returns the qualified name of the lineage process that
// represents key. It is stable across runs.
func (c *Client) ProcessQualifiedName(key core.IdempotencyKey) string {
	return c.connection + "/lineage/" + key.Digest()
}

// FindLineageLink looks up the process for key. It returns (nil, nil) when
// no such process exists.
func (c *Client) FindLineageLink(ctx context.Context, key core.IdempotencyKey) (*core.LineageLink, error) {
	req := searchRequest{
		DSL: searchDSL{
			Size:  1,
			Query: termQuery("qualifiedName", c.ProcessQualifiedName(key), processType(key.Level)),
		},
		Attributes: []string{"name", "qualifiedName", "inputs", "outputs"},
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, searchPath, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Entities) == 0 {
		return nil, nil
	}

	e := resp.Entities[0]
	link := &core.LineageLink{
		Source: core.AssetRecord{QualifiedName: key.Source},
		Target: core.AssetRecord{QualifiedName: key.Target},
		Level:  key.Level,
	}
	if qn := e.refAttr("inputs"); qn != "" {
		link.Source.QualifiedName = qn
	}
	if qn := e.refAttr("outputs"); qn != "" {
		link.Target.QualifiedName = qn
	}
	return link, nil
}

// CreateLineageLink creates the process entity for link.
func (c *Client) CreateLineageLink(ctx context.Context, link core.LineageLink) (*core.LineageLink, error) {
	if c.connection == "" {
		return nil, fmt.Errorf("platform connection is required to create lineage")
	}

	key := link.Key()
	process := entity{
		TypeName: processType(link.Level),
		Attributes: map[string]any{
			"qualifiedName":           c.ProcessQualifiedName(key),
			"name":                    link.Source.Name + " -> " + link.Target.Name,
			"connectionQualifiedName": c.connection,
			"inputs":                  []objectRef{ref(link.Source)},
			"outputs":                 []objectRef{ref(link.Target)},
		},
	}

	var resp bulkResponse
	if err := c.do(ctx, http.MethodPost, bulkPath, bulkRequest{Entities: []entity{process}}, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("created process",
		"type", process.TypeName,
		"qualified_name", c.ProcessQualifiedName(key),
		"created", len(resp.MutatedEntities["CREATE"]))
	created := link
	return &created, nil
}

func ref(a core.AssetRecord) objectRef {
	return objectRef{
		TypeName:         TypeName(a.Kind),
		UniqueAttributes: map[string]string{"qualifiedName": a.QualifiedName},
	}
}

var (
	_ core.AssetSource = (*Client)(nil)
	_ core.LinkStore   = (*Client)(nil)
)
