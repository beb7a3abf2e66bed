package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// Asset is an entity to register. Attributes are merged over the name and
// qualified name taken from Record.
type Asset struct {
	Record     core.AssetRecord
	Attributes map[string]any
	Labels     []string
}

// CreateAssets registers assets in batches of the configured page size and
// returns how many the platform reported as created. Registration is keyed
// by qualified name, so resubmitting an existing asset updates it.
func (c *Client) CreateAssets(ctx context.Context, assets []Asset) (int, error) {
	created := 0
	for start := 0; start < len(assets); start += c.pageSize {
		end := min(start+c.pageSize, len(assets))

		batch := make([]entity, 0, end-start)
		for _, a := range assets[start:end] {
			attrs := map[string]any{
				"qualifiedName": a.Record.QualifiedName,
				"name":          a.Record.Name,
			}
			for k, v := range a.Attributes {
				attrs[k] = v
			}
			batch = append(batch, entity{TypeName: TypeName(a.Record.Kind), Attributes: attrs, Labels: a.Labels})
		}

		var resp bulkResponse
		if err := c.do(ctx, http.MethodPost, bulkPath, bulkRequest{Entities: batch}, &resp); err != nil {
			return created, fmt.Errorf("register assets %d-%d: %w", start+1, end, err)
		}
		created += len(resp.MutatedEntities["CREATE"])

		c.logger.Info("registered assets", "batch_start", start, "batch_size", len(batch))
	}
	return created, nil
}
