package platform

// Wire types for the search and bulk entity endpoints.

type searchRequest struct {
	DSL        searchDSL `json:"dsl"`
	Attributes []string  `json:"attributes"`
}

type searchDSL struct {
	From  int              `json:"from"`
	Size  int              `json:"size"`
	Query map[string]any   `json:"query"`
	Sort  []map[string]any `json:"sort,omitempty"`
}

type searchResponse struct {
	ApproximateCount int      `json:"approximateCount"`
	Entities         []entity `json:"entities"`
}

type entity struct {
	TypeName   string         `json:"typeName"`
	GUID       string         `json:"guid,omitempty"`
	Attributes map[string]any `json:"attributes"`
	Labels     []string       `json:"labels,omitempty"`
}

// objectRef references an existing entity by qualified name.
type objectRef struct {
	TypeName         string            `json:"typeName"`
	UniqueAttributes map[string]string `json:"uniqueAttributes"`
}

type bulkRequest struct {
	Entities []entity `json:"entities"`
}

type bulkResponse struct {
	MutatedEntities map[string][]entity `json:"mutatedEntities"`
	GUIDAssignments map[string]string   `json:"guidAssignments"`
}

func (e entity) stringAttr(name string) string {
	if v, ok := e.Attributes[name].(string); ok {
		return v
	}
	return ""
}

func (e entity) refAttr(name string) string {
	refs, ok := e.Attributes[name].([]any)
	if !ok || len(refs) == 0 {
		return ""
	}
	ref, ok := refs[0].(map[string]any)
	if !ok {
		return ""
	}
	if ua, ok := ref["uniqueAttributes"].(map[string]any); ok {
		if qn, ok := ua["qualifiedName"].(string); ok {
			return qn
		}
	}
	return ""
}

func prefixQuery(field, value string, typeNames ...string) map[string]any {
	filters := []any{
		map[string]any{"prefix": map[string]any{field: value}},
		map[string]any{"term": map[string]any{"__state": "ACTIVE"}},
	}
	if len(typeNames) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"__typeName.keyword": typeNames}})
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

func termQuery(field, value string, typeNames ...string) map[string]any {
	filters := []any{
		map[string]any{"term": map[string]any{field: value}},
		map[string]any{"term": map[string]any{"__state": "ACTIVE"}},
	}
	if len(typeNames) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"__typeName.keyword": typeNames}})
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}
