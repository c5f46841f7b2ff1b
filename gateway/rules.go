package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"secanalytics/core"
)

// RulesQuery selects rules by id from either the custom or the pre-packaged set
type RulesQuery struct {
	IDs         []string
	PrePackaged bool
}

// RulesGateway reads rule metadata
type RulesGateway struct {
	client *Client
}

// NewRulesGateway creates a rules gateway
func NewRulesGateway(client *Client) *RulesGateway {
	return &RulesGateway{client: client}
}

// GetRules fetches rules whose _id is in q.IDs. An empty id list yields an
// empty result without a backend call.
func (g *RulesGateway) GetRules(ctx context.Context, q RulesQuery) core.Result[[]core.RuleHit] {
	if len(q.IDs) == 0 {
		return core.Success([]core.RuleHit{})
	}
	params := url.Values{}
	params.Set("pre_packaged", strconv.FormatBool(q.PrePackaged))
	body := map[string]any{
		"from": 0,
		"size": len(q.IDs),
		"query": map[string]any{
			"terms": map[string]any{"_id": q.IDs},
		},
	}

	res := call[SearchHits[core.RuleHit]](ctx, g.client, "rules", http.MethodPost,
		APIBase+"/rules/_search", params, body)
	if !res.OK {
		return core.Result[[]core.RuleHit]{OK: false, Error: res.Error}
	}
	hits := res.Response.Hits.Hits
	if hits == nil {
		hits = []core.RuleHit{}
	}
	return core.Success(hits)
}
