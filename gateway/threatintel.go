package gateway

import (
	"context"
	"net/http"

	"secanalytics/core"
)

// ThreatIntelGateway reads threat-intelligence source configurations
type ThreatIntelGateway struct {
	client *Client
}

// NewThreatIntelGateway creates a threat-intel gateway
func NewThreatIntelGateway(client *Client) *ThreatIntelGateway {
	return &ThreatIntelGateway{client: client}
}

// GetSources lists every configured threat-intel source
func (g *ThreatIntelGateway) GetSources(ctx context.Context) core.Result[[]core.ThreatIntelSource] {
	body := map[string]any{
		"size":  core.PageSize,
		"query": map[string]any{"match_all": map[string]any{}},
	}
	res := call[SearchHits[core.ThreatIntelSourceHit]](ctx, g.client, "threat_intel", http.MethodPost,
		APIBase+"/threat_intel/sources/_search", nil, body)
	if !res.OK {
		return core.Result[[]core.ThreatIntelSource]{OK: false, Error: res.Error}
	}
	sources := make([]core.ThreatIntelSource, 0, len(res.Response.Hits.Hits))
	for _, hit := range res.Response.Hits.Hits {
		sources = append(sources, hit.ThreatIntelSource())
	}
	return core.Success(sources)
}
