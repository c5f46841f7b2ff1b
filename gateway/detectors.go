package gateway

import (
	"context"
	"net/http"
	"net/url"

	"secanalytics/core"
)

// DetectorsResponse is the detectors search response
type DetectorsResponse = SearchHits[core.DetectorHit]

// DetectorResponse is the single-detector response
type DetectorResponse struct {
	ID       string        `json:"_id"`
	Version  int64         `json:"_version"`
	Detector core.Detector `json:"detector"`
}

// DetectorsGateway reads detector configurations
type DetectorsGateway struct {
	client *Client
}

// NewDetectorsGateway creates a detectors gateway
func NewDetectorsGateway(client *Client) *DetectorsGateway {
	return &DetectorsGateway{client: client}
}

// GetDetectors lists every detector
func (g *DetectorsGateway) GetDetectors(ctx context.Context) core.Result[DetectorsResponse] {
	query := map[string]any{
		"size":  core.PageSize,
		"query": map[string]any{"match_all": map[string]any{}},
	}
	return call[DetectorsResponse](ctx, g.client, "detectors", http.MethodPost,
		APIBase+"/detectors/_search", nil, query)
}

// GetDetector fetches one detector by id
func (g *DetectorsGateway) GetDetector(ctx context.Context, id string) core.Result[DetectorResponse] {
	if id == "" {
		return core.Failuref[DetectorResponse]("detector id is required")
	}
	return call[DetectorResponse](ctx, g.client, "detectors", http.MethodGet,
		APIBase+"/detectors/"+url.PathEscape(id), nil, nil)
}
