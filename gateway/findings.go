package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"secanalytics/core"
)

// FindingsQuery selects one page of findings
type FindingsQuery struct {
	DetectorID string
	StartIndex int
	Size       int
	FindingIDs []string
}

// FindingsResponse is one page of findings
type FindingsResponse struct {
	Findings      []core.Finding `json:"findings"`
	TotalFindings int            `json:"total_findings"`
}

// FindingsGateway reads findings
type FindingsGateway struct {
	client *Client
}

// NewFindingsGateway creates a findings gateway
func NewFindingsGateway(client *Client) *FindingsGateway {
	return &FindingsGateway{client: client}
}

// GetFindings fetches one page of findings
func (g *FindingsGateway) GetFindings(ctx context.Context, q FindingsQuery) core.Result[FindingsResponse] {
	params := url.Values{}
	if q.DetectorID != "" {
		params.Set("detector_id", q.DetectorID)
	}
	if len(q.FindingIDs) > 0 {
		params.Set("findingIds", strings.Join(q.FindingIDs, ","))
	}
	params.Set("startIndex", strconv.Itoa(q.StartIndex))
	size := q.Size
	if size <= 0 {
		size = core.PageSize
	}
	params.Set("size", strconv.Itoa(size))

	return call[FindingsResponse](ctx, g.client, "findings", http.MethodGet,
		APIBase+"/findings/_search", params, nil)
}
