package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"secanalytics/core"
)

// DefaultNearbyFindings is how many correlated findings are requested by default
const DefaultNearbyFindings = 20

// CorrelationsResponse lists correlated finding pairs within a time range
type CorrelationsResponse struct {
	Findings []core.CorrelationPair `json:"findings"`
}

// CorrelationsGateway reads results of the correlation engine
type CorrelationsGateway struct {
	client *Client
}

// NewCorrelationsGateway creates a correlations gateway
func NewCorrelationsGateway(client *Client) *CorrelationsGateway {
	return &CorrelationsGateway{client: client}
}

// GetCorrelatedFindings returns findings correlated with findingID
func (g *CorrelationsGateway) GetCorrelatedFindings(ctx context.Context, findingID, logType string, nearby int) core.Result[core.CorrelatedFindings] {
	if findingID == "" {
		return core.Failuref[core.CorrelatedFindings]("finding id is required")
	}
	if nearby <= 0 {
		nearby = DefaultNearbyFindings
	}
	params := url.Values{}
	params.Set("finding", findingID)
	if logType != "" {
		params.Set("detector_type", logType)
	}
	params.Set("nearby_findings", strconv.Itoa(nearby))

	res := call[core.CorrelatedFindings](ctx, g.client, "correlations", http.MethodGet,
		APIBase+"/findings/correlate", params, nil)
	if res.OK && res.Response.FindingID == "" {
		res.Response.FindingID = findingID
	}
	return res
}

// GetCorrelations lists correlation pairs whose findings fall inside window
func (g *CorrelationsGateway) GetCorrelations(ctx context.Context, window core.TimeWindow) core.Result[CorrelationsResponse] {
	if window.IsInverted() {
		return core.Failure[CorrelationsResponse](core.ErrInvalidTimeRange)
	}
	params := url.Values{}
	params.Set("start_timestamp", strconv.FormatInt(window.Start.UnixMilli(), 10))
	params.Set("end_timestamp", strconv.FormatInt(window.End.UnixMilli(), 10))

	return call[CorrelationsResponse](ctx, g.client, "correlations", http.MethodGet,
		APIBase+"/correlations", params, nil)
}
