package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"secanalytics/core"
)

// AlertsQuery selects one page of alerts for a detector
type AlertsQuery struct {
	DetectorID string
	StartIndex int
	Size       int
}

// AlertsResponse is one page of alerts
type AlertsResponse struct {
	Alerts      []core.Alert `json:"alerts"`
	TotalAlerts int          `json:"total_alerts"`
}

// AcknowledgeResponse reports the outcome of an acknowledge request
type AcknowledgeResponse struct {
	Acknowledged []core.Alert `json:"acknowledged"`
	Failed       []core.Alert `json:"failed"`
	Missing      []string     `json:"missing"`
}

// AlertsGateway reads and acknowledges alerts
type AlertsGateway struct {
	client *Client
}

// NewAlertsGateway creates an alerts gateway
func NewAlertsGateway(client *Client) *AlertsGateway {
	return &AlertsGateway{client: client}
}

// GetAlerts fetches one page of alerts
func (g *AlertsGateway) GetAlerts(ctx context.Context, q AlertsQuery) core.Result[AlertsResponse] {
	if q.DetectorID == "" {
		return core.Failuref[AlertsResponse]("detector id is required")
	}
	size := q.Size
	if size <= 0 {
		size = core.PageSize
	}
	params := url.Values{}
	params.Set("detector_id", q.DetectorID)
	params.Set("startIndex", strconv.Itoa(q.StartIndex))
	params.Set("size", strconv.Itoa(size))

	return call[AlertsResponse](ctx, g.client, "alerts", http.MethodGet,
		APIBase+"/alerts", params, nil)
}

// AcknowledgeAlerts acknowledges the given alerts of a detector
func (g *AlertsGateway) AcknowledgeAlerts(ctx context.Context, detectorID string, alertIDs []string) core.Result[AcknowledgeResponse] {
	if detectorID == "" {
		return core.Failuref[AcknowledgeResponse]("detector id is required")
	}
	if len(alertIDs) == 0 {
		return core.Success(AcknowledgeResponse{})
	}
	body := map[string]any{"alerts": alertIDs}
	return call[AcknowledgeResponse](ctx, g.client, "alerts", http.MethodPost,
		APIBase+"/detectors/"+url.PathEscape(detectorID)+"/_acknowledge/alerts", nil, body)
}
