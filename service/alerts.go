package service

import (
	"context"
	"fmt"

	"secanalytics/core"
	"secanalytics/gateway"
	"secanalytics/notify"

	"go.uber.org/zap"
)

// AlertsStore retrieves and acknowledges alerts
type AlertsStore struct {
	gateway   AlertsGateway
	paginator *Paginator
	notifier  Notifier
	logger    *zap.SugaredLogger
}

// NewAlertsStore creates an alerts store
func NewAlertsStore(gw AlertsGateway, paginator *Paginator, notifier Notifier, logger *zap.SugaredLogger) *AlertsStore {
	return &AlertsStore{gateway: gw, paginator: paginator, notifier: notifier, logger: logger}
}

// GetAlertsByDetector returns every alert of a detector in page order
func (s *AlertsStore) GetAlertsByDetector(ctx context.Context, detectorID string) []core.Alert {
	alerts, report, _ := FetchAll(ctx, s.paginator, "alerts", func(ctx context.Context, startIndex, size int) core.Result[Page[core.Alert]] {
		res := s.gateway.GetAlerts(ctx, gateway.AlertsQuery{
			DetectorID: detectorID,
			StartIndex: startIndex,
			Size:       size,
		})
		if !res.OK {
			return core.Result[Page[core.Alert]]{OK: false, Error: res.Error}
		}
		return core.Success(Page[core.Alert]{Items: res.Response.Alerts, Total: res.Response.TotalAlerts})
	})
	s.logger.Debugw("Loaded alerts",
		"detector_id", detectorID,
		"count", len(alerts),
		"total", report.Total,
		"failed_pages", report.FailedPages)
	return alerts
}

// AcknowledgeAlerts acknowledges alerts of one detector and reports the outcome
func (s *AlertsStore) AcknowledgeAlerts(ctx context.Context, detectorID string, alertIDs []string) (gateway.AcknowledgeResponse, bool) {
	res := s.gateway.AcknowledgeAlerts(ctx, detectorID, uniqueStrings(alertIDs))
	if !res.OK {
		s.notifier.Notify(notify.KindError, "acknowledge", "alerts", res.Error)
		return gateway.AcknowledgeResponse{}, false
	}

	resp := res.Response
	if len(resp.Failed) > 0 || len(resp.Missing) > 0 {
		s.notifier.Notify(notify.KindError, "acknowledge", "alerts",
			fmt.Sprintf("%d failed, %d not found", len(resp.Failed), len(resp.Missing)))
		return resp, false
	}
	s.notifier.Notify(notify.KindSuccess, "acknowledged", "alerts",
		fmt.Sprintf("%d alert(s) acknowledged", len(resp.Acknowledged)))
	return resp, true
}
