package service

import (
	"context"

	"secanalytics/core"
	"secanalytics/notify"

	"go.uber.org/zap"
)

// CorrelatedFindingDetail is a correlated finding resolved to its full record
type CorrelatedFindingDetail struct {
	core.CorrelatedFinding
	Finding *core.Finding `json:"detail,omitempty"`
}

// CorrelationsStore reads correlation engine output
type CorrelationsStore struct {
	gateway  CorrelationsGateway
	findings *FindingsStore
	notifier Notifier
	logger   *zap.SugaredLogger
}

// NewCorrelationsStore creates a correlations store. findings may be nil, in
// which case correlated findings are not resolved to full records.
func NewCorrelationsStore(gw CorrelationsGateway, findings *FindingsStore, notifier Notifier, logger *zap.SugaredLogger) *CorrelationsStore {
	return &CorrelationsStore{gateway: gw, findings: findings, notifier: notifier, logger: logger}
}

// GetCorrelatedFindings returns the findings correlated with findingID,
// highest score first as returned by the backend
func (s *CorrelationsStore) GetCorrelatedFindings(ctx context.Context, findingID, logType string, nearby int) []CorrelatedFindingDetail {
	res := s.gateway.GetCorrelatedFindings(ctx, findingID, logType, nearby)
	if !res.OK {
		s.notifier.Notify(notify.KindError, "retrieve", "correlated findings", res.Error)
		return []CorrelatedFindingDetail{}
	}

	out := make([]CorrelatedFindingDetail, 0, len(res.Response.Findings))
	ids := make([]string, 0, len(res.Response.Findings))
	for _, cf := range res.Response.Findings {
		out = append(out, CorrelatedFindingDetail{CorrelatedFinding: cf})
		ids = append(ids, cf.FindingID)
	}
	if s.findings == nil || len(ids) == 0 {
		return out
	}

	byID := make(map[string]core.Finding, len(ids))
	for _, f := range s.findings.GetFindingsByIDs(ctx, ids) {
		byID[f.ID] = f
	}
	for i := range out {
		if f, ok := byID[out[i].FindingID]; ok {
			out[i].Finding = &f
		}
	}
	return out
}

// GetCorrelations returns correlation pairs whose findings fall in window
func (s *CorrelationsStore) GetCorrelations(ctx context.Context, window core.TimeWindow) []core.CorrelationPair {
	res := s.gateway.GetCorrelations(ctx, window)
	if !res.OK {
		s.notifier.Notify(notify.KindError, "retrieve", "correlations", res.Error)
		return []core.CorrelationPair{}
	}
	if res.Response.Findings == nil {
		return []core.CorrelationPair{}
	}
	return res.Response.Findings
}
