package service

import (
	"context"

	"secanalytics/core"
	"secanalytics/gateway"
	"secanalytics/notify"

	"go.uber.org/zap"
)

// maxFindingIDsPerQuery bounds the findingIds parameter so the URL stays reasonable
const maxFindingIDsPerQuery = 100

// FindingsStore retrieves findings
type FindingsStore struct {
	gateway   FindingsGateway
	paginator *Paginator
	notifier  Notifier
	logger    *zap.SugaredLogger
}

// NewFindingsStore creates a findings store
func NewFindingsStore(gw FindingsGateway, paginator *Paginator, notifier Notifier, logger *zap.SugaredLogger) *FindingsStore {
	return &FindingsStore{gateway: gw, paginator: paginator, notifier: notifier, logger: logger}
}

// GetFindingsPerDetector returns every finding of a detector in page order
func (s *FindingsStore) GetFindingsPerDetector(ctx context.Context, detectorID string) []core.Finding {
	findings, report, _ := FetchAll(ctx, s.paginator, "findings", s.pageFunc(detectorID, nil))
	s.logger.Debugw("Loaded findings",
		"detector_id", detectorID,
		"count", len(findings),
		"total", report.Total,
		"failed_pages", report.FailedPages)
	return findings
}

// GetFindingsByIDs looks up findings by id, e.g. to resolve correlations
func (s *FindingsStore) GetFindingsByIDs(ctx context.Context, ids []string) []core.Finding {
	ids = uniqueStrings(ids)
	out := make([]core.Finding, 0, len(ids))
	for _, batch := range chunkStrings(ids, maxFindingIDsPerQuery) {
		res := s.gateway.GetFindings(ctx, gateway.FindingsQuery{FindingIDs: batch, Size: len(batch)})
		if !res.OK {
			s.notifier.Notify(notify.KindError, "retrieve", "findings", res.Error)
			continue
		}
		out = append(out, res.Response.Findings...)
	}
	return out
}

func (s *FindingsStore) pageFunc(detectorID string, ids []string) PageFunc[core.Finding] {
	return func(ctx context.Context, startIndex, size int) core.Result[Page[core.Finding]] {
		res := s.gateway.GetFindings(ctx, gateway.FindingsQuery{
			DetectorID: detectorID,
			StartIndex: startIndex,
			Size:       size,
			FindingIDs: ids,
		})
		if !res.OK {
			return core.Result[Page[core.Finding]]{OK: false, Error: res.Error}
		}
		return core.Success(Page[core.Finding]{Items: res.Response.Findings, Total: res.Response.TotalFindings})
	}
}
