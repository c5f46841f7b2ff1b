package service

import (
	"context"

	"secanalytics/core"
	"secanalytics/notify"

	"go.uber.org/zap"
)

// DetectorsStore lists detector configurations
type DetectorsStore struct {
	gateway  DetectorsGateway
	notifier Notifier
	logger   *zap.SugaredLogger
}

// NewDetectorsStore creates a detectors store
func NewDetectorsStore(gw DetectorsGateway, notifier Notifier, logger *zap.SugaredLogger) *DetectorsStore {
	return &DetectorsStore{gateway: gw, notifier: notifier, logger: logger}
}

// GetDetectors returns every detector. On failure it notifies and returns
// false so callers can keep whatever list they already have.
func (s *DetectorsStore) GetDetectors(ctx context.Context) ([]core.Detector, bool) {
	res := s.gateway.GetDetectors(ctx)
	if !res.OK {
		s.notifier.Notify(notify.KindError, "retrieve", "detectors", res.Error)
		return nil, false
	}

	hits := res.Response.Hits.Hits
	detectors := make([]core.Detector, 0, len(hits))
	for _, hit := range hits {
		detectors = append(detectors, hit.Detector())
	}
	s.logger.Debugf("Loaded %d detectors", len(detectors))
	return detectors, true
}

// GetDetector returns one detector by id. On failure it notifies and
// returns false.
func (s *DetectorsStore) GetDetector(ctx context.Context, id string) (core.Detector, bool) {
	res := s.gateway.GetDetector(ctx, id)
	if !res.OK {
		s.notifier.Notify(notify.KindError, "retrieve", "detector", res.Error)
		return core.Detector{}, false
	}
	d := res.Response.Detector.Clone()
	if d.ID == "" {
		d.ID = res.Response.ID
	}
	return d, true
}
