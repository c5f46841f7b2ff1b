package service

import (
	"context"
	"sort"

	"secanalytics/core"
	"secanalytics/notify"

	"go.uber.org/zap"
)

// ThreatIntelStore lists threat-intelligence sources
type ThreatIntelStore struct {
	gateway  ThreatIntelGateway
	notifier Notifier
	logger   *zap.SugaredLogger
}

// NewThreatIntelStore creates a threat-intel store
func NewThreatIntelStore(gw ThreatIntelGateway, notifier Notifier, logger *zap.SugaredLogger) *ThreatIntelStore {
	return &ThreatIntelStore{gateway: gw, notifier: notifier, logger: logger}
}

// GetSources returns every source sorted by name
func (s *ThreatIntelStore) GetSources(ctx context.Context) []core.ThreatIntelSource {
	res := s.gateway.GetSources(ctx)
	if !res.OK {
		s.notifier.Notify(notify.KindError, "retrieve", "threat intel sources", res.Error)
		return []core.ThreatIntelSource{}
	}
	sources := append([]core.ThreatIntelSource(nil), res.Response...)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})
	if sources == nil {
		sources = []core.ThreatIntelSource{}
	}
	return sources
}
