package service

import (
	"context"
	"time"

	"secanalytics/core"
	"secanalytics/gateway"
)

// The gateway interfaces below are satisfied by the types in package
// gateway and are declared here so stores can be tested with fakes.

type DetectorsGateway interface {
	GetDetectors(ctx context.Context) core.Result[gateway.DetectorsResponse]
	GetDetector(ctx context.Context, id string) core.Result[gateway.DetectorResponse]
}

type FindingsGateway interface {
	GetFindings(ctx context.Context, q gateway.FindingsQuery) core.Result[gateway.FindingsResponse]
}

type AlertsGateway interface {
	GetAlerts(ctx context.Context, q gateway.AlertsQuery) core.Result[gateway.AlertsResponse]
	AcknowledgeAlerts(ctx context.Context, detectorID string, alertIDs []string) core.Result[gateway.AcknowledgeResponse]
}

type RulesGateway interface {
	GetRules(ctx context.Context, q gateway.RulesQuery) core.Result[[]core.RuleHit]
}

type CorrelationsGateway interface {
	GetCorrelatedFindings(ctx context.Context, findingID, logType string, nearby int) core.Result[core.CorrelatedFindings]
	GetCorrelations(ctx context.Context, window core.TimeWindow) core.Result[gateway.CorrelationsResponse]
}

type ThreatIntelGateway interface {
	GetSources(ctx context.Context) core.Result[[]core.ThreatIntelSource]
}

// RuleCache is the optional shared cache layer behind the rules store
type RuleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}
