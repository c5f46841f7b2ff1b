package bootstrap

import (
	"context"
	"fmt"
	"time"

	"secanalytics/config"
	"secanalytics/core"
	"secanalytics/gateway"
	"secanalytics/notify"
	"secanalytics/overview"
	"secanalytics/service"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const redisPingTimeout = 5 * time.Second

// Components are the backend-facing building blocks shared by the server
// and the one-shot CLI commands.
type Components struct {
	Client       *gateway.Client
	Cache        *core.RedisCache // nil when Redis is disabled or unreachable
	Notifier     *notify.Notifier
	Paginator    *service.Paginator
	Detectors    *service.DetectorsStore
	Findings     *service.FindingsStore
	Alerts       *service.AlertsStore
	Rules        *service.RulesStore
	Correlations *service.CorrelationsStore
	ThreatIntel  *service.ThreatIntelStore
	Actor        *overview.ViewModelActor
}

// NewComponents wires gateways, stores and the overview actor from cfg.
// An unreachable Redis degrades to the in-process rule cache.
func NewComponents(ctx context.Context, cfg *config.Config, tp trace.TracerProvider, sugar *zap.SugaredLogger) (*Components, error) {
	c := &Components{
		Notifier: notify.NewNotifier(cfg.Notifications.Channels, sugar.Named("notify")),
	}

	client, err := gateway.NewClient(cfg.GatewayConfig(), sugar.Named("gateway"))
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	c.Client = client

	var shared service.RuleCache
	if cfg.Cache.Redis.Enabled {
		cache := core.NewRedisCache(cfg.RedisConfig(), sugar.Named("redis"))
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := cache.Ping(pingCtx)
		cancel()
		if err != nil {
			sugar.Warnw("Redis unavailable, continuing with in-process rule cache",
				"detail", ClassifyConnectionError(err, "Redis", cfg.Cache.Redis.Addr))
			_ = cache.Close()
		} else {
			sugar.Infow("Redis rule cache connected", "addr", cfg.Cache.Redis.Addr)
			c.Cache = cache
			shared = cache
		}
	}

	c.Paginator = service.NewPaginator(c.Notifier, sugar.Named("paginator"),
		service.WithPageSize(cfg.Refresh.PageSize),
		service.WithConcurrency(cfg.Refresh.PageConcurrency))

	c.Detectors = service.NewDetectorsStore(gateway.NewDetectorsGateway(client), c.Notifier, sugar.Named("detectors"))
	c.Findings = service.NewFindingsStore(gateway.NewFindingsGateway(client), c.Paginator, c.Notifier, sugar.Named("findings"))
	c.Alerts = service.NewAlertsStore(gateway.NewAlertsGateway(client), c.Paginator, c.Notifier, sugar.Named("alerts"))
	c.Rules = service.NewRulesStore(gateway.NewRulesGateway(client), shared, cfg.RulesStoreConfig(), c.Notifier, sugar.Named("rules"))
	c.Correlations = service.NewCorrelationsStore(gateway.NewCorrelationsGateway(client), c.Findings, c.Notifier, sugar.Named("correlations"))
	c.ThreatIntel = service.NewThreatIntelStore(gateway.NewThreatIntelGateway(client), c.Notifier, sugar.Named("threat_intel"))

	actor, err := overview.NewViewModelActor(overview.Config{
		Detectors:      c.Detectors,
		Findings:       c.Findings,
		Alerts:         c.Alerts,
		Rules:          c.Rules,
		Notifier:       c.Notifier,
		Logger:         sugar.Named("overview"),
		TracerProvider: tp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create overview actor: %w", err)
	}
	c.Actor = actor

	return c, nil
}

// Close flushes pending notifications and releases connections
func (c *Components) Close(ctx context.Context, sugar *zap.SugaredLogger) {
	if c.Notifier != nil {
		if err := c.Notifier.Flush(ctx); err != nil {
			sugar.Warnw("Pending notifications were not delivered", "error", err)
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			sugar.Warnw("Failed to close Redis connection", "error", err)
		}
	}
}
