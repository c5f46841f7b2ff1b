package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"secanalytics/api"
	"secanalytics/config"
	"secanalytics/util/goroutine"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// App represents the secanalytics server with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Services
	Components *Components
	Hub        *api.Hub
	APIServer  *api.API

	// Lifecycle
	ctx            context.Context
	cancel         context.CancelFunc
	serviceWg      sync.WaitGroup
	tracerShutdown func(context.Context) error
	shutdownOnce   sync.Once
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context, configFile string) (*App, error) {
	// the config decides the final log level, so start with a default logger
	_, bootSugar, err := InitLogger("info", "console")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := InitConfig(configFile, bootSugar)
	if err != nil {
		return nil, err
	}

	logger, _, err := InitLogger(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return NewAppWithConfig(ctx, cfg, logger)
}

// NewAppWithConfig builds the application from an already loaded config
func NewAppWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sugar := logger.Sugar()
	appCtx, cancel := context.WithCancel(ctx)
	app := &App{
		Config: cfg,
		Logger: logger,
		Sugar:  sugar,
		ctx:    appCtx,
		cancel: cancel,
	}

	sugar.Info("secanalytics starting...")

	tp, shutdownTracing := InitTracing(cfg, sugar)
	app.tracerShutdown = shutdownTracing

	components, err := NewComponents(appCtx, cfg, tp, sugar)
	if err != nil {
		cancel()
		_ = shutdownTracing(context.Background())
		return nil, err
	}
	app.Components = components

	app.Hub = api.NewHub(appCtx, sugar.Named("websocket"))
	components.Notifier.SetBroadcaster(app.Hub)

	health := map[string]api.HealthChecker{
		"backend": components.Client.Ping,
	}
	if components.Cache != nil {
		health["redis"] = components.Cache.Ping
	}

	app.APIServer = api.NewAPI(api.Deps{
		Overview:       components.Actor,
		Detectors:      components.Detectors,
		Findings:       components.Findings,
		Alerts:         components.Alerts,
		Correlations:   components.Correlations,
		ThreatIntel:    components.ThreatIntel,
		Hub:            app.Hub,
		Health:         health,
		BackendCircuit: components.Client.Breaker().State,
	}, cfg, sugar.Named("api"))
	components.Actor.RegisterRefreshHandler(app.APIServer.BroadcastRefresh)

	return app, nil
}

// Start launches the WebSocket hub, the API server and the auto-refresh loop.
func (a *App) Start() error {
	if err := a.checkBackend(); err != nil {
		a.Sugar.Warnw("Backend not reachable at startup; refreshes will report failures until it is",
			"detail", ClassifyConnectionError(err, "Backend", a.Config.Backend.URL))
	}

	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		a.Hub.Start()
	}()

	if err := a.startAPIServer(); err != nil {
		return err
	}

	if a.Config.Refresh.Interval > 0 {
		a.serviceWg.Add(1)
		goroutine.Go("overview-refresh", a.Sugar, func() {
			defer a.serviceWg.Done()
			a.Components.Actor.Run(a.ctx, a.Config.Refresh.Interval, a.Config.Refresh.Start, a.Config.Refresh.End)
		})
		a.Sugar.Infow("Overview auto-refresh started",
			"interval", a.Config.Refresh.Interval.String(),
			"start", a.Config.Refresh.Start,
			"end", a.Config.Refresh.End)
	} else {
		a.Sugar.Info("Overview auto-refresh disabled; refreshes run on request")
	}
	return nil
}

func (a *App) checkBackend() error {
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()
	return a.Components.Client.Ping(ctx)
}

func (a *App) startAPIServer() error {
	addr := net.JoinHostPort(a.Config.API.Host, strconv.Itoa(a.Config.API.Port))

	// bind synchronously so a port conflict fails startup
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	_ = ln.Close()

	a.serviceWg.Add(1)
	goroutine.Go("api-server", a.Sugar, func() {
		defer a.serviceWg.Done()
		var err error
		if a.Config.API.TLS {
			a.Sugar.Infow("API server listening (TLS)", "addr", addr)
			err = a.APIServer.StartTLS(addr, a.Config.API.CertFile, a.Config.API.KeyFile)
		} else {
			a.Sugar.Infow("API server listening", "addr", addr)
			err = a.APIServer.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("API server stopped unexpectedly", "error", err)
			a.cancel()
		}
	})
	return nil
}

// Done is closed when the application context ends
func (a *App) Done() <-chan struct{} {
	return a.ctx.Done()
}

// WaitForShutdown blocks until a shutdown signal is received or the
// application stops on its own.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Received shutdown signal", "signal", sig.String())
	case <-a.ctx.Done():
	}
}

// Shutdown gracefully shuts down all components. It is safe to call more than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *App) shutdown() {
	a.Sugar.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.Sugar.Info("Phase 1: Stopping API server...")
	if a.APIServer != nil {
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
	}

	a.Sugar.Info("Phase 2: Stopping refresh loop and WebSocket hub...")
	a.cancel()
	if a.Hub != nil {
		a.Hub.Stop()
	}

	a.Sugar.Info("Phase 3: Waiting for service goroutines to complete...")
	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.Sugar.Warn("Timed out waiting for service goroutines")
	}

	a.Sugar.Info("Phase 4: Flushing notifications and closing connections...")
	if a.Components != nil {
		a.Components.Close(ctx, a.Sugar)
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.Sugar.Warnw("Failed to flush traces", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
