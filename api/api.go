// Package api exposes the overview view-model and the underlying Security
// Analytics data over HTTP and WebSocket.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"secanalytics/config"
	"secanalytics/core"
	"secanalytics/gateway"
	"secanalytics/overview"
	"secanalytics/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// OverviewActor is the view-model actor driven by the overview routes
type OverviewActor interface {
	OnRefresh(ctx context.Context, start, end string) bool
	Snapshot() core.OverviewViewModel
	Window() core.TimeWindow
	State() core.RefreshState
	LastRefresh() time.Time
}

// DetectorLister lists detectors
type DetectorLister interface {
	GetDetectors(ctx context.Context) ([]core.Detector, bool)
	GetDetector(ctx context.Context, id string) (core.Detector, bool)
}

// FindingLister returns all findings of a detector
type FindingLister interface {
	GetFindingsPerDetector(ctx context.Context, detectorID string) []core.Finding
}

// AlertManager lists and acknowledges alerts
type AlertManager interface {
	GetAlertsByDetector(ctx context.Context, detectorID string) []core.Alert
	AcknowledgeAlerts(ctx context.Context, detectorID string, alertIDs []string) (gateway.AcknowledgeResponse, bool)
}

// CorrelationLister resolves correlated findings
type CorrelationLister interface {
	GetCorrelatedFindings(ctx context.Context, findingID, logType string, nearby int) []service.CorrelatedFindingDetail
	GetCorrelations(ctx context.Context, window core.TimeWindow) []core.CorrelationPair
}

// ThreatIntelLister lists threat-intel sources
type ThreatIntelLister interface {
	GetSources(ctx context.Context) []core.ThreatIntelSource
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// Deps are the collaborators served by the API. Nil members disable their routes.
type Deps struct {
	Overview     OverviewActor
	Detectors    DetectorLister
	Findings     FindingLister
	Alerts       AlertManager
	Correlations CorrelationLister
	ThreatIntel  ThreatIntelLister
	Hub          *Hub
	Health       map[string]HealthChecker

	// BackendCircuit reports the backend client's circuit breaker state
	BackendCircuit func() core.CircuitBreakerState
}

// API holds the API server
type API struct {
	router   *mux.Router
	mu       sync.Mutex
	server   *http.Server
	stopped  bool
	deps     Deps
	config   *config.Config
	logger   *zap.SugaredLogger
	limiter  *IPRateLimiter
	failures *authFailures
	validate *validator.Validate
	now      func() time.Time
}

// NewAPI creates a new API server
func NewAPI(deps Deps, cfg *config.Config, logger *zap.SugaredLogger) *API {
	a := &API{
		router:   mux.NewRouter(),
		deps:     deps,
		config:   cfg,
		logger:   logger,
		limiter:  NewIPRateLimiter(cfg.API.RateLimit.RequestsPerSecond, cfg.API.RateLimit.Burst, time.Hour),
		failures: newAuthFailures(),
		validate: validator.New(),
		now:      time.Now,
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/health", a.healthCheck).Methods(http.MethodGet)
	a.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	a.router.HandleFunc("/api/auth/login", a.login).Methods(http.MethodPost)

	protected := a.router.PathPrefix("/api").Subrouter()
	if a.config.Auth.Enabled {
		protected.Use(a.authMiddleware)
	}

	if a.deps.Overview != nil {
		protected.HandleFunc("/overview", a.getOverview).Methods(http.MethodGet)
		protected.HandleFunc("/overview/summary", a.getOverviewSummary).Methods(http.MethodGet)
	}
	if a.deps.Detectors != nil {
		protected.HandleFunc("/detectors", a.getDetectors).Methods(http.MethodGet)
		protected.HandleFunc("/detectors/{id}", a.getDetector).Methods(http.MethodGet)
	}
	if a.deps.Findings != nil {
		protected.HandleFunc("/findings", a.getFindings).Methods(http.MethodGet)
	}
	if a.deps.Alerts != nil {
		protected.HandleFunc("/alerts", a.getAlerts).Methods(http.MethodGet)
		protected.HandleFunc("/detectors/{id}/alerts/acknowledge", a.acknowledgeAlerts).Methods(http.MethodPost)
	}
	if a.deps.Correlations != nil {
		protected.HandleFunc("/findings/{id}/correlations", a.getFindingCorrelations).Methods(http.MethodGet)
		protected.HandleFunc("/correlations", a.getCorrelations).Methods(http.MethodGet)
	}
	if a.deps.ThreatIntel != nil {
		protected.HandleFunc("/threat-intel/sources", a.getThreatIntelSources).Methods(http.MethodGet)
	}

	if a.deps.Hub != nil {
		var ws http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serveWs(a.deps.Hub, a.logger, w, r)
		})
		if a.config.Auth.Enabled {
			ws = a.authMiddleware(ws)
		}
		a.router.Handle("/ws", ws).Methods(http.MethodGet)
	}

	// preflight requests only need the CORS headers
	a.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// Handler returns the root HTTP handler
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the API server
func (a *API) Start(addr string) error {
	srv, err := a.newServer(addr)
	if err != nil {
		return err
	}
	return srv.ListenAndServe()
}

// StartTLS starts the API server with TLS
func (a *API) StartTLS(addr, certFile, keyFile string) error {
	srv, err := a.newServer(addr)
	if err != nil {
		return err
	}
	return srv.ListenAndServeTLS(certFile, keyFile)
}

func (a *API) newServer(addr string) (*http.Server, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return nil, http.ErrServerClosed
	}
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		// refreshes can legitimately take a while
		WriteTimeout: core.RefreshTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return a.server, nil
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	alreadyStopped := a.stopped
	a.stopped = true
	a.mu.Unlock()

	if !alreadyStopped {
		a.limiter.Close()
	}
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// BroadcastRefresh is an overview.RefreshHandler that pushes each refreshed
// view-model summary to WebSocket clients
func (a *API) BroadcastRefresh(vm core.OverviewViewModel) {
	if a.deps.Hub == nil || a.deps.Overview == nil {
		return
	}
	w := a.deps.Overview.Window()
	summary := overview.BuildSummary(vm, w, overview.DefaultInterval(w))
	if err := a.deps.Hub.BroadcastMessage(MessageOverviewRefreshed, RefreshEvent{
		Window:   w,
		Findings: len(vm.Findings),
		Alerts:   len(vm.Alerts),
		Summary:  summary,
	}); err != nil {
		a.logger.Debugf("Failed to broadcast refresh: %v", err)
	}
}
