package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"secanalytics/core"
	"secanalytics/gateway"
	"secanalytics/overview"
	"secanalytics/service"

	"github.com/gorilla/mux"
)

const healthCheckTimeout = 5 * time.Second

// OverviewResponse is the body of GET /api/overview
type OverviewResponse struct {
	// Refreshed is false when the request overlapped a running refresh and
	// the current snapshot was returned unchanged.
	Refreshed   bool              `json:"refreshed"`
	State       core.RefreshState `json:"state"`
	Window      core.TimeWindow   `json:"window"`
	LastRefresh *time.Time        `json:"last_refresh,omitempty"`
	core.OverviewViewModel
}

// SummaryResponse is the body of GET /api/overview/summary
type SummaryResponse struct {
	State       core.RefreshState `json:"state"`
	Window      core.TimeWindow   `json:"window"`
	LastRefresh *time.Time        `json:"last_refresh,omitempty"`
	overview.Summary
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status         string                   `json:"status"`
	Checks         map[string]string        `json:"checks,omitempty"`
	RefreshState   core.RefreshState        `json:"refresh_state,omitempty"`
	BackendCircuit core.CircuitBreakerState `json:"backend_circuit,omitempty"`
}

// healthCheck reports the reachability of each configured dependency
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy"}
	if a.deps.Overview != nil {
		resp.RefreshState = a.deps.Overview.State()
	}
	if a.deps.BackendCircuit != nil {
		resp.BackendCircuit = a.deps.BackendCircuit()
		if resp.BackendCircuit == core.CircuitBreakerStateOpen {
			resp.Status = "unhealthy"
		}
	}

	if len(a.deps.Health) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp.Checks = make(map[string]string, len(a.deps.Health))
		for name, check := range a.deps.Health {
			if err := check(ctx); err != nil {
				resp.Status = "unhealthy"
				resp.Checks[name] = sanitizeErrorMessage(err.Error())
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp, a.logger)
}

// getOverview runs a refresh for the requested window and returns the
// resulting view-model
func (a *API) getOverview(w http.ResponseWriter, r *http.Request) {
	q := OverviewQuery{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}
	if err := a.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), nil, nil)
		return
	}
	if q.Start == "" {
		q.Start = a.config.Refresh.Start
	}
	if q.End == "" {
		q.End = a.config.Refresh.End
	}
	if _, err := core.ParseTimeRange(q.Start, q.End, a.now()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	refreshed := a.deps.Overview.OnRefresh(r.Context(), q.Start, q.End)
	LogWithRequestID(r.Context(), a.logger).Debugw("Overview requested",
		"start", q.Start, "end", q.End, "refreshed", refreshed)

	writeJSON(w, http.StatusOK, OverviewResponse{
		Refreshed:         refreshed,
		State:             a.deps.Overview.State(),
		Window:            a.deps.Overview.Window(),
		LastRefresh:       optionalTime(a.deps.Overview.LastRefresh()),
		OverviewViewModel: a.deps.Overview.Snapshot(),
	}, a.logger)
}

// getOverviewSummary digests the current snapshot without refreshing
func (a *API) getOverviewSummary(w http.ResponseWriter, r *http.Request) {
	interval, err := parseDurationParam(r, "interval")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}
	if err := a.validate.Struct(SummaryQuery{Interval: interval}); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), nil, nil)
		return
	}

	window := a.deps.Overview.Window()
	if interval == 0 {
		interval = overview.DefaultInterval(window)
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		State:       a.deps.Overview.State(),
		Window:      window,
		LastRefresh: optionalTime(a.deps.Overview.LastRefresh()),
		Summary:     overview.BuildSummary(a.deps.Overview.Snapshot(), window, interval),
	}, a.logger)
}

func (a *API) getDetectors(w http.ResponseWriter, r *http.Request) {
	detectors, ok := a.deps.Detectors.GetDetectors(r.Context())
	if !ok {
		writeError(w, http.StatusBadGateway, "Failed to retrieve detectors", nil, nil)
		return
	}
	if detectors == nil {
		detectors = []core.Detector{}
	}
	writeJSON(w, http.StatusOK, detectors, a.logger)
}

func (a *API) getDetector(w http.ResponseWriter, r *http.Request) {
	detector, ok := a.deps.Detectors.GetDetector(r.Context(), mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusBadGateway, "Failed to retrieve detector", nil, nil)
		return
	}
	writeJSON(w, http.StatusOK, detector, a.logger)
}

func (a *API) getFindings(w http.ResponseWriter, r *http.Request) {
	q, ok := a.detectorItemsQuery(w, r)
	if !ok {
		return
	}
	findings := a.deps.Findings.GetFindingsPerDetector(r.Context(), q.DetectorID)
	writeJSON(w, http.StatusOK, Paginate(findings, PaginationParams{Page: q.Page, Limit: q.Limit}), a.logger)
}

func (a *API) getAlerts(w http.ResponseWriter, r *http.Request) {
	q, ok := a.detectorItemsQuery(w, r)
	if !ok {
		return
	}
	alerts := a.deps.Alerts.GetAlertsByDetector(r.Context(), q.DetectorID)
	writeJSON(w, http.StatusOK, Paginate(alerts, PaginationParams{Page: q.Page, Limit: q.Limit}), a.logger)
}

func (a *API) detectorItemsQuery(w http.ResponseWriter, r *http.Request) (DetectorItemsQuery, bool) {
	q, err := parseDetectorItemsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return q, false
	}
	if err := a.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), nil, nil)
		return q, false
	}
	return q, true
}

func (a *API) acknowledgeAlerts(w http.ResponseWriter, r *http.Request) {
	detectorID := mux.Vars(r)["id"]

	var req AcknowledgeRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil, nil)
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), nil, nil)
		return
	}

	resp, ok := a.deps.Alerts.AcknowledgeAlerts(r.Context(), detectorID, req.Alerts)
	if !ok {
		writeError(w, http.StatusBadGateway, "Failed to acknowledge alerts", nil, nil)
		return
	}

	username, _ := GetUsername(r.Context())
	LogWithRequestID(r.Context(), a.logger).Infow("Alerts acknowledged",
		"detector_id", detectorID,
		"requested", len(req.Alerts),
		"acknowledged", len(resp.Acknowledged),
		"username", username)
	writeJSON(w, http.StatusOK, normalizeAcknowledge(resp), a.logger)
}

func normalizeAcknowledge(resp gateway.AcknowledgeResponse) gateway.AcknowledgeResponse {
	if resp.Acknowledged == nil {
		resp.Acknowledged = []core.Alert{}
	}
	if resp.Failed == nil {
		resp.Failed = []core.Alert{}
	}
	if resp.Missing == nil {
		resp.Missing = []string{}
	}
	return resp
}

func (a *API) getFindingCorrelations(w http.ResponseWriter, r *http.Request) {
	nearby, err := parseIntParam(r, "nearby", DefaultNearbyCorrelations)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}
	q := CorrelationQuery{
		FindingID: mux.Vars(r)["id"],
		LogType:   strings.TrimSpace(r.URL.Query().Get("log_type")),
		Nearby:    nearby,
	}
	if err := a.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), nil, nil)
		return
	}

	details := a.deps.Correlations.GetCorrelatedFindings(r.Context(), q.FindingID, q.LogType, q.Nearby)
	if details == nil {
		details = []service.CorrelatedFindingDetail{}
	}
	writeJSON(w, http.StatusOK, details, a.logger)
}

func (a *API) getCorrelations(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	if start == "" {
		start = a.config.Refresh.Start
	}
	end := r.URL.Query().Get("end")
	if end == "" {
		end = a.config.Refresh.End
	}
	window, err := core.ParseTimeRange(start, end, a.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	pairs := a.deps.Correlations.GetCorrelations(r.Context(), window)
	if pairs == nil {
		pairs = []core.CorrelationPair{}
	}
	writeJSON(w, http.StatusOK, pairs, a.logger)
}

func (a *API) getThreatIntelSources(w http.ResponseWriter, r *http.Request) {
	sources := a.deps.ThreatIntel.GetSources(r.Context())
	if sources == nil {
		sources = []core.ThreatIntelSource{}
	}
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	writeJSON(w, http.StatusOK, sources, a.logger)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
