// Package overview maintains the time-windowed overview snapshot of
// detectors, findings and alerts and fans it out to subscribers.
package overview

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"secanalytics/core"
	"secanalytics/metrics"
	"secanalytics/notify"
	"secanalytics/util/goroutine"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// TracerName identifies spans emitted by this package
const TracerName = "secanalytics/overview"

// RefreshHandler receives the view-model after each completed refresh.
// Each handler gets its own copy and may keep or modify it freely.
type RefreshHandler func(vm core.OverviewViewModel)

// Subscription identifies a registered refresh handler
type Subscription string

// DetectorSource lists detectors; false means the fetch failed
type DetectorSource interface {
	GetDetectors(ctx context.Context) ([]core.Detector, bool)
}

// FindingSource returns every finding of a detector
type FindingSource interface {
	GetFindingsPerDetector(ctx context.Context, detectorID string) []core.Finding
}

// AlertSource returns every alert of a detector
type AlertSource interface {
	GetAlertsByDetector(ctx context.Context, detectorID string) []core.Alert
}

// RuleSource resolves rules by id
type RuleSource interface {
	GetRulesByIDs(ctx context.Context, ids []string) core.RuleLookup
}

// Notifier is the fire-and-forget notification sink
type Notifier interface {
	Notify(kind notify.Kind, action, objectName, detail string)
}

// Config wires an actor to its data sources
type Config struct {
	Detectors      DetectorSource
	Findings       FindingSource
	Alerts         AlertSource
	Rules          RuleSource
	Notifier       Notifier
	Logger         *zap.SugaredLogger
	TracerProvider trace.TracerProvider

	// Now is the clock used to resolve relative time ranges
	Now func() time.Time
}

type registration struct {
	id      Subscription
	handler RefreshHandler
}

// ViewModelActor owns the overview view-model. At most one refresh runs
// at a time; a refresh requested while another is in flight is dropped.
type ViewModelActor struct {
	detectors DetectorSource
	findings  FindingSource
	alerts    AlertSource
	rules     RuleSource
	notifier  Notifier
	logger    *zap.SugaredLogger
	tracer    trace.Tracer
	now       func() time.Time

	inProgress atomic.Bool

	mu          sync.RWMutex
	vm          core.OverviewViewModel
	window      core.TimeWindow
	handlers    []registration
	lastRefresh time.Time
}

// NewViewModelActor creates an actor with an empty view-model
func NewViewModelActor(cfg Config) (*ViewModelActor, error) {
	if cfg.Detectors == nil || cfg.Findings == nil || cfg.Alerts == nil || cfg.Rules == nil {
		return nil, fmt.Errorf("overview actor requires detector, finding, alert and rule sources")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("overview actor requires a notifier")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &ViewModelActor{
		detectors: cfg.Detectors,
		findings:  cfg.Findings,
		alerts:    cfg.Alerts,
		rules:     cfg.Rules,
		notifier:  cfg.Notifier,
		logger:    logger,
		tracer:    tp.Tracer(TracerName),
		now:       now,
		vm: core.OverviewViewModel{
			Detectors: []core.Detector{},
			Findings:  []core.FindingItem{},
			Alerts:    []core.AlertItem{},
		},
	}, nil
}

// RegisterRefreshHandler appends h to the handler list. Registering the
// same handler twice makes it run twice per refresh.
func (a *ViewModelActor) RegisterRefreshHandler(h RefreshHandler) Subscription {
	sub := Subscription(uuid.New().String())
	a.mu.Lock()
	a.handlers = append(a.handlers, registration{id: sub, handler: h})
	count := len(a.handlers)
	a.mu.Unlock()

	metrics.RefreshHandlers.Set(float64(count))
	return sub
}

// Subscribe registers h and returns a function that unregisters it
func (a *ViewModelActor) Subscribe(h RefreshHandler) (unsubscribe func()) {
	sub := a.RegisterRefreshHandler(h)
	var once sync.Once
	return func() {
		once.Do(func() { a.Unsubscribe(sub) })
	}
}

// Unsubscribe removes a handler. It reports false if sub is unknown.
func (a *ViewModelActor) Unsubscribe(sub Subscription) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, r := range a.handlers {
		if r.id == sub {
			a.handlers = append(a.handlers[:i:i], a.handlers[i+1:]...)
			metrics.RefreshHandlers.Set(float64(len(a.handlers)))
			return true
		}
	}
	return false
}

// HandlerCount returns the number of registered handlers
func (a *ViewModelActor) HandlerCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.handlers)
}

// State reports whether a refresh is running
func (a *ViewModelActor) State() core.RefreshState {
	if a.inProgress.Load() {
		return core.RefreshStateInProgress
	}
	return core.RefreshStateComplete
}

// Snapshot returns a copy of the current view-model
func (a *ViewModelActor) Snapshot() core.OverviewViewModel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.vm.Clone()
}

// Window returns the window the current view-model was filtered to
func (a *ViewModelActor) Window() core.TimeWindow {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.window
}

// LastRefresh returns when the last refresh completed
func (a *ViewModelActor) LastRefresh() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRefresh
}

// OnRefresh rebuilds the view-model for the [start, end] range and
// notifies every handler in registration order. It returns false without
// doing anything if a refresh is already in progress. Failures never
// abort the refresh; they are reported through the notifier.
func (a *ViewModelActor) OnRefresh(ctx context.Context, start, end string) bool {
	if !a.inProgress.CompareAndSwap(false, true) {
		metrics.RefreshesTotal.WithLabelValues("dropped").Inc()
		a.logger.Debug("Overview refresh already in progress, dropping request")
		return false
	}
	defer a.inProgress.Store(false)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, core.RefreshTimeout)
		defer cancel()
	}

	began := time.Now()
	ctx, span := a.tracer.Start(ctx, "overview.refresh", trace.WithAttributes(
		attribute.String("range.start", start),
		attribute.String("range.end", end),
	))
	defer span.End()

	window, windowOK := a.resolveWindow(start, end)

	previous := a.currentDetectors()
	detectors := a.loadDetectors(ctx, previous)
	findings := a.loadFindings(ctx, detectors)
	alerts := a.loadAlerts(ctx, detectors)

	vm := core.OverviewViewModel{
		Detectors: detectors,
		Findings:  []core.FindingItem{},
		Alerts:    []core.AlertItem{},
	}
	if windowOK {
		vm.Findings = FilterToWindow(findings, window)
		vm.Alerts = FilterToWindow(alerts, window)
	}

	a.mu.Lock()
	a.vm = vm
	a.window = window
	a.lastRefresh = a.now()
	handlers := append([]registration(nil), a.handlers...)
	a.mu.Unlock()

	metrics.OverviewItems.WithLabelValues("detectors").Set(float64(len(vm.Detectors)))
	metrics.OverviewItems.WithLabelValues("findings").Set(float64(len(vm.Findings)))
	metrics.OverviewItems.WithLabelValues("alerts").Set(float64(len(vm.Alerts)))
	span.SetAttributes(
		attribute.Int("overview.detectors", len(vm.Detectors)),
		attribute.Int("overview.findings", len(vm.Findings)),
		attribute.Int("overview.alerts", len(vm.Alerts)),
	)

	a.fanOut(ctx, vm, handlers)

	metrics.RefreshesTotal.WithLabelValues("completed").Inc()
	metrics.RefreshDuration.Observe(time.Since(began).Seconds())
	a.logger.Infow("Overview refreshed",
		"detectors", len(vm.Detectors),
		"findings", len(vm.Findings),
		"alerts", len(vm.Alerts),
		"handlers", len(handlers),
		"duration", time.Since(began).String())
	return true
}

// Run refreshes immediately and then every interval until ctx is done.
// Ticks that land while a refresh is running are dropped.
func (a *ViewModelActor) Run(ctx context.Context, interval time.Duration, start, end string) {
	if interval <= 0 {
		a.logger.Warn("Overview auto-refresh disabled: non-positive interval")
		return
	}
	a.OnRefresh(ctx, start, end)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Overview auto-refresh stopped")
			return
		case <-ticker.C:
			a.OnRefresh(ctx, start, end)
		}
	}
}

func (a *ViewModelActor) resolveWindow(start, end string) (core.TimeWindow, bool) {
	window, err := core.ParseTimeRange(start, end, a.now())
	if err != nil {
		a.notifier.Notify(notify.KindError, "parse", "time range", err.Error())
		return core.TimeWindow{}, false
	}
	if window.IsInverted() {
		a.logger.Debugw("Inverted time range, overview will be empty", "start", window.Start, "end", window.End)
	}
	return window, true
}

func (a *ViewModelActor) currentDetectors() []core.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.vm.Clone().Detectors
}

// loadDetectors returns the fresh detector list, or previous when the fetch fails
func (a *ViewModelActor) loadDetectors(ctx context.Context, previous []core.Detector) []core.Detector {
	ctx, span := a.tracer.Start(ctx, "overview.detectors")
	defer span.End()

	var (
		detectors []core.Detector
		ok        bool
	)
	err := a.guard("detectors", func() {
		detectors, ok = a.detectors.GetDetectors(ctx)
	})
	if err != nil || !ok {
		span.SetStatus(codes.Error, "detectors unavailable")
		return previous
	}
	if detectors == nil {
		detectors = []core.Detector{}
	}
	return detectors
}

func (a *ViewModelActor) loadFindings(ctx context.Context, detectors []core.Detector) []core.FindingItem {
	ctx, span := a.tracer.Start(ctx, "overview.findings")
	defer span.End()

	type detectorFindings struct {
		detector core.Detector
		findings []core.Finding
	}
	perDetector := make([]detectorFindings, 0, len(detectors))
	var all []core.Finding
	for _, d := range detectors {
		var found []core.Finding
		if err := a.guard("findings", func() {
			found = a.findings.GetFindingsPerDetector(ctx, d.ID)
		}); err != nil {
			continue
		}
		perDetector = append(perDetector, detectorFindings{detector: d, findings: found})
		all = append(all, found...)
	}

	rules := core.RuleLookup{}
	if ids := collectRuleIDs(all); len(ids) > 0 {
		_ = a.guard("rules", func() {
			rules = a.rules.GetRulesByIDs(ctx, ids)
		})
	}
	span.SetAttributes(attribute.Int("findings.fetched", len(all)), attribute.Int("rules.resolved", len(rules)))

	items := make([]core.FindingItem, 0, len(all))
	for _, df := range perDetector {
		for _, f := range df.findings {
			items = append(items, BuildFindingItem(f, df.detector, rules))
		}
	}
	return items
}

func (a *ViewModelActor) loadAlerts(ctx context.Context, detectors []core.Detector) []core.AlertItem {
	ctx, span := a.tracer.Start(ctx, "overview.alerts")
	defer span.End()

	var items []core.AlertItem
	for _, d := range detectors {
		var found []core.Alert
		if err := a.guard("alerts", func() {
			found = a.alerts.GetAlertsByDetector(ctx, d.ID)
		}); err != nil {
			continue
		}
		for _, alert := range found {
			items = append(items, BuildAlertItem(alert, d))
		}
	}
	span.SetAttributes(attribute.Int("alerts.fetched", len(items)))
	return items
}

// guard runs one phase step, converting a panic into a notification
func (a *ViewModelActor) guard(objectName string, fn func()) (err error) {
	defer func() {
		if err != nil {
			a.notifier.Notify(notify.KindError, "retrieve", objectName, err.Error())
		}
	}()
	defer goroutine.RecoverTo("overview-"+objectName, a.logger, &err)
	fn()
	return nil
}

func (a *ViewModelActor) fanOut(ctx context.Context, vm core.OverviewViewModel, handlers []registration) {
	_, span := a.tracer.Start(ctx, "overview.fanout", trace.WithAttributes(attribute.Int("handlers", len(handlers))))
	defer span.End()

	for _, r := range handlers {
		a.invoke(r, vm.Clone())
	}
}

func (a *ViewModelActor) invoke(r registration, vm core.OverviewViewModel) {
	var err error
	defer func() {
		if err != nil {
			a.notifier.Notify(notify.KindError, "notify", "refresh handler", err.Error())
		}
	}()
	defer goroutine.RecoverTo("refresh-handler-"+string(r.id), a.logger, &err)
	r.handler(vm)
}
