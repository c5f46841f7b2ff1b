package service

import (
	"context"
	"fmt"
	"strings"

	"secanalytics/core"
	"secanalytics/metrics"
	"secanalytics/notify"
	"secanalytics/util/goroutine"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultPageConcurrency bounds how many follow-up pages are in flight at once
const DefaultPageConcurrency = 4

// Page is one page of a paginated listing
type Page[T any] struct {
	Items []T
	Total int
}

// PageFunc fetches the page starting at startIndex
type PageFunc[T any] func(ctx context.Context, startIndex, size int) core.Result[Page[T]]

// Notifier is the fire-and-forget notification sink
type Notifier interface {
	Notify(kind notify.Kind, action, objectName, detail string)
}

// FetchReport describes how a paginated fetch went
type FetchReport struct {
	Total       int
	Pages       int
	FailedPages []int // 1-based page numbers
}

// Complete reports whether every page was retrieved
func (r FetchReport) Complete() bool {
	return len(r.FailedPages) == 0
}

// Paginator retrieves complete listings from page-size-limited endpoints.
// Follow-up pages are fetched concurrently; a failed page is dropped
// without affecting the others.
type Paginator struct {
	notifier    Notifier
	logger      *zap.SugaredLogger
	pageSize    int
	concurrency int
}

// PaginatorOption customises a Paginator
type PaginatorOption func(*Paginator)

// WithPageSize overrides core.PageSize
func WithPageSize(size int) PaginatorOption {
	return func(p *Paginator) {
		if size > 0 {
			p.pageSize = size
		}
	}
}

// WithConcurrency overrides DefaultPageConcurrency
func WithConcurrency(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPaginator creates a paginator reporting failures to notifier
func NewPaginator(notifier Notifier, logger *zap.SugaredLogger, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		notifier:    notifier,
		logger:      logger,
		pageSize:    core.PageSize,
		concurrency: DefaultPageConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PageSize returns the configured page size
func (p *Paginator) PageSize() int {
	return p.pageSize
}

// FetchAll retrieves every item of a listing. objectName labels
// notifications and metrics (e.g. "findings").
//
// The first page is fetched alone; if it fails the call returns no items
// and false. Remaining pages are requested concurrently at offsets
// i*pageSize and merged in issue order. Failed follow-up pages are
// reported in a single notification and omitted from the result.
func FetchAll[T any](ctx context.Context, p *Paginator, objectName string, fetch PageFunc[T]) ([]T, FetchReport, bool) {
	report := FetchReport{Pages: 1}

	first := safeFetch(ctx, p, objectName, fetch, 0)
	if !first.OK {
		metrics.PagesFetched.WithLabelValues(objectName, "error").Inc()
		report.FailedPages = []int{1}
		p.notifier.Notify(notify.KindError, "retrieve", objectName, first.Error)
		return []T{}, report, false
	}
	metrics.PagesFetched.WithLabelValues(objectName, "success").Inc()

	report.Total = first.Response.Total
	items := append([]T(nil), first.Response.Items...)
	if report.Total <= p.pageSize {
		return nonNil(items), report, true
	}

	remaining := (report.Total+p.pageSize-1)/p.pageSize - 1
	report.Pages += remaining

	// each goroutine owns one slot, so no locking is needed
	settled := make([]core.Result[Page[T]], remaining)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := 0; i < remaining; i++ {
		g.Go(func() error {
			settled[i] = safeFetch(gctx, p, objectName, fetch, (i+1)*p.pageSize)
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range settled {
		if !res.OK {
			metrics.PagesFetched.WithLabelValues(objectName, "error").Inc()
			report.FailedPages = append(report.FailedPages, i+2)
			p.logger.Warnw("Page fetch failed",
				"object", objectName,
				"page", i+2,
				"pages", report.Pages,
				"error", res.Error)
			continue
		}
		metrics.PagesFetched.WithLabelValues(objectName, "success").Inc()
		items = append(items, res.Response.Items...)
	}

	if !report.Complete() {
		p.notifier.Notify(notify.KindError, "retrieve", objectName,
			fmt.Sprintf("%d of %d pages could not be loaded (pages %s)",
				len(report.FailedPages), report.Pages, joinInts(report.FailedPages)))
	}
	return nonNil(items), report, true
}

// safeFetch turns a panicking page function into a failed result
func safeFetch[T any](ctx context.Context, p *Paginator, objectName string, fetch PageFunc[T], start int) (res core.Result[Page[T]]) {
	var err error
	defer func() {
		if err != nil {
			res = core.Failure[Page[T]](err)
		}
	}()
	defer goroutine.RecoverTo("paginate-"+objectName, p.logger, &err)
	return fetch(ctx, start, p.pageSize)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
