package query

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"storefront-services/internal/catalog/pagination"
	"storefront-services/internal/catalog/params"
	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/logger"
	"storefront-services/internal/common/metrics"
	"storefront-services/internal/common/observability"
	"storefront-services/internal/models"
)

// Result is one rendered catalog page. A failed query yields an empty page
// with Failed set instead of an error page.
type Result struct {
	Products     []models.Product   `json:"products"`
	Total        int                `json:"total"`
	DisplayStart int                `json:"displayStart"`
	DisplayEnd   int                `json:"displayEnd"`
	Page         int                `json:"page"`
	TotalPages   int                `json:"totalPages"`
	Window       []pagination.Token `json:"pagination"`
	Failed       bool               `json:"failed"`
	Retryable    bool               `json:"retryable,omitempty"`
	Error        string             `json:"error,omitempty"`
}

type Service struct {
	backend Backend
	pages   PageCache
	timeout time.Duration
	obs     *observability.Observability
	logger  logger.Logger
}

type Option func(*Service)

func WithPageCache(c PageCache) Option {
	return func(s *Service) { s.pages = c }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithObservability(obs *observability.Observability) Option {
	return func(s *Service) { s.obs = obs }
}

func NewService(backend Backend, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		timeout: 5 * time.Second,
		logger:  log.WithFields(map[string]interface{}{"component": "catalog", "backend": backend.Name()}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Page runs the rows and count queries concurrently under the same
// predicate and assembles the page. On failure the returned Result is the
// empty failed page and err describes the cause.
func (s *Service) Page(ctx context.Context, spec params.QuerySpec) (*Result, error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "catalog.page",
		attribute.String("backend", s.backend.Name()),
		attribute.Int("page", spec.Page),
		attribute.String("sort", string(spec.Sort)),
	)
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	snap, err := s.snapshot(ctx, PredicateFor(spec), spec.Sort, WindowFor(spec))

	metrics.CatalogQueryDuration.WithLabelValues(s.backend.Name()).Observe(time.Since(start).Seconds())
	s.obs.RecordCatalogPage(ctx, s.backend.Name(), err != nil)

	if err != nil {
		metrics.CatalogQueries.WithLabelValues(s.backend.Name(), "failed").Inc()
		span.RecordError(err)
		stdErr := errors.AsStandardError(err)
		s.logger.Error("catalog query failed", map[string]interface{}{
			"errorCode": stdErr.Code,
			"details":   stdErr.Details,
			"page":      spec.Page,
		})
		return failedResult(spec, stdErr), stdErr
	}

	metrics.CatalogQueries.WithLabelValues(s.backend.Name(), "ok").Inc()
	return buildResult(spec, snap.Products, snap.Total), nil
}

// snapshot reads rows and total for one window. A cached snapshot is only
// ever written from a single pair of live queries, so rows and total always
// come from the same catalog state.
func (s *Service) snapshot(ctx context.Context, pred Predicate, sort params.Sort, w Window) (Snapshot, error) {
	if s.pages == nil {
		return s.query(ctx, pred, sort, w)
	}

	key := fmt.Sprintf("%s:%s:%s:%d:%d", s.backend.Name(), pred.Key(), sort, w.Offset, w.Limit)
	if snap, ok := s.pages.Get(ctx, key); ok {
		metrics.CatalogPageCache.WithLabelValues("hit").Inc()
		return snap, nil
	}
	metrics.CatalogPageCache.WithLabelValues("miss").Inc()

	snap, err := s.query(ctx, pred, sort, w)
	if err != nil {
		return Snapshot{}, err
	}
	s.pages.Set(ctx, key, snap)
	return snap, nil
}

func (s *Service) query(ctx context.Context, pred Predicate, sort params.Sort, w Window) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Products, err = s.backend.Rows(gctx, pred, sort, w)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Total, err = s.backend.Count(gctx, pred)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func buildResult(spec params.QuerySpec, products []models.Product, total int) *Result {
	if products == nil {
		products = []models.Product{}
	}
	displayEnd := spec.End
	if total < displayEnd {
		displayEnd = total
	}
	displayStart := 0
	if displayEnd > spec.Offset {
		displayStart = spec.Offset + 1
	}
	totalPages := pagination.TotalPages(total, spec.PageSize)

	return &Result{
		Products:     products,
		Total:        total,
		DisplayStart: displayStart,
		DisplayEnd:   displayEnd,
		Page:         spec.Page,
		TotalPages:   totalPages,
		Window:       pagination.Window(spec.Page, totalPages),
	}
}

func failedResult(spec params.QuerySpec, err *errors.StandardError) *Result {
	return &Result{
		Products:   []models.Product{},
		Page:       spec.Page,
		TotalPages: 1,
		Window:     pagination.Window(1, 1),
		Failed:     true,
		Retryable:  err.Retryable,
		Error:      err.Message,
	}
}
