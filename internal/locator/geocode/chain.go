package geocode

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"storefront-services/internal/common/logger"
	"storefront-services/internal/common/metrics"
	"storefront-services/internal/common/observability"
)

const DefaultRequestTimeout = 10 * time.Second

// Chain tries each address variant against each provider in order and
// returns the first success. Every provider call gets its own timeout.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	obs       *observability.Observability
	logger    logger.Logger
}

func NewChain(providers []Provider, timeout time.Duration, obs *observability.Observability, log logger.Logger) *Chain {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Chain{
		providers: providers,
		timeout:   timeout,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "geocode"}),
	}
}

// Resolve returns ErrNoResult when nothing resolves. If any attempt failed
// for a transient reason that error is joined to ErrNoResult.
func (c *Chain) Resolve(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var transient error
	for _, query := range Variants(req) {
		for _, p := range c.providers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			res, err := c.attempt(ctx, p, query)
			if err == nil {
				return res, nil
			}
			if errors.Is(err, ErrTimeout) || errors.Is(err, ErrProviderFailed) {
				transient = err
			}
			c.logger.Debug("geocode attempt failed", map[string]interface{}{
				"provider": p.Name(),
				"query":    query,
				"error":    err.Error(),
			})
		}
	}

	if transient != nil {
		return nil, errors.Join(ErrNoResult, transient)
	}
	return nil, ErrNoResult
}

func (c *Chain) attempt(ctx context.Context, p Provider, query string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.obs.StartSpan(ctx, "geocode.attempt", attribute.String("provider", p.Name()))
	defer span.End()

	res, err := p.Geocode(ctx, query)
	if err != nil && ctx.Err() == context.DeadlineExceeded && !errors.Is(err, ErrTimeout) {
		err = errors.Join(ErrTimeout, err)
	}

	status := attemptStatus(err)
	metrics.GeocodeRequests.WithLabelValues(p.Name(), status).Inc()
	c.obs.RecordGeocodeAttempt(ctx, p.Name(), status)
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func attemptStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingAPIKey):
		return "skipped"
	case errors.Is(err, ErrNoResult):
		return "no_result"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
