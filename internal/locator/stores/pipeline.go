package stores

import (
	"context"
	"time"

	"storefront-services/internal/common/logger"
	"storefront-services/internal/common/metrics"
	"storefront-services/internal/common/observability"
	"storefront-services/internal/locator/geocode"
	"storefront-services/internal/models"
)

const DefaultRequestDelay = 1100 * time.Millisecond

// CoordinateWriter persists coordinates found by geocoding back to the
// store source.
type CoordinateWriter interface {
	SaveCoordinates(ctx context.Context, storeID string, c models.Coordinates) error
}

// Pipeline geocodes stores that lack coordinates, strictly one request at a
// time with a fixed delay between requests.
type Pipeline struct {
	resolver geocode.Resolver
	delay    time.Duration
	writer   CoordinateWriter
	obs      *observability.Observability
	logger   logger.Logger
}

type PipelineOption func(*Pipeline)

func WithDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.delay = d }
}

func WithWriter(w CoordinateWriter) PipelineOption {
	return func(p *Pipeline) { p.writer = w }
}

func WithObservability(obs *observability.Observability) PipelineOption {
	return func(p *Pipeline) { p.obs = obs }
}

func NewPipeline(resolver geocode.Resolver, log logger.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		delay:    DefaultRequestDelay,
		logger:   log.WithFields(map[string]interface{}{"component": "store-geocoder"}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run publishes the seeded list, then a fresh snapshot after each store
// settles. Cancellation is checked before every publish: once ctx is done
// nothing more is published. A request already in flight is allowed to
// finish and its result is discarded. Run returns the last published
// snapshot and ctx.Err() if it stopped early.
func (p *Pipeline) Run(ctx context.Context, records []models.StoreRecord, publish func([]StoreWithCoords)) ([]StoreWithCoords, error) {
	list := Seed(records)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	publish(clone(list))

	pending := make([]int, 0, len(list))
	for i, s := range list {
		if s.Status == StatusPending {
			pending = append(pending, i)
		}
	}
	metrics.StoresPending.Set(float64(len(pending)))
	defer metrics.StoresPending.Set(0)

	// Requests are not tied to ctx cancellation; only their results are.
	requestCtx := context.WithoutCancel(ctx)

	for n, idx := range pending {
		if n > 0 && !p.wait(ctx) {
			return list, ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return list, err
		}

		coords := p.resolve(requestCtx, list[idx].StoreRecord)
		if err := ctx.Err(); err != nil {
			p.logger.Debug("discarding geocode result after cancellation", map[string]interface{}{
				"storeId": list[idx].ID,
			})
			return list, err
		}

		next := clone(list)
		next[idx].Coords = coords
		next[idx].Status = StatusUnresolved
		if coords != nil {
			next[idx].Status = StatusResolved
			p.writeBack(ctx, next[idx].ID, *coords)
		}
		p.obs.RecordStoreSettled(ctx, coords != nil)
		metrics.StoresPending.Set(float64(len(pending) - n - 1))

		list = next
		publish(clone(list))
	}
	return list, nil
}

func (p *Pipeline) wait(ctx context.Context) bool {
	if p.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) resolve(ctx context.Context, r models.StoreRecord) *models.Coordinates {
	res, err := p.resolver.Resolve(ctx, geocode.Request{
		Address: r.Address,
		City:    r.City,
		State:   r.State,
		ZipCode: r.ZipCode,
		Country: r.Country,
	})
	if err != nil {
		p.logger.Info("store left without coordinates", map[string]interface{}{
			"storeId": r.ID,
			"name":    r.Name,
			"error":   err.Error(),
		})
		return nil
	}
	c := models.Coordinates{Lat: res.Lat, Lng: res.Lng}
	if !c.Valid() {
		return nil
	}
	return &c
}

func (p *Pipeline) writeBack(ctx context.Context, id string, c models.Coordinates) {
	if p.writer == nil {
		return
	}
	if err := p.writer.SaveCoordinates(ctx, id, c); err != nil {
		p.logger.Warn("coordinate write-back failed", map[string]interface{}{
			"storeId": id,
			"error":   err.Error(),
		})
	}
}
