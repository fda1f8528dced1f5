package stores

import (
	"context"
	"sync"
	"sync/atomic"

	"storefront-services/internal/common/logger"
	"storefront-services/internal/models"
)

// Locator owns the current store snapshot. The geocoding pipeline replaces
// it whole; readers never see a partially updated list.
type Locator struct {
	source   Source
	pipeline *Pipeline
	ranker   Ranker
	logger   logger.Logger

	snapshot atomic.Pointer[[]StoreWithCoords]

	mu     sync.Mutex
	cancel context.CancelFunc
	// done is closed when the current background run returns.
	done chan struct{}
}

func NewLocator(source Source, pipeline *Pipeline, ranker Ranker, log logger.Logger) *Locator {
	l := &Locator{
		source:   source,
		pipeline: pipeline,
		ranker:   ranker,
		logger:   log.WithFields(map[string]interface{}{"component": "locator", "source": source.Name()}),
	}
	empty := []StoreWithCoords{}
	l.snapshot.Store(&empty)
	return l
}

// Refresh loads the store list and geocodes it in the background. A
// refresh already running is cancelled first and its remaining results are
// dropped.
func (l *Locator) Refresh(ctx context.Context) error {
	records, err := l.source.List(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	if l.done != nil {
		<-l.done
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	go func() {
		defer close(done)
		final, err := l.pipeline.Run(runCtx, records, l.publish)
		if err != nil {
			l.logger.Info("geocoding stopped early", map[string]interface{}{"error": err.Error()})
			return
		}
		resolved := 0
		for _, s := range final {
			if s.Coords != nil {
				resolved++
			}
		}
		l.logger.Info("store geocoding settled", map[string]interface{}{
			"stores":   len(final),
			"located":  resolved,
			"unplaced": len(final) - resolved,
		})
	}()
	return nil
}

func (l *Locator) publish(list []StoreWithCoords) {
	l.snapshot.Store(&list)
}

// Stop cancels background geocoding and waits for it to return.
func (l *Locator) Stop() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Wait blocks until the current background run finishes.
func (l *Locator) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (l *Locator) Snapshot() []StoreWithCoords {
	return *l.snapshot.Load()
}

// Search filters the snapshot and ranks the matches from user.
func (l *Locator) Search(c Criteria, user *models.Coordinates) []Ranked {
	return l.ranker.Rank(Filter(l.Snapshot(), c), user)
}
