package stores

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storefront-services/internal/common/logger"
	"storefront-services/internal/locator/geocode"
	"storefront-services/internal/models"
)

type fakeSource struct {
	records []models.StoreRecord
	err     error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) List(context.Context) ([]models.StoreRecord, error) {
	return f.records, f.err
}

func TestLocator_RefreshAndSearch(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{records: []models.StoreRecord{
		{ID: "far", Name: "Far", StoreType: models.StoreTypeRetailer, City: "Miami", Country: "US"},
		{ID: "near", Name: "Near", StoreType: models.StoreTypeRep, City: "Provo", Country: "US"},
		{ID: "lost", Name: "Lost", StoreType: models.StoreTypeRep, City: "Atlantis", Country: "Sea"},
	}}
	resolver := &fakeResolver{results: map[string]*geocode.Result{
		"Miami": {Lat: 25.76, Lng: -80.19},
		"Provo": {Lat: 40.23, Lng: -111.65},
	}}
	log := logger.NewTestLogger(t)
	loc := NewLocator(src, NewPipeline(resolver, log, WithDelay(0)), Ranker{}, log)

	assert.Empty(t, loc.Snapshot())
	require.NoError(t, loc.Refresh(context.Background()))
	loc.Wait()

	all := loc.Search(Criteria{}, at(40.76, -111.89))
	assert.Equal(t, []string{"near", "far", "lost"}, ids(all))
	require.NotNil(t, all[0].DistanceMiles)
	assert.Nil(t, all[2].DistanceMiles)

	reps := loc.Search(Criteria{Type: models.StoreTypeRep}, nil)
	assert.Equal(t, []string{"near", "lost"}, ids(reps))
}

func TestLocator_RefreshCancelsPreviousRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{records: []models.StoreRecord{
		{ID: "1", City: "Provo", Country: "US"},
		{ID: "2", City: "Denver", Country: "US"},
	}}
	resolver := &fakeResolver{results: map[string]*geocode.Result{
		"Provo":  {Lat: 40.23, Lng: -111.65},
		"Denver": {Lat: 39.74, Lng: -104.99},
	}}
	log := logger.NewTestLogger(t)
	loc := NewLocator(src, NewPipeline(resolver, log, WithDelay(time.Hour)), Ranker{}, log)

	require.NoError(t, loc.Refresh(context.Background()))
	require.Eventually(t, func() bool {
		snap := loc.Snapshot()
		return len(snap) == 2 && snap[0].Status == StatusResolved
	}, time.Second, 5*time.Millisecond)

	// The first run is parked in its inter-request delay; a second refresh
	// must not wait an hour for it.
	done := make(chan error, 1)
	go func() { done <- loc.Refresh(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresh blocked on the previous run")
	}

	loc.Stop()
	assert.Len(t, loc.Snapshot(), 2)
}

func TestLocator_ConcurrentRefreshAndStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{records: []models.StoreRecord{
		{ID: "1", City: "Provo", Country: "US"},
		{ID: "2", City: "Denver", Country: "US"},
	}}
	resolver := &fakeResolver{results: map[string]*geocode.Result{
		"Provo":  {Lat: 40.23, Lng: -111.65},
		"Denver": {Lat: 39.74, Lng: -104.99},
	}}
	log := logger.NewTestLogger(t)
	loc := NewLocator(src, NewPipeline(resolver, log, WithDelay(time.Hour)), Ranker{}, log)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, loc.Refresh(context.Background()))
		}()
		go func() {
			defer wg.Done()
			loc.Stop()
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh and stop deadlocked")
	}
	loc.Stop()
	loc.Wait()
}

func TestLocator_SourceFailureKeepsSnapshot(t *testing.T) {
	src := &fakeSource{err: errors.New("cms down")}
	log := logger.NewTestLogger(t)
	loc := NewLocator(src, NewPipeline(&fakeResolver{}, log), Ranker{}, log)

	err := loc.Refresh(context.Background())

	assert.Error(t, err)
	assert.Empty(t, loc.Snapshot())
	loc.Stop()
}
