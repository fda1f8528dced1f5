package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"storefront-services/internal/common/config"
)

func TestObservability_RecordsMetricsAndSpans(t *testing.T) {
	reg := promclient.NewRegistry()
	spans := tracetest.NewInMemoryExporter()

	obs, err := New(config.ObservabilityConfig{ServiceName: "storefront-test"},
		WithRegisterer(reg), WithSpanExporter(spans))
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	obs.RecordGeocodeAttempt(ctx, "open", "ok")
	obs.RecordStoreSettled(ctx, true)
	obs.RecordCatalogPage(ctx, "postgres", false)
	obs.RecordJobDuration(ctx, "geocode-stores", 120*time.Millisecond, "completed")

	_, span := obs.StartSpan(ctx, "catalog.page", attribute.Int("page", 2))
	span.End()

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "locator_geocode_attempts")
	assert.Contains(t, joined, "locator_stores_settled")
	assert.Contains(t, joined, "catalog_pages_served")

	ended := spans.GetSpans()
	require.Len(t, ended, 1)
	assert.Equal(t, "catalog.page", ended[0].Name)
}

func TestObservability_NilIsSafe(t *testing.T) {
	var obs *Observability
	ctx := context.Background()

	assert.NotPanics(t, func() {
		obs.RecordGeocodeAttempt(ctx, "keyed", "timeout")
		obs.RecordStoreSettled(ctx, false)
		obs.RecordCatalogPage(ctx, "elasticsearch", true)
		_, span := obs.StartSpan(ctx, "noop")
		span.End()
		assert.NoError(t, obs.Shutdown(ctx))
	})
}
