// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront-services/internal/api"
	"storefront-services/internal/catalog/query"
	"storefront-services/internal/common/config"
	"storefront-services/internal/common/database"
	httpclient "storefront-services/internal/common/http"
	"storefront-services/internal/common/logger"
	"storefront-services/internal/inquiry"
	"storefront-services/internal/locator/geocode"
	"storefront-services/internal/locator/stores"
	"storefront-services/pkg/registry"
)

// These tests need a running PostgreSQL and Redis (see docker-compose in
// the deployment repo). They are skipped unless STOREFRONT_E2E=1.
var (
	pg     *database.PostgresClient
	rdb    *database.RedisClient
	zapLog *zap.Logger
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestMain(m *testing.M) {
	if os.Getenv("STOREFRONT_E2E") != "1" {
		fmt.Println("STOREFRONT_E2E not set, skipping end-to-end tests")
		os.Exit(0)
	}

	zapLog, _ = zap.NewDevelopment()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	pg, err = database.NewPostgres(config.PostgresConfig{
		Host:     getenv("E2E_PG_HOST", "localhost"),
		Port:     5432,
		Database: getenv("E2E_PG_DATABASE", "storefront_test"),
		User:     getenv("E2E_PG_USER", "storefront"),
		Password: os.Getenv("E2E_PG_PASSWORD"),
		SSLMode:  "disable",
	})
	if err == nil {
		err = pg.Ping(ctx)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to connect to PostgreSQL: %v", err))
	}

	rdb, err = database.NewRedis(config.RedisConfig{Address: getenv("E2E_REDIS_ADDR", "localhost:6379"), DB: 15})
	if err == nil {
		err = rdb.Ping(ctx)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to connect to Redis: %v", err))
	}

	if err := seed(ctx); err != nil {
		panic(fmt.Sprintf("failed to seed fixtures: %v", err))
	}

	code := m.Run()

	_ = rdb.Client.FlushDB(context.Background()).Err()
	rdb.Close()
	pg.Close()
	os.Exit(code)
}

func seed(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			sku TEXT NOT NULL,
			category_slugs TEXT[] NOT NULL DEFAULT '{}',
			voltage TEXT,
			frequency TEXT,
			protocols TEXT[] NOT NULL DEFAULT '{}',
			selected BOOLEAN NOT NULL DEFAULT FALSE,
			image_url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS stores (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			store_type TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL,
			state TEXT,
			zip_code TEXT,
			country TEXT NOT NULL,
			phone TEXT,
			email TEXT,
			website TEXT,
			lat DOUBLE PRECISION,
			lng DOUBLE PRECISION,
			geocoded_at TIMESTAMPTZ,
			published BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`TRUNCATE products, stores`,
	}
	for i := 1; i <= 30; i++ {
		category := "dimmers"
		if i%3 == 0 {
			category = "sensors"
		}
		statements = append(statements, fmt.Sprintf(
			`INSERT INTO products (id, title, slug, sku, category_slugs, voltage, protocols, selected)
			 VALUES ('p%02d', 'Wall Dimmer %02d', 'wall-dimmer-%02d', 'WD-%02d', ARRAY['%s'], '120v', ARRAY['zigbee'], %t)`,
			i, i, i, i, category, i%5 == 0))
	}
	statements = append(statements,
		`INSERT INTO stores (id, name, store_type, address, city, state, country, lat, lng)
		 VALUES ('s1', 'Provo Lighting', 'distributor', '450 N University Ave', 'Provo', 'UT', 'US', 40.2384, -111.6585)`,
		`INSERT INTO stores (id, name, store_type, address, city, state, country)
		 VALUES ('s2', 'Denver Rep', 'rep', '', 'Denver', 'CO', 'US')`,
		`INSERT INTO stores (id, name, store_type, address, city, state, country)
		 VALUES ('s3', 'Nowhere Audio', 'retailer', '', 'Atlantis', '', 'XX')`,
	)

	for _, stmt := range statements {
		if _, err := pg.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.Fields(stmt)[0], err)
		}
	}
	return nil
}

// fakeNominatim answers for Denver only.
func fakeNominatim(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Query().Get("q"), "Denver") {
			fmt.Fprint(w, `[{"lat":"39.7392","lon":"-104.9903","display_name":"Denver, Colorado, USA"}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newServer(t *testing.T) (*httptest.Server, *stores.Locator) {
	log := logger.NewZapAdapter(zapLog)

	catalog := query.NewService(query.NewPostgresBackend(pg.DB), log,
		query.WithPageCache(query.NewRedisPageCache(rdb.Client, time.Minute)))

	client := httpclient.NewClient(5*time.Second, "storefront-e2e/1.0")
	open := geocode.NewOpenProvider(fakeNominatim(t).URL, client)
	resolver := geocode.NewCachedResolver(
		geocode.NewChain([]geocode.Provider{open}, 5*time.Second, nil, log),
		rdb.Client, time.Hour, time.Minute, log)

	source := stores.NewPostgresSource(pg.DB)
	locator := stores.NewLocator(source,
		stores.NewPipeline(resolver, log, stores.WithDelay(10*time.Millisecond), stores.WithWriter(source)),
		stores.Ranker{}, log)
	t.Cleanup(locator.Stop)

	forms, err := inquiry.NewForms(registry.Default())
	require.NoError(t, err)

	handler := api.NewHandler(api.Dependencies{
		Catalog:   catalog,
		PageSize:  12,
		Stores:    locator,
		Geocoder:  resolver,
		Reverse:   open,
		Forms:     forms,
		Inquiries: inquiry.NewDeliverer(inquiry.Config{}, forms, nil, nil, log),
		Checks:    map[string]api.ReadinessCheck{"postgres": pg.Ping, "redis": rdb.Ping},
	}, log)

	srv := httptest.NewServer(api.NewRouter(handler, api.RouterConfig{}, log))
	t.Cleanup(srv.Close)
	return srv, locator
}

func getJSON(t *testing.T, url string, into interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	return resp.StatusCode
}

func TestE2E_CatalogPaging(t *testing.T) {
	srv, _ := newServer(t)

	var page struct {
		Products []struct {
			ID string `json:"id"`
		} `json:"products"`
		Total        int  `json:"total"`
		Page         int  `json:"page"`
		TotalPages   int  `json:"totalPages"`
		DisplayStart int  `json:"displayStart"`
		DisplayEnd   int  `json:"displayEnd"`
		Failed       bool `json:"failed"`
	}

	code := getJSON(t, srv.URL+"/api/catalog/category/dimmers?page=2&sort=sku-asc", &page)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, page.Failed)
	assert.Equal(t, 20, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 13, page.DisplayStart)
	assert.Equal(t, 20, page.DisplayEnd)
	assert.Len(t, page.Products, 8)

	page.Products = nil
	code = getJSON(t, srv.URL+"/api/catalog?search=wall+dimmer&page=9", &page)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 30, page.Total)
	assert.Equal(t, 9, page.Page)
	assert.Empty(t, page.Products)
	assert.Equal(t, 0, page.DisplayStart)
}

func TestE2E_LocatorGeocodesAndWritesBack(t *testing.T) {
	srv, locator := newServer(t)
	ctx := context.Background()

	require.NoError(t, locator.Refresh(ctx))
	locator.Wait()

	var body struct {
		Stores []struct {
			ID            string   `json:"id"`
			Status        string   `json:"status"`
			DistanceMiles *float64 `json:"distanceMiles"`
		} `json:"stores"`
		Located int `json:"located"`
	}
	code := getJSON(t, srv.URL+"/api/stores?lat=39.74&lng=-104.99", &body)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Stores, 3)
	assert.Equal(t, 2, body.Located)
	assert.Equal(t, "s2", body.Stores[0].ID)
	assert.Equal(t, "resolved", body.Stores[0].Status)
	assert.Equal(t, "s1", body.Stores[1].ID)
	assert.Equal(t, "s3", body.Stores[2].ID)
	assert.Nil(t, body.Stores[2].DistanceMiles)

	var lat float64
	require.NoError(t, pg.DB.QueryRowContext(ctx, `SELECT lat FROM stores WHERE id = 's2'`).Scan(&lat))
	assert.InDelta(t, 39.7392, lat, 1e-6)
}

func TestE2E_GeocodeEndpoint(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/api/geocode", "application/json",
		strings.NewReader(`{"city":"Denver","state":"CO","country":"US"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result geocode.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.InDelta(t, -104.9903, result.Lng, 1e-6)

	miss, err := http.Post(srv.URL+"/api/geocode", "application/json",
		strings.NewReader(`{"city":"Atlantis","country":"XX"}`))
	require.NoError(t, err)
	miss.Body.Close()
	assert.Equal(t, http.StatusNotFound, miss.StatusCode)
}

func TestE2E_Ready(t *testing.T) {
	srv, _ := newServer(t)

	var body struct {
		Ready  bool              `json:"ready"`
		Checks map[string]string `json:"checks"`
	}
	code := getJSON(t, srv.URL+"/ready", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Ready)
	assert.Len(t, body.Checks, 2)
}
