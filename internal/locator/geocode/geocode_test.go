package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "storefront-services/internal/common/http"
	"storefront-services/internal/common/logger"
)

const testUserAgent = "storefront-services-test/1.0 (ops@example.com)"

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "city and country", req: Request{City: "Provo", Country: "US"}},
		{name: "missing city", req: Request{Country: "US"}, wantErr: true},
		{name: "blank country", req: Request{City: "Provo", Country: "  "}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVariants(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want []string
	}{
		{
			name: "full address",
			req:  Request{Address: "123 Main St", City: "Provo", State: "UT", ZipCode: "84601", Country: "US"},
			want: []string{
				"123 Main St, Provo, UT, 84601, US",
				"123 Main St, Provo, UT, US",
				"Provo, UT, US",
			},
		},
		{
			name: "no zip collapses first two",
			req:  Request{Address: "123 Main St", City: "Provo", State: "UT", Country: "US"},
			want: []string{"123 Main St, Provo, UT, US", "Provo, UT, US"},
		},
		{
			name: "city and country only",
			req:  Request{City: "Toronto", Country: "Canada"},
			want: []string{"Toronto, Canada"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Variants(tt.req))
		})
	}
}

func TestKeyedProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		switch r.URL.Query().Get("address") {
		case "Provo, UT, US":
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Provo, UT, USA","geometry":{"location":{"lat":40.2338,"lng":-111.6585}}}]}`))
		case "Nowhere":
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
		default:
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
		}
	}))
	defer server.Close()

	client := httpclient.NewClient(time.Second, testUserAgent)
	p := NewKeyedProvider(server.URL, "secret", client)

	res, err := p.Geocode(context.Background(), "Provo, UT, US")
	require.NoError(t, err)
	assert.InDelta(t, 40.2338, res.Lat, 1e-9)
	assert.Equal(t, "Provo, UT, USA", res.DisplayName)
	assert.Equal(t, "keyed", res.Provider)

	_, err = p.Geocode(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = p.Geocode(context.Background(), "anything else")
	assert.ErrorIs(t, err, ErrProviderFailed)

	_, err = NewKeyedProvider(server.URL, "", client).Geocode(context.Background(), "Provo")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenProvider_SendsUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			if r.URL.Query().Get("q") == "Provo, UT, US" {
				_, _ = w.Write([]byte(`[{"lat":"40.2338","lon":"-111.6585","display_name":"Provo, Utah County, Utah"}]`))
				return
			}
			_, _ = w.Write([]byte(`[]`))
		case "/reverse":
			if r.URL.Query().Get("lat") == "0" {
				_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
				return
			}
			_, _ = w.Write([]byte(`{"display_name":"Orem, Utah County, Utah"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := NewOpenProvider(server.URL+"/", httpclient.NewClient(time.Second, testUserAgent))

	res, err := p.Geocode(context.Background(), "Provo, UT, US")
	require.NoError(t, err)
	assert.InDelta(t, -111.6585, res.Lng, 1e-9)
	assert.Equal(t, "open", res.Provider)

	_, err = p.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNoResult)

	name, err := p.Reverse(context.Background(), 40.29, -111.69)
	require.NoError(t, err)
	assert.Equal(t, "Orem, Utah County, Utah", name)

	_, err = p.Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoResult)
}

type stubProvider struct {
	name    string
	results map[string]*Result
	err     error
	calls   []string
	delay   time.Duration
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	s.calls = append(s.calls, query)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if res, ok := s.results[query]; ok {
		return res, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, ErrNoResult
}

func TestChain_FallsBackAcrossProvidersAndVariants(t *testing.T) {
	keyed := &stubProvider{name: "keyed", err: ErrMissingAPIKey}
	open := &stubProvider{name: "open", results: map[string]*Result{
		"Provo, UT, US": {Lat: 40.23, Lng: -111.65, DisplayName: "Provo", Provider: "open"},
	}}
	chain := NewChain([]Provider{keyed, open}, time.Second, nil, logger.NewTestLogger(t))

	res, err := chain.Resolve(context.Background(), Request{
		Address: "1 Unknown Way", City: "Provo", State: "UT", ZipCode: "84601", Country: "US",
	})

	require.NoError(t, err)
	assert.Equal(t, "open", res.Provider)
	assert.Equal(t, []string{
		"1 Unknown Way, Provo, UT, 84601, US",
		"1 Unknown Way, Provo, UT, US",
		"Provo, UT, US",
	}, keyed.calls)
	assert.Equal(t, keyed.calls, open.calls)
}

func TestChain_PrimaryWins(t *testing.T) {
	keyed := &stubProvider{name: "keyed", results: map[string]*Result{
		"Provo, US": {Lat: 1, Lng: 2, Provider: "keyed"},
	}}
	open := &stubProvider{name: "open"}
	chain := NewChain([]Provider{keyed, open}, time.Second, nil, logger.NewTestLogger(t))

	res, err := chain.Resolve(context.Background(), Request{City: "Provo", Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, "keyed", res.Provider)
	assert.Empty(t, open.calls)
}

func TestChain_TimeoutFallsThrough(t *testing.T) {
	slow := &stubProvider{name: "keyed", delay: time.Second}
	open := &stubProvider{name: "open", results: map[string]*Result{
		"Provo, US": {Lat: 1, Lng: 2, Provider: "open"},
	}}
	chain := NewChain([]Provider{slow, open}, 20*time.Millisecond, nil, logger.NewTestLogger(t))

	res, err := chain.Resolve(context.Background(), Request{City: "Provo", Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, "open", res.Provider)
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain([]Provider{
		&stubProvider{name: "keyed", err: ErrMissingAPIKey},
		&stubProvider{name: "open"},
	}, time.Second, nil, logger.NewTestLogger(t))

	_, err := chain.Resolve(context.Background(), Request{City: "Atlantis", Country: "Sea"})
	assert.ErrorIs(t, err, ErrNoResult)
	assert.NotErrorIs(t, err, ErrProviderFailed)

	failing := NewChain([]Provider{
		&stubProvider{name: "open", err: ErrProviderFailed},
	}, time.Second, nil, logger.NewTestLogger(t))
	_, err = failing.Resolve(context.Background(), Request{City: "Atlantis", Country: "Sea"})
	assert.ErrorIs(t, err, ErrNoResult)
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestChain_InvalidRequestAndCancel(t *testing.T) {
	chain := NewChain([]Provider{&stubProvider{name: "open"}}, time.Second, nil, logger.NewTestLogger(t))

	_, err := chain.Resolve(context.Background(), Request{City: "Provo"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = chain.Resolve(ctx, Request{City: "Provo", Country: "US"})
	assert.ErrorIs(t, err, context.Canceled)
}

type countingResolver struct {
	calls atomic.Int32
	res   *Result
	err   error
}

func (c *countingResolver) Resolve(context.Context, Request) (*Result, error) {
	c.calls.Add(1)
	return c.res, c.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCachedResolver(t *testing.T) {
	mr, rdb := newRedis(t)
	inner := &countingResolver{res: &Result{Lat: 40.23, Lng: -111.65, DisplayName: "Provo", Provider: "open"}}
	cached := NewCachedResolver(inner, rdb, 30*24*time.Hour, 24*time.Hour, logger.NewTestLogger(t))
	req := Request{City: "Provo", State: "UT", Country: "US"}

	for i := 0; i < 3; i++ {
		res, err := cached.Resolve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Provo", res.DisplayName)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.True(t, mr.Exists(CacheKey(req)))
	assert.Equal(t, 30*24*time.Hour, mr.TTL(CacheKey(req)))

	// Case and spacing differences share an entry.
	_, err := cached.Resolve(context.Background(), Request{City: " provo", State: "ut", Country: "us "})
	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedResolver_NegativeAndTransient(t *testing.T) {
	mr, rdb := newRedis(t)

	miss := &countingResolver{err: ErrNoResult}
	cached := NewCachedResolver(miss, rdb, time.Hour, 24*time.Hour, logger.NewTestLogger(t))
	req := Request{City: "Atlantis", Country: "Sea"}

	for i := 0; i < 2; i++ {
		_, err := cached.Resolve(context.Background(), req)
		assert.ErrorIs(t, err, ErrNoResult)
	}
	assert.Equal(t, int32(1), miss.calls.Load())
	assert.Equal(t, 24*time.Hour, mr.TTL(CacheKey(req)))

	flaky := &countingResolver{err: errors.Join(ErrNoResult, ErrTimeout)}
	cached = NewCachedResolver(flaky, rdb, time.Hour, 24*time.Hour, logger.NewTestLogger(t))
	other := Request{City: "Provo", Country: "US"}
	for i := 0; i < 2; i++ {
		_, err := cached.Resolve(context.Background(), other)
		assert.ErrorIs(t, err, ErrTimeout)
	}
	assert.Equal(t, int32(2), flaky.calls.Load())
	assert.False(t, mr.Exists(CacheKey(other)))
}
