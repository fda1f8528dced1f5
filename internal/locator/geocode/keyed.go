package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	httpclient "storefront-services/internal/common/http"
)

// KeyedProvider calls a Google-style geocoding API that requires an API
// key. Without a key every call fails with ErrMissingAPIKey so the chain
// moves straight on.
type KeyedProvider struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
}

func NewKeyedProvider(baseURL, apiKey string, client *httpclient.Client) *KeyedProvider {
	return &KeyedProvider{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (p *KeyedProvider) Name() string { return "keyed" }

type keyedResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (p *KeyedProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := p.baseURL + "?" + url.Values{"address": {query}, "key": {p.apiKey}}.Encode()
	resp, err := p.client.Get(ctx, endpoint)
	if err != nil {
		return nil, transportError(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrProviderFailed, p.Name(), resp.StatusCode)
	}

	var body keyedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrProviderFailed, p.Name(), err)
	}

	switch body.Status {
	case "OK":
		if len(body.Results) == 0 {
			return nil, ErrNoResult
		}
		first := body.Results[0]
		return &Result{
			Lat:         first.Geometry.Location.Lat,
			Lng:         first.Geometry.Location.Lng,
			DisplayName: first.FormattedAddress,
			Provider:    p.Name(),
		}, nil
	case "ZERO_RESULTS":
		return nil, ErrNoResult
	default:
		return nil, fmt.Errorf("%w: %s status %s %s", ErrProviderFailed, p.Name(), body.Status, body.ErrorMessage)
	}
}

func transportError(provider string, err error) error {
	if errors.Is(err, httpclient.ErrTimeout) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, provider, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrProviderFailed, provider, err)
}
