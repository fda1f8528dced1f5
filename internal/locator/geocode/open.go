package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	httpclient "storefront-services/internal/common/http"
)

// OpenProvider calls a Nominatim-style service. It needs no key but the
// service requires an identifying User-Agent, which the client carries.
type OpenProvider struct {
	baseURL string
	client  *httpclient.Client
}

func NewOpenProvider(baseURL string, client *httpclient.Client) *OpenProvider {
	return &OpenProvider{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *OpenProvider) Name() string { return "open" }

type openPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (p *OpenProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	endpoint := p.baseURL + "/search?" + url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	var places []openPlace
	if err := p.fetch(ctx, endpoint, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrNoResult
	}
	return p.toResult(places[0])
}

// Reverse returns a display name for a coordinate pair.
func (p *OpenProvider) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	endpoint := p.baseURL + "/reverse?" + url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lng, 'f', -1, 64)},
		"format": {"json"},
		"zoom":   {"10"},
	}.Encode()

	var place openPlace
	if err := p.fetch(ctx, endpoint, &place); err != nil {
		return "", err
	}
	if place.Error != "" || place.DisplayName == "" {
		return "", ErrNoResult
	}
	return place.DisplayName, nil
}

func (p *OpenProvider) fetch(ctx context.Context, endpoint string, into interface{}) error {
	resp, err := p.client.Get(ctx, endpoint)
	if err != nil {
		return transportError(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrProviderFailed, p.Name(), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrProviderFailed, p.Name(), err)
	}
	return nil
}

func (p *OpenProvider) toResult(place openPlace) (*Result, error) {
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s latitude %q", ErrProviderFailed, p.Name(), place.Lat)
	}
	lng, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s longitude %q", ErrProviderFailed, p.Name(), place.Lon)
	}
	return &Result{Lat: lat, Lng: lng, DisplayName: place.DisplayName, Provider: p.Name()}, nil
}
