// Package geocode resolves store and visitor addresses to coordinates
// through an ordered list of providers.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest = errors.New("GEOCODE_INVALID_REQUEST")
	ErrNoResult       = errors.New("GEOCODE_NO_RESULT")
	ErrTimeout        = errors.New("GEOCODE_TIMEOUT")
	ErrProviderFailed = errors.New("GEOCODE_PROVIDER_FAILED")
	ErrMissingAPIKey  = errors.New("GEOCODE_MISSING_API_KEY")
)

type Request struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country"`
}

func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(r.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidRequest, strings.Join(missing, " and "))
	}
	return nil
}

type Result struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"displayName"`
	Provider    string  `json:"provider,omitempty"`
}

// Provider resolves one free-form address string.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Resolver resolves a structured request, trying fallbacks as needed.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Result, error)
}

// Variants returns the address strings to try for req, most specific
// first: the full address, the address without the ZIP code, then city,
// state and country only. Blank parts are skipped and repeated strings
// are dropped.
func Variants(req Request) []string {
	candidates := []string{
		join(req.Address, req.City, req.State, req.ZipCode, req.Country),
		join(req.Address, req.City, req.State, req.Country),
		join(req.City, req.State, req.Country),
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
