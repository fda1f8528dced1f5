// Package api exposes the catalog, store locator, geocoding and inquiry
// endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront-services/internal/catalog/params"
	"storefront-services/internal/catalog/query"
	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/logger"
	"storefront-services/internal/inquiry"
	"storefront-services/internal/locator/geocode"
	"storefront-services/internal/locator/stores"
	"storefront-services/internal/models"
)

const maxBodyBytes = 64 << 10

type CatalogPager interface {
	Page(ctx context.Context, spec params.QuerySpec) (*query.Result, error)
}

type StoreSearcher interface {
	Search(c stores.Criteria, user *models.Coordinates) []stores.Ranked
}

type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

type InquirySubmitter interface {
	Submit(ctx context.Context, kind models.InquiryKind, fields map[string]interface{}) (*inquiry.Receipt, error)
}

// BodyValidator checks a decoded JSON body against a named form schema.
type BodyValidator interface {
	Validate(form string, body map[string]interface{}) error
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Catalog   CatalogPager
	PageSize  int
	Stores    StoreSearcher
	Geocoder  geocode.Resolver
	Reverse   ReverseGeocoder
	Forms     BodyValidator
	Inquiries InquirySubmitter
	Checks    map[string]ReadinessCheck
}

type Handler struct {
	deps   Dependencies
	logger logger.Logger
}

func NewHandler(deps Dependencies, log logger.Logger) *Handler {
	if deps.PageSize <= 0 {
		deps.PageSize = params.DefaultPageSize
	}
	return &Handler{
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

type catalogResponse struct {
	*query.Result
	Sort  params.Sort `json:"sort"`
	Query string      `json:"query"`
}

// HandleCatalog serves the top-level product listing. Malformed parameters
// fall back to defaults. A failed backend query still answers 200 with an
// empty page flagged as failed.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.serveCatalog(w, r, params.CatalogRoot(h.deps.PageSize))
}

func (h *Handler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	h.serveCatalog(w, r, params.CategoryListing(chi.URLParam(r, "slug"), h.deps.PageSize))
}

func (h *Handler) serveCatalog(w http.ResponseWriter, r *http.Request, opts params.Options) {
	spec := params.Normalize(params.FromURL(r.URL.Query()), opts)

	result, err := h.deps.Catalog.Page(r.Context(), spec)
	if err != nil && result == nil {
		se := errors.AsStandardError(err)
		writeError(w, errors.HTTPStatus(se.Code), se.Message)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Result: result,
		Sort:   spec.Sort,
		Query:  spec.Values().Encode(),
	})
}

type storesResponse struct {
	Stores  []stores.Ranked     `json:"stores"`
	Count   int                 `json:"count"`
	Located int                 `json:"located"`
	Origin  *models.Coordinates `json:"origin,omitempty"`
}

// HandleStores filters the current store snapshot by type and text and
// ranks it from lat/lng when both are valid.
func (h *Handler) HandleStores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := stores.Criteria{
		Type: models.StoreType(strings.TrimSpace(q.Get("type"))),
		Text: q.Get("q"),
	}
	if criteria.Type != "" && !criteria.Type.Valid() {
		criteria.Type = ""
	}
	user := parseCoordinates(q.Get("lat"), q.Get("lng"))

	ranked := h.deps.Stores.Search(criteria, user)
	located := 0
	for _, s := range ranked {
		if s.Coords != nil {
			located++
		}
	}
	writeJSON(w, http.StatusOK, storesResponse{
		Stores:  ranked,
		Count:   len(ranked),
		Located: located,
		Origin:  user,
	})
}

func parseCoordinates(rawLat, rawLng string) *models.Coordinates {
	lat, err := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(rawLng), 64)
	if err != nil {
		return nil
	}
	c := &models.Coordinates{Lat: lat, Lng: lng}
	if !c.Valid() {
		return nil
	}
	return c
}

type geocodeResponse struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"displayName"`
}

func (h *Handler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	if h.deps.Forms != nil {
		if err := h.deps.Forms.Validate("geocode", body); err != nil {
			h.writeStandardError(w, err)
			return
		}
	}

	req := geocode.Request{
		Address: stringField(body, "address"),
		City:    stringField(body, "city"),
		State:   stringField(body, "state"),
		ZipCode: stringField(body, "zipCode"),
		Country: stringField(body, "country"),
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "City and country are required")
		return
	}

	result, err := h.deps.Geocoder.Resolve(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, geocodeResponse{Lat: result.Lat, Lng: result.Lng, DisplayName: result.DisplayName})
	case stderrors.Is(err, geocode.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "City and country are required")
	case stderrors.Is(err, geocode.ErrNoResult):
		writeError(w, http.StatusNotFound, "No location found for the given address")
	default:
		h.logger.Error("geocode failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Geocoding failed")
	}
}

func (h *Handler) HandleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	if h.deps.Reverse == nil {
		writeError(w, http.StatusNotFound, "Reverse geocoding is not enabled")
		return
	}
	c := parseCoordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lng"))
	if c == nil {
		writeError(w, http.StatusBadRequest, "Valid lat and lng are required")
		return
	}

	name, err := h.deps.Reverse.Reverse(r.Context(), c.Lat, c.Lng)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"displayName": name})
	case stderrors.Is(err, geocode.ErrNoResult):
		writeError(w, http.StatusNotFound, "No place found for the given coordinates")
	default:
		h.logger.Error("reverse geocode failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Reverse geocoding failed")
	}
}

func (h *Handler) HandleContact(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, models.InquiryContact)
}

func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, models.InquiryQuote)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind models.InquiryKind) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	receipt, err := h.deps.Inquiries.Submit(r.Context(), kind, body)
	if err != nil {
		h.writeStandardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady runs every readiness check and answers 503 if any fails.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps.Checks))
	for name, check := range h.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]interface{}{"ready": status == http.StatusOK, "checks": checks})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be read")
		return nil, false
	}
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be a JSON object")
		return nil, false
	}
	return body, true
}

func (h *Handler) writeStandardError(w http.ResponseWriter, err error) {
	se := errors.AsStandardError(err)
	status := errors.HTTPStatus(se.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", map[string]interface{}{
			"errorCode": se.Code,
			"details":   se.Details,
		})
		writeError(w, status, se.Message)
		return
	}
	var details []string
	if se.Details != "" {
		details = strings.Split(se.Details, "; ")
	}
	writeError(w, status, se.Message, details...)
}

func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return strings.TrimSpace(s)
}
