package querycatalog

import (
	"storefront-services/internal/catalog/params"
	"storefront-services/internal/catalog/query"
)

type Input struct {
	// QuerySpec is the output of parse-catalog-filters. It is normalized
	// again before use.
	QuerySpec *params.QuerySpec `json:"querySpec,omitempty"`

	// RawFilters and Category are read only when QuerySpec is absent.
	RawFilters map[string]interface{} `json:"rawFilters,omitempty"`
	Category   string                 `json:"category,omitempty"`
}

type Output struct {
	Catalog *query.Result `json:"catalog"`
	Query   string        `json:"query"`
}
