package parsecatalogfilters

import "storefront-services/internal/catalog/params"

type Input struct {
	RawFilters map[string]interface{} `json:"rawFilters"`
	// Category pins the listing to a category page when set.
	Category string `json:"category,omitempty"`
}

type Output struct {
	QuerySpec params.QuerySpec `json:"querySpec"`
	Query     string           `json:"query"`
}
