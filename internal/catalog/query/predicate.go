// Package query runs catalog pages against Postgres or Elasticsearch.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"storefront-services/internal/catalog/params"
	"storefront-services/internal/models"
)

// Predicate is the conjunction of optional facet clauses shared by the rows
// and count queries. An empty field does not constrain the result.
type Predicate struct {
	Wildcard    string   `json:"wildcard,omitempty"`
	Category    string   `json:"category,omitempty"`
	Voltages    []string `json:"voltages,omitempty"`
	Frequencies []string `json:"frequencies,omitempty"`
	Protocols   []string `json:"protocols,omitempty"`
}

func PredicateFor(spec params.QuerySpec) Predicate {
	return Predicate{
		Wildcard:    spec.SearchWildcard,
		Category:    spec.Category,
		Voltages:    spec.Voltages,
		Frequencies: spec.Frequencies,
		Protocols:   spec.Protocols,
	}
}

func (p Predicate) Empty() bool {
	return p.Wildcard == "" && p.Category == "" &&
		len(p.Voltages) == 0 && len(p.Frequencies) == 0 && len(p.Protocols) == 0
}

// Key identifies the predicate in page cache keys.
func (p Predicate) Key() string {
	data, _ := json.Marshal(p)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// Window is the half-open row range [Offset, Offset+Limit).
type Window struct {
	Offset int
	Limit  int
}

func WindowFor(spec params.QuerySpec) Window {
	return Window{Offset: spec.Offset, Limit: spec.End - spec.Offset}
}

// Backend executes the two catalog queries for one page.
type Backend interface {
	Name() string
	Rows(ctx context.Context, p Predicate, sort params.Sort, w Window) ([]models.Product, error)
	Count(ctx context.Context, p Predicate) (int, error)
}
