package query

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"storefront-services/internal/catalog/params"
	"storefront-services/internal/common/errors"
	"storefront-services/internal/models"
)

type ElasticsearchBackend struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchBackend(client *elasticsearch.Client, index string) *ElasticsearchBackend {
	return &ElasticsearchBackend{client: client, index: index}
}

func (b *ElasticsearchBackend) Name() string { return "elasticsearch" }

// buildQuery renders the predicate as a bool filter. The wildcard clause
// matches title or SKU case-insensitively.
func buildQuery(p Predicate) map[string]interface{} {
	var filters []interface{}

	if p.Wildcard != "" {
		pattern := escapeWildcard(p.Wildcard)
		filters = append(filters, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					wildcardClause("title.keyword", pattern),
					wildcardClause("sku.keyword", pattern),
				},
				"minimum_should_match": 1,
			},
		})
	}
	if p.Category != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"categories": p.Category},
		})
	}
	if len(p.Voltages) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"voltage": p.Voltages},
		})
	}
	if len(p.Frequencies) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"frequency": p.Frequencies},
		})
	}
	if len(p.Protocols) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"protocols": p.Protocols},
		})
	}

	if len(filters) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	return map[string]interface{}{
		"bool": map[string]interface{}{"filter": filters},
	}
}

func wildcardClause(field, pattern string) map[string]interface{} {
	return map[string]interface{}{
		"wildcard": map[string]interface{}{
			field: map[string]interface{}{
				"value":            pattern,
				"case_insensitive": true,
			},
		},
	}
}

// escapeWildcard escapes the single-character wildcard and backslashes so
// only the "*" separators stay special.
func escapeWildcard(pattern string) string {
	return strings.NewReplacer(`\`, `\\`, `?`, `\?`).Replace(pattern)
}

func buildSort(sort params.Sort) []interface{} {
	asc := func(field string) map[string]interface{} {
		return map[string]interface{}{field: map[string]interface{}{"order": "asc"}}
	}
	desc := func(field string) map[string]interface{} {
		return map[string]interface{}{field: map[string]interface{}{"order": "desc"}}
	}

	switch sort {
	case params.SortNameDesc:
		return []interface{}{desc("title.keyword"), asc("sku.keyword")}
	case params.SortSKUAsc:
		return []interface{}{asc("sku.keyword")}
	case params.SortSKUDesc:
		return []interface{}{desc("sku.keyword")}
	case params.SortTopSelling:
		return []interface{}{desc("selected"), asc("title.keyword"), asc("sku.keyword")}
	default:
		return []interface{}{asc("title.keyword"), asc("sku.keyword")}
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source models.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (b *ElasticsearchBackend) Rows(ctx context.Context, p Predicate, sort params.Sort, w Window) ([]models.Product, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query":            buildQuery(p),
		"sort":             buildSort(sort),
		"track_total_hits": false,
	})
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(string(models.QueryTypeCatalogRows), err)
	}

	from, size := w.Offset, w.Limit
	req := esapi.SearchRequest{
		Index: []string{b.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}

	res, err := req.Do(ctx, b.client)
	if err != nil {
		return nil, b.wrap(ctx, models.QueryTypeCatalogRows, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, b.wrap(ctx, models.QueryTypeCatalogRows, fmt.Errorf("search failed: %s", res.String()))
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, b.wrap(ctx, models.QueryTypeCatalogRows, err)
	}

	products := make([]models.Product, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		product := hit.Source
		if product.ID == "" {
			product.ID = hit.ID
		}
		products = append(products, product)
	}
	return products, nil
}

func (b *ElasticsearchBackend) Count(ctx context.Context, p Predicate) (int, error) {
	body, err := json.Marshal(map[string]interface{}{"query": buildQuery(p)})
	if err != nil {
		return 0, errors.NewSearchQueryFailedError(string(models.QueryTypeCatalogCount), err)
	}

	req := esapi.CountRequest{
		Index: []string{b.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return 0, b.wrap(ctx, models.QueryTypeCatalogCount, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, b.wrap(ctx, models.QueryTypeCatalogCount, fmt.Errorf("count failed: %s", res.String()))
	}

	var decoded struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return 0, b.wrap(ctx, models.QueryTypeCatalogCount, err)
	}
	return decoded.Count, nil
}

func (b *ElasticsearchBackend) wrap(ctx context.Context, qt models.QueryType, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return errors.NewSearchTimeoutError(string(qt))
	}
	return errors.NewSearchQueryFailedError(string(qt), err)
}
