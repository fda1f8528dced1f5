package params

import (
	"encoding/json"
	"math"
	"strconv"
)

// FilterState holds the facet selections. Empty fields mean no constraint.
// Callers replace it whole.
type FilterState struct {
	Category    string   `json:"category"`
	Voltages    []string `json:"voltages"`
	Frequencies []string `json:"frequencies"`
	Protocols   []string `json:"protocols"`
}

// QuerySpec is the normalized description of one catalog page.
type QuerySpec struct {
	Search         string   `json:"search"`
	SearchWildcard string   `json:"searchWildcard"`
	Category       string   `json:"category"`
	Voltages       []string `json:"voltages"`
	Frequencies    []string `json:"frequencies"`
	Protocols      []string `json:"protocols"`
	Sort           Sort     `json:"sort"`
	Page           int      `json:"page"`
	PageSize       int      `json:"pageSize"`
	Offset         int      `json:"offset"`
	End            int      `json:"end"`

	defaultSort   Sort
	fixedCategory bool
}

// Normalize builds the QuerySpec for v. The same input always yields the
// same output.
func Normalize(v Values, opts Options) QuerySpec {
	opts = opts.normalized()

	search := Clean(GetParam(v, KeySearch))
	category := Clean(GetParam(v, KeyCategory))
	if opts.Category != "" {
		category = opts.Category
	}

	spec := QuerySpec{
		Search:         search,
		SearchWildcard: Wildcard(search),
		Category:       category,
		Voltages:       GetArrayParam(v, KeyVoltages),
		Frequencies:    GetArrayParam(v, KeyFrequencies),
		Protocols:      GetArrayParam(v, KeyProtocols),
		Sort:           ParseSort(GetParam(v, KeySort), opts.Allowed, opts.DefaultSort),
		PageSize:       opts.PageSize,
		defaultSort:    opts.DefaultSort,
		fixedCategory:  opts.Category != "",
	}
	return spec.withPage(ParsePage(GetParam(v, KeyPage)))
}

// withPage sets the page and its row range. Pages whose end row would not
// fit in an int32 offset are treated as invalid.
func (q QuerySpec) withPage(page int) QuerySpec {
	if page < 1 || (q.PageSize > 0 && page > math.MaxInt32/q.PageSize) {
		page = 1
	}
	q.Page = page
	q.Offset = (page - 1) * q.PageSize
	q.End = q.Offset + q.PageSize
	return q
}

// Filter returns the facet part of the query.
func (q QuerySpec) Filter() FilterState {
	return FilterState{
		Category:    q.Category,
		Voltages:    append([]string{}, q.Voltages...),
		Frequencies: append([]string{}, q.Frequencies...),
		Protocols:   append([]string{}, q.Protocols...),
	}
}

// WithFilter replaces the facet selections and returns to the first page.
func (q QuerySpec) WithFilter(f FilterState) QuerySpec {
	if !q.fixedCategory {
		q.Category = Clean(f.Category)
	}
	q.Voltages = cleanAll(f.Voltages)
	q.Frequencies = cleanAll(f.Frequencies)
	q.Protocols = cleanAll(f.Protocols)
	return q.withPage(1)
}

// WithPage moves to page, resetting invalid values to 1.
func (q QuerySpec) WithPage(page int) QuerySpec {
	return q.withPage(page)
}

// WithSearch replaces the search text and returns to the first page.
func (q QuerySpec) WithSearch(search string) QuerySpec {
	q.Search = Clean(search)
	q.SearchWildcard = Wildcard(q.Search)
	return q.withPage(1)
}

func cleanAll(in []string) []string {
	return GetArrayParam(Values{"v": in}, "v")
}

// Values renders the canonical query parameters for q. Defaults are
// omitted, and normalizing the result reproduces the same QuerySpec.
func (q QuerySpec) Values() Values {
	v := Values{}
	if q.Search != "" {
		v[KeySearch] = []string{q.Search}
	}
	if q.Category != "" && !q.fixedCategory {
		v[KeyCategory] = []string{q.Category}
	}
	if len(q.Voltages) > 0 {
		v[KeyVoltages] = append([]string{}, q.Voltages...)
	}
	if len(q.Frequencies) > 0 {
		v[KeyFrequencies] = append([]string{}, q.Frequencies...)
	}
	if len(q.Protocols) > 0 {
		v[KeyProtocols] = append([]string{}, q.Protocols...)
	}
	if q.Sort != "" && q.Sort != q.defaultSort {
		v[KeySort] = []string{string(q.Sort)}
	}
	if q.Page > 1 {
		v[KeyPage] = []string{strconv.Itoa(q.Page)}
	}
	return v
}

// Options returns the listing options q was normalized under, so a
// QuerySpec received from elsewhere can be normalized again.
func (q QuerySpec) Options() Options {
	if q.fixedCategory {
		return CategoryListing(q.Category, q.PageSize)
	}
	return CatalogRoot(q.PageSize)
}

// plainQuerySpec has the fields of QuerySpec without its JSON methods.
type plainQuerySpec QuerySpec

type querySpecJSON struct {
	plainQuerySpec
	DefaultSort   Sort `json:"defaultSort,omitempty"`
	FixedCategory bool `json:"fixedCategory,omitempty"`
}

// MarshalJSON includes the listing defaults so Values and WithFilter behave
// the same after the spec travels through job variables.
func (q QuerySpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(querySpecJSON{
		plainQuerySpec: plainQuerySpec(q),
		DefaultSort:    q.defaultSort,
		FixedCategory:  q.fixedCategory,
	})
}

func (q *QuerySpec) UnmarshalJSON(data []byte) error {
	var aux querySpecJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*q = QuerySpec(aux.plainQuerySpec)
	q.defaultSort = aux.DefaultSort
	q.fixedCategory = aux.FixedCategory
	return nil
}
