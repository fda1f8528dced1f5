package params

type Sort string

const (
	SortNameAsc    Sort = "name-asc"
	SortNameDesc   Sort = "name-desc"
	SortSKUAsc     Sort = "sku-asc"
	SortSKUDesc    Sort = "sku-desc"
	SortTopSelling Sort = "top-selling-asc"
)

const DefaultPageSize = 12

// AllSorts is the allow-list offered on the catalog root.
var AllSorts = []Sort{SortNameAsc, SortNameDesc, SortSKUAsc, SortSKUDesc, SortTopSelling}

// ListingSorts excludes top-selling, which only the catalog root offers.
var ListingSorts = []Sort{SortNameAsc, SortNameDesc, SortSKUAsc, SortSKUDesc}

// Options describes the listing being normalized.
type Options struct {
	PageSize    int
	DefaultSort Sort
	Allowed     []Sort
	// Category pins the listing to one category, as on a category page.
	// The category query parameter is ignored when it is set.
	Category string
}

// CatalogRoot returns the options for the top-level product listing.
func CatalogRoot(pageSize int) Options {
	return Options{PageSize: pageSize, DefaultSort: SortTopSelling, Allowed: AllSorts}
}

// CategoryListing returns the options for a single category page.
func CategoryListing(category string, pageSize int) Options {
	return Options{PageSize: pageSize, DefaultSort: SortNameAsc, Allowed: ListingSorts, Category: Clean(category)}
}

func (o Options) normalized() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if len(o.Allowed) == 0 {
		o.Allowed = AllSorts
	}
	if !o.allows(o.DefaultSort) {
		o.DefaultSort = o.Allowed[0]
	}
	return o
}

func (o Options) allows(s Sort) bool {
	for _, a := range o.Allowed {
		if a == s {
			return true
		}
	}
	return false
}

// ParseSort returns raw when it is in allowed, otherwise fallback.
func ParseSort(raw string, allowed []Sort, fallback Sort) Sort {
	s := Sort(Clean(raw))
	for _, a := range allowed {
		if a == s {
			return s
		}
	}
	return fallback
}
