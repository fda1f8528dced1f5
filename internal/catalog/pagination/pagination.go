package pagination

import (
	"encoding/json"
	"fmt"
	"sort"
)

const ellipsis = "ellipsis"

// Token is one entry of a pagination window: a page number or a gap marker.
type Token struct {
	Page     int
	Ellipsis bool
}

func PageToken(n int) Token { return Token{Page: n} }

var Gap = Token{Ellipsis: true}

func (t Token) String() string {
	if t.Ellipsis {
		return ellipsis
	}
	return fmt.Sprintf("%d", t.Page)
}

// MarshalJSON encodes a page as a number and a gap as "ellipsis".
func (t Token) MarshalJSON() ([]byte, error) {
	if t.Ellipsis {
		return json.Marshal(ellipsis)
	}
	return json.Marshal(t.Page)
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != ellipsis {
			return fmt.Errorf("invalid pagination token %q", s)
		}
		*t = Gap
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid pagination token %s", data)
	}
	*t = PageToken(n)
	return nil
}

// Window returns the page links to show for current out of total pages:
// the first and last pages, the neighbours of current, and one gap marker
// wherever kept pages are not adjacent. current is not clamped.
func Window(current, total int) []Token {
	if total < 1 {
		total = 1
	}

	keep := map[int]struct{}{1: {}, total: {}}
	for p := current - 1; p <= current+1; p++ {
		if p >= 1 && p <= total {
			keep[p] = struct{}{}
		}
	}

	pages := make([]int, 0, len(keep))
	for p := range keep {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	out := make([]Token, 0, len(pages)*2)
	for i, p := range pages {
		if i > 0 && p-pages[i-1] > 1 {
			out = append(out, Gap)
		}
		out = append(out, PageToken(p))
	}
	return out
}

// TotalPages is the number of pages needed for total items, at least 1.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
