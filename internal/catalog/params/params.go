// Package params turns raw catalog URL query parameters into a canonical
// QuerySpec. Nothing in this package returns an error: malformed input
// degrades to a default.
package params

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Values is the raw query mapping. A key missing from the map is undefined.
type Values map[string][]string

// FromURL converts parsed URL query values.
func FromURL(v url.Values) Values {
	return Values(v)
}

// Encode returns the values as a URL query string with sorted keys.
func (v Values) Encode() string {
	return url.Values(v).Encode()
}

const (
	KeySearch      = "search"
	KeyCategory    = "category"
	KeyVoltages    = "voltages"
	KeyFrequencies = "frequencies"
	KeyProtocols   = "protocols"
	KeySort        = "sort"
	KeyPage        = "page"
)

// Clean strips zero-width and other invisible formatting runes, applies NFC
// composition and trims surrounding whitespace.
func Clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if isInvisible(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(norm.NFC.String(s))
}

func isInvisible(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200F: // zero-width space, joiners, LRM/RLM
		return true
	case r >= 0x202A && r <= 0x202E: // bidi embedding and override
		return true
	case r >= 0x2060 && r <= 0x2064: // word joiner, invisible operators
		return true
	case r == 0xFEFF, r == 0x00AD:
		return true
	}
	return false
}

// GetParam returns the first value for key, or "" when the key is undefined
// or empty.
func GetParam(v Values, key string) string {
	vals, ok := v[key]
	if !ok || len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// GetArrayParam returns every cleaned, non-empty value for key. Duplicates
// are preserved. The result is never nil.
func GetArrayParam(v Values, key string) []string {
	out := []string{}
	for _, raw := range v[key] {
		if cleaned := Clean(raw); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// ParsePage parses a 1-based page number. Anything that is not an integer
// of at least 1 becomes 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(Clean(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Wildcard converts a search string into the "*tok1*tok2*" match pattern.
// A "*" typed inside a token is dropped so only the separators match
// anything. An empty search yields "".
func Wildcard(search string) string {
	var tokens []string
	for _, tok := range strings.Fields(search) {
		if tok = strings.ReplaceAll(tok, "*", ""); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return ""
	}
	return "*" + strings.Join(tokens, "*") + "*"
}

// FromMap converts loosely typed values, such as decoded job variables,
// into Values. Strings and numbers become single values, arrays become
// repeated values, and anything else is dropped.
func FromMap(m map[string]interface{}) Values {
	v := Values{}
	for key, raw := range m {
		switch val := raw.(type) {
		case []interface{}:
			for _, item := range val {
				if s, ok := scalar(item); ok {
					v[key] = append(v[key], s)
				}
			}
		case []string:
			v[key] = append(v[key], val...)
		default:
			if s, ok := scalar(val); ok {
				v[key] = []string{s}
			}
		}
	}
	return v
}

func scalar(raw interface{}) (string, bool) {
	switch val := raw.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}
