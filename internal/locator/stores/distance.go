package stores

import (
	"math"
	"sort"
	"strings"

	"storefront-services/internal/models"
)

const EarthRadiusMiles = 3959.0

// Distance is the haversine great-circle distance in miles.
func Distance(a, b models.Coordinates) float64 {
	return DistanceWithRadius(a, b, EarthRadiusMiles)
}

func DistanceWithRadius(a, b models.Coordinates, radius float64) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return radius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

type Criteria struct {
	Type models.StoreType
	Text string
}

// Filter keeps stores of the requested type whose name, city, state, ZIP
// or country contain the text, ignoring case. Empty criteria keep
// everything.
func Filter(list []StoreWithCoords, c Criteria) []StoreWithCoords {
	text := strings.ToLower(strings.TrimSpace(c.Text))
	out := make([]StoreWithCoords, 0, len(list))
	for _, s := range list {
		if c.Type != "" && s.StoreType != c.Type {
			continue
		}
		if text != "" && !matchesText(s.StoreRecord, text) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matchesText(r models.StoreRecord, text string) bool {
	for _, field := range []string{r.Name, r.City, r.State, r.ZipCode, r.Country} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

type Ranked struct {
	StoreWithCoords
	DistanceMiles *float64 `json:"distanceMiles"`
}

type Ranker struct {
	Radius float64
}

// Rank orders stores by distance from user, nearest first. Stores without
// coordinates follow in their input order. A nil user keeps input order.
func (r Ranker) Rank(list []StoreWithCoords, user *models.Coordinates) []Ranked {
	radius := r.Radius
	if radius <= 0 {
		radius = EarthRadiusMiles
	}

	resolved := make([]Ranked, 0, len(list))
	var unresolved []Ranked
	for _, s := range list {
		if user == nil || s.Coords == nil {
			unresolved = append(unresolved, Ranked{StoreWithCoords: s})
			continue
		}
		d := DistanceWithRadius(*user, *s.Coords, radius)
		resolved = append(resolved, Ranked{StoreWithCoords: s, DistanceMiles: &d})
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return *resolved[i].DistanceMiles < *resolved[j].DistanceMiles
	})
	return append(resolved, unresolved...)
}

func Rank(list []StoreWithCoords, user *models.Coordinates) []Ranked {
	return Ranker{Radius: EarthRadiusMiles}.Rank(list, user)
}
