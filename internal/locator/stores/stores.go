// Package stores attaches coordinates to dealer locations and ranks them
// by distance from a visitor.
package stores

import (
	"storefront-services/internal/models"
)

// Status tracks a store through geocoding. Source, Resolved and Unresolved
// are terminal.
type Status string

const (
	StatusSource     Status = "source"
	StatusPending    Status = "pending"
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
)

func (s Status) Terminal() bool {
	return s != StatusPending
}

type StoreWithCoords struct {
	models.StoreRecord
	Coords *models.Coordinates `json:"coords"`
	Status Status              `json:"status"`
}

// Seed wraps records, taking coordinates from the record location when it
// is valid.
func Seed(records []models.StoreRecord) []StoreWithCoords {
	out := make([]StoreWithCoords, len(records))
	for i, r := range records {
		out[i] = StoreWithCoords{StoreRecord: r, Status: StatusPending}
		if r.Location.Valid() {
			c := *r.Location
			out[i].Coords = &c
			out[i].Status = StatusSource
		}
	}
	return out
}

// clone copies the list so a published snapshot never shares backing
// storage with the next one.
func clone(list []StoreWithCoords) []StoreWithCoords {
	out := make([]StoreWithCoords, len(list))
	copy(out, list)
	return out
}
