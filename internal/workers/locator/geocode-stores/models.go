package geocodestores

import (
	"storefront-services/internal/locator/stores"
	"storefront-services/internal/models"
)

type Input struct {
	Stores []models.StoreRecord `json:"stores"`
}

type Output struct {
	Stores     []stores.StoreWithCoords `json:"stores"`
	Resolved   int                      `json:"resolved"`
	Unresolved int                      `json:"unresolved"`
}
