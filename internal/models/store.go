package models

type StoreType string

const (
	StoreTypeDistributor StoreType = "distributor"
	StoreTypeRep         StoreType = "rep"
	StoreTypeRetailer    StoreType = "retailer"
)

func (t StoreType) Valid() bool {
	switch t {
	case StoreTypeDistributor, StoreTypeRep, StoreTypeRetailer:
		return true
	}
	return false
}

type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat" bson:"lat"`
	Lng float64 `json:"lng" yaml:"lng" bson:"lng"`
}

// Valid reports whether c is a usable latitude/longitude pair.
func (c *Coordinates) Valid() bool {
	return c != nil && c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// StoreRecord is a dealer location as published by the CMS. It is read-only
// apart from the coordinates attached by geocoding.
type StoreRecord struct {
	ID        string       `json:"id" yaml:"id" bson:"_id"`
	Name      string       `json:"name" yaml:"name" bson:"name"`
	StoreType StoreType    `json:"storeType" yaml:"storeType" bson:"storeType"`
	Address   string       `json:"address" yaml:"address" bson:"address"`
	City      string       `json:"city" yaml:"city" bson:"city"`
	State     string       `json:"state,omitempty" yaml:"state" bson:"state,omitempty"`
	ZipCode   string       `json:"zipCode,omitempty" yaml:"zipCode" bson:"zipCode,omitempty"`
	Country   string       `json:"country" yaml:"country" bson:"country"`
	Phone     string       `json:"phone,omitempty" yaml:"phone" bson:"phone,omitempty"`
	Email     string       `json:"email,omitempty" yaml:"email" bson:"email,omitempty"`
	Website   string       `json:"website,omitempty" yaml:"website" bson:"website,omitempty"`
	Location  *Coordinates `json:"location,omitempty" yaml:"location" bson:"location,omitempty"`
}
