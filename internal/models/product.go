package models

// Product is a catalog entry as returned by either catalog backend.
type Product struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	SKU        string   `json:"sku"`
	Categories []string `json:"categories"` // category slugs
	Voltage    string   `json:"voltage,omitempty"`
	Frequency  string   `json:"frequency,omitempty"`
	Protocols  []string `json:"protocols,omitempty"`
	Selected   bool     `json:"selected"` // top-selling flag
	ImageURL   string   `json:"imageUrl,omitempty"`
}
