package domain

import "strings"

// Reserved wizard step names. They are synthesized from Product fields,
// never read from feed attributes.
const (
	AttrBrand        = "brand"
	AttrAvailability = "availability"
)

const (
	AvailabilityInStock   = "in stock"
	AvailabilityBackOrder = "back-order"
)

// Product is a normalized catalog entry. Optional numeric fields are nil when
// the feed did not carry a usable value.
type Product struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Brand       string            `json:"brand"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Amp         *int              `json:"amp,omitempty"`
	Sqmm        *float64          `json:"sqmm,omitempty"`
	Price       *float64          `json:"price,omitempty"`
	Stock       *float64          `json:"stock,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Description string            `json:"description,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

// Availability classifies the stock field. Products without a stock value
// belong to neither state.
func (p *Product) Availability() string {
	if p.Stock == nil {
		return ""
	}
	if *p.Stock > 0 {
		return AvailabilityInStock
	}
	return AvailabilityBackOrder
}

func (p *Product) InStock() bool {
	return p.Stock != nil && *p.Stock > 0
}

// SearchText is the lower-cased haystack used by plain substring search.
func (p *Product) SearchText() string {
	return strings.ToLower(p.Name + " " + p.SKU + " " + p.Brand)
}
