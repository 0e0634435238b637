package types

import "github.com/google/uuid"

// CartItem is the client-supplied checkout line. Unit price is asserted by
// the client and is never trusted for settlement; weight and dimensions are
// optional overrides of the catalog attributes.
type CartItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Qty            int       `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`

	WeightOz   *float64 `json:"weight_oz,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
	WeightUnit *string  `json:"weight_unit,omitempty"`
	LengthIn   *float64 `json:"length_in,omitempty"`
	WidthIn    *float64 `json:"width_in,omitempty"`
	HeightIn   *float64 `json:"height_in,omitempty"`
}
