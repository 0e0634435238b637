package models

import (
	"time"

	"github.com/google/uuid"
)

// Product carries the catalog attributes the fulfillment core reads: per-unit
// weight/dimensions for parcel building, stock for the settlement decrement,
// and the Stripe product cross-reference used to map gateway line items back
// to catalog rows.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title      string    `gorm:"column:title;not null"`
	SKU        string    `gorm:"column:sku;not null"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	Quantity   int       `gorm:"column:quantity;not null;default:0"`

	WeightOz   *float64 `gorm:"column:weight_oz"`
	Weight     *float64 `gorm:"column:weight"`
	WeightUnit *string  `gorm:"column:weight_unit"`
	LengthIn   *float64 `gorm:"column:length_in"`
	WidthIn    *float64 `gorm:"column:width_in"`
	HeightIn   *float64 `gorm:"column:height_in"`

	StripeProductID *string `gorm:"column:stripe_product_id;index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
