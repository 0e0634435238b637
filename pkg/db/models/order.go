package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// Order is the durable aggregate materialized by the settlement processor.
// At most one row exists per Stripe checkout session; the unique index on
// stripe_session_id is what makes duplicate webhook deliveries harmless.
type Order struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"column:email;not null"`
	UserID       *uuid.UUID     `gorm:"column:user_id;type:uuid"`
	Status       OrderStatus    `gorm:"column:status;not null;default:'pending'"`
	ShippingInfo *types.Address `gorm:"column:shipping_info;type:jsonb;serializer:json"`

	SubtotalCents         int64 `gorm:"column:subtotal_cents;not null;default:0"`
	TaxCents              int64 `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents         int64 `gorm:"column:discount_cents;not null;default:0"`
	ShippingFeeGrossCents int64 `gorm:"column:shipping_fee_gross_cents;not null;default:0"`
	ShippingFeeNetCents   int64 `gorm:"column:shipping_fee_net_cents;not null;default:0"`
	TotalCents            int64 `gorm:"column:total_cents;not null;default:0"`
	PointsUsed            int   `gorm:"column:points_used;not null;default:0"`

	TrackingCode *string `gorm:"column:tracking_code"`
	TrackingURL  *string `gorm:"column:tracking_url"`
	LabelURL     *string `gorm:"column:label_url"`
	Carrier      *string `gorm:"column:carrier"`
	Service      *string `gorm:"column:service"`

	ShippoShipmentID    *string `gorm:"column:shippo_shipment_id"`
	ShippoRateID        *string `gorm:"column:shippo_rate_id"`
	ShippoTransactionID *string `gorm:"column:shippo_transaction_id"`

	StripeSessionID       string  `gorm:"column:stripe_session_id;not null;uniqueIndex"`
	StripePaymentIntentID *string `gorm:"column:stripe_payment_intent_id"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
