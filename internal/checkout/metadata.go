package checkout

import (
	"encoding/json"

	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

// Metadata keys written onto the checkout session. Settlement reads these
// back when the gateway payload itself is missing a field.
const (
	MetaKeyCart            = "cart"
	MetaKeyEmail           = "email"
	MetaKeyUserID          = "user_id"
	MetaKeyPointsUsed      = "points_used"
	MetaKeyShipmentRef     = "shipment_ref"
	MetaKeyRateRef         = "rate_ref"
	MetaKeySubtotalCents   = "subtotal_cents"
	MetaKeyShippingGross   = "shipping_fee_gross_cents"
	MetaKeyShippingNet     = "shipping_fee_net_cents"
	MetaKeyShippingAddress = "shipping_address"
)

// MetadataCartLimit is the ceiling for the serialized cart blob. Stripe caps
// metadata values at 500 characters, so the blob must fit or be degraded.
const MetadataCartLimit = 500

// MetaItem is one cart line in the compact metadata form.
type MetaItem struct {
	ID  string `json:"i"`
	Qty int    `json:"q"`
	// PriceCents is dropped first when the blob exceeds the size ceiling.
	PriceCents *int64 `json:"p,omitempty"`
}

// EncodeCartMetadata serializes the cart into a compact JSON array bounded by
// limit bytes. Degradation order: drop per-item prices, then truncate trailing
// items. The output is always valid JSON; settlement tolerates missing prices
// and missing items.
func EncodeCartMetadata(items []types.CartItem, limit int) (string, error) {
	if limit <= 0 {
		limit = MetadataCartLimit
	}

	withPrices := make([]MetaItem, len(items))
	for i, item := range items {
		price := item.UnitPriceCents
		withPrices[i] = MetaItem{ID: item.ProductID.String(), Qty: item.Qty, PriceCents: &price}
	}

	blob, err := json.Marshal(withPrices)
	if err != nil {
		return "", err
	}
	if len(blob) <= limit {
		return string(blob), nil
	}

	bare := make([]MetaItem, len(items))
	for i, item := range items {
		bare[i] = MetaItem{ID: item.ProductID.String(), Qty: item.Qty}
	}
	blob, err = json.Marshal(bare)
	if err != nil {
		return "", err
	}
	for len(blob) > limit && len(bare) > 0 {
		bare = bare[:len(bare)-1]
		blob, err = json.Marshal(bare)
		if err != nil {
			return "", err
		}
	}
	return string(blob), nil
}

// DecodeCartMetadata parses a cart blob written by EncodeCartMetadata (or a
// foreign equivalent). Items with no price parse with price 0.
func DecodeCartMetadata(blob string) ([]MetaItem, error) {
	if blob == "" {
		return nil, nil
	}
	var items []MetaItem
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, err
	}
	return items, nil
}
