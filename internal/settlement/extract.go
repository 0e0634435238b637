package settlement

import (
	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"

	"github.com/danielhargrove/shopflow-backend/internal/checkout"
	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

// source yields a candidate value for a field, reporting whether the payload
// actually carried it. Sources are tried in priority order; the first present
// value wins.
type source[T any] func() (T, bool)

func firstPresent[T any](sources ...source[T]) (T, bool) {
	for _, s := range sources {
		if v, ok := s(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// extractEmail resolves the buyer email: customer details, then metadata,
// then the session-level field.
func extractEmail(session *stripelib.CheckoutSession) (string, bool) {
	return firstPresent(
		func() (string, bool) {
			if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
				return session.CustomerDetails.Email, true
			}
			return "", false
		},
		func() (string, bool) {
			if v := session.Metadata[checkout.MetaKeyEmail]; v != "" {
				return v, true
			}
			return "", false
		},
		func() (string, bool) {
			if session.CustomerEmail != "" {
				return session.CustomerEmail, true
			}
			return "", false
		},
	)
}

// extractAddress resolves the shipping destination: collected shipping
// details, then the customer's billing address, then the metadata copy
// written at checkout.
func extractAddress(session *stripelib.CheckoutSession) (*types.Address, bool) {
	return firstPresent(
		func() (*types.Address, bool) {
			if session.CollectedInformation != nil && session.CollectedInformation.ShippingDetails != nil {
				details := session.CollectedInformation.ShippingDetails
				if addr := fromStripeAddress(details.Address, details.Name); addr != nil {
					return addr, true
				}
			}
			return nil, false
		},
		func() (*types.Address, bool) {
			if session.CustomerDetails != nil {
				name := session.CustomerDetails.Name
				if addr := fromStripeAddress(session.CustomerDetails.Address, name); addr != nil {
					return addr, true
				}
			}
			return nil, false
		},
		func() (*types.Address, bool) {
			blob := session.Metadata[checkout.MetaKeyShippingAddress]
			if blob == "" {
				return nil, false
			}
			addr, err := types.ParseCompactAddress(blob)
			if err != nil || !addr.Complete() {
				return nil, false
			}
			return addr, true
		},
	)
}

func fromStripeAddress(addr *stripelib.Address, name string) *types.Address {
	if addr == nil || addr.Line1 == "" {
		return nil
	}
	return &types.Address{
		Name:       name,
		Street1:    addr.Line1,
		Street2:    addr.Line2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
}

// settledItem is one order line resolved during settlement.
type settledItem struct {
	ProductID  uuid.UUID
	Qty        int
	PriceCents int64
}

// itemsFromMetadata parses the compact cart blob. Lines with unparseable
// product ids are skipped rather than failing the whole list.
func itemsFromMetadata(session *stripelib.CheckoutSession) ([]settledItem, bool) {
	blob := session.Metadata[checkout.MetaKeyCart]
	if blob == "" {
		return nil, false
	}
	parsed, err := checkout.DecodeCartMetadata(blob)
	if err != nil || len(parsed) == 0 {
		return nil, false
	}
	out := make([]settledItem, 0, len(parsed))
	for _, item := range parsed {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			continue
		}
		var price int64
		if item.PriceCents != nil {
			price = *item.PriceCents
		}
		out = append(out, settledItem{ProductID: id, Qty: item.Qty, PriceCents: price})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
