package shipping

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/danielhargrove/shopflow-backend/pkg/config"
	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
	"github.com/danielhargrove/shopflow-backend/pkg/shippo"
	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

type catalogReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type rateProvider interface {
	CreateShipment(ctx context.Context, from, to shippo.Address, parcel shippo.Parcel) (*shippo.Shipment, error)
	GetShipment(ctx context.Context, shipmentID string) (*shippo.Shipment, error)
}

// QuoteResult is a sorted rate list plus the shipment reference needed for a
// later label purchase.
type QuoteResult struct {
	ShipmentID string        `json:"shipment_ref"`
	Cheapest   shippo.Rate   `json:"cheapest"`
	Rates      []shippo.Rate `json:"rates"`
}

// Service computes shipping quotes for carts.
type Service interface {
	Quote(ctx context.Context, items []types.CartItem, dest types.Address) (*QuoteResult, error)
	ResolveReference(ctx context.Context, shipmentID, rateID string) (*shippo.Rate, error)
}

type service struct {
	catalog  catalogReader
	provider rateProvider
	cfg      config.ShippingConfig
	logg     *logger.Logger
}

// NewService builds the shipping quote service.
func NewService(catalog catalogReader, provider rateProvider, cfg config.ShippingConfig, logg *logger.Logger) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if provider == nil {
		return nil, fmt.Errorf("rate provider required")
	}
	return &service{catalog: catalog, provider: provider, cfg: cfg, logg: logg}, nil
}

func (s *service) Quote(ctx context.Context, items []types.CartItem, dest types.Address) (*QuoteResult, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if !dest.Complete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination address incomplete")
	}

	hydrated := s.hydrate(ctx, items)

	parcel := BuildParcel(hydrated, ParcelOptions{
		PackagingTareOz:     s.cfg.PackagingTareOz,
		MinBillableOz:       s.cfg.MinBillableOz,
		DefaultItemWeightOz: s.cfg.DefaultItemWeightOz,
	})

	weight := parcel.BillableWeightOz
	if floor := s.cfg.ServiceFloorOz; floor > 0 && weight < floor {
		weight = floor
	}

	shipment, err := s.provider.CreateShipment(ctx, s.fromAddress(), shippo.Address{
		Name:    dest.Name,
		Street1: dest.Street1,
		Street2: dest.Street2,
		City:    dest.City,
		State:   NormalizeRegion(dest.State),
		Zip:     dest.PostalCode,
		Country: defaultCountry(dest.Country),
		Phone:   dest.Phone,
	}, shippo.Parcel{
		LengthIn: parcel.LengthIn,
		WidthIn:  parcel.WidthIn,
		HeightIn: parcel.HeightIn,
		WeightOz: weight,
	})
	if err != nil {
		return nil, err
	}

	rates := append([]shippo.Rate{}, shipment.Rates...)
	// Stable sort: equal amounts keep provider order, so ties resolve to the
	// first-seen candidate.
	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].AmountCents < rates[j].AmountCents
	})

	return &QuoteResult{
		ShipmentID: shipment.ID,
		Cheapest:   rates[0],
		Rates:      rates,
	}, nil
}

// ResolveReference re-fetches a previously quoted shipment and verifies the
// referenced rate still belongs to it.
func (s *service) ResolveReference(ctx context.Context, shipmentID, rateID string) (*shippo.Rate, error) {
	shipment, err := s.provider.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	for i := range shipment.Rates {
		if shipment.Rates[i].ID == rateID {
			return &shipment.Rates[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInvalidShippingRef, "rate not found on shipment").
		WithDetails(map[string]any{"shipment_ref": shipmentID, "rate_ref": rateID})
}

// hydrate fills missing weight/dimension data from the catalog. A failed
// lookup leaves the item as-is; the parcel builder falls back to the
// configured default weight.
func (s *service) hydrate(ctx context.Context, items []types.CartItem) []types.CartItem {
	out := make([]types.CartItem, len(items))
	copy(out, items)

	for i := range out {
		if out[i].WeightOz != nil && out[i].LengthIn != nil && out[i].WidthIn != nil && out[i].HeightIn != nil {
			continue
		}
		product, err := s.catalog.FindByID(ctx, out[i].ProductID)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("catalog lookup failed for %s, using defaults", out[i].ProductID))
			}
			continue
		}
		if out[i].WeightOz == nil {
			if product.WeightOz != nil {
				out[i].WeightOz = product.WeightOz
			} else if out[i].Weight == nil && product.Weight != nil {
				out[i].Weight = product.Weight
				out[i].WeightUnit = product.WeightUnit
			}
		}
		if out[i].LengthIn == nil {
			out[i].LengthIn = product.LengthIn
		}
		if out[i].WidthIn == nil {
			out[i].WidthIn = product.WidthIn
		}
		if out[i].HeightIn == nil {
			out[i].HeightIn = product.HeightIn
		}
	}
	return out
}

func (s *service) fromAddress() shippo.Address {
	return shippo.Address{
		Name:    s.cfg.FromName,
		Street1: s.cfg.FromStreet1,
		City:    s.cfg.FromCity,
		State:   s.cfg.FromState,
		Zip:     s.cfg.FromZip,
		Country: defaultCountry(s.cfg.FromCountry),
		Phone:   s.cfg.FromPhone,
		Email:   s.cfg.FromEmail,
	}
}

func defaultCountry(country string) string {
	if country == "" {
		return "US"
	}
	return country
}
