package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"

	"github.com/danielhargrove/shopflow-backend/internal/promo"
	"github.com/danielhargrove/shopflow-backend/internal/shipping"
	"github.com/danielhargrove/shopflow-backend/pkg/config"
	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
	"github.com/danielhargrove/shopflow-backend/pkg/shippo"
	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

type gatewaySessions interface {
	CreateCheckoutSession(ctx context.Context, params *stripelib.CheckoutSessionCreateParams) (*stripelib.CheckoutSession, error)
}

type catalogReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// SessionInput is a checkout request. Destination and shipment reference are
// mutually exclusive ways to price shipping: a reference reuses an earlier
// quote, a destination triggers a fresh one.
type SessionInput struct {
	Items        []types.CartItem
	ShippingInfo *types.Address
	ShipmentRef  string
	RateRef      string
	Metadata     map[string]string
	UserID       uuid.UUID
	Email        string
}

// SessionResult is the gateway-hosted payment URL plus the shipping rate the
// session was priced with.
type SessionResult struct {
	URL         string        `json:"url"`
	Shipping    shippo.Rate   `json:"shipping"`
	ShipmentRef string        `json:"shipment_ref"`
	Discount    *promo.Grant  `json:"discount,omitempty"`
	Rates       []shippo.Rate `json:"rates,omitempty"`
}

// Service builds priced, taxed, discounted gateway checkout sessions.
type Service interface {
	CreateSession(ctx context.Context, input SessionInput) (*SessionResult, error)
}

type service struct {
	gateway     gatewaySessions
	quotes      shipping.Service
	promos      promo.Service
	catalog     catalogReader
	stripeCfg   config.StripeConfig
	shippingCfg config.ShippingConfig
	logg        *logger.Logger
}

// NewService builds the checkout session service.
func NewService(
	gateway gatewaySessions,
	quotes shipping.Service,
	promos promo.Service,
	catalog catalogReader,
	stripeCfg config.StripeConfig,
	shippingCfg config.ShippingConfig,
	logg *logger.Logger,
) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway sessions required")
	}
	if quotes == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promo service required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{
		gateway:     gateway,
		quotes:      quotes,
		promos:      promos,
		catalog:     catalog,
		stripeCfg:   stripeCfg,
		shippingCfg: shippingCfg,
		logg:        logg,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input SessionInput) (*SessionResult, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	// Promo failures never block checkout.
	grant, err := s.promos.Resolve(ctx, input.UserID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("promo resolution failed, continuing without discount: %v", err))
		}
		grant = nil
	}

	rate, shipmentRef, rates, err := s.resolveShipping(ctx, input)
	if err != nil {
		return nil, err
	}

	lineItems, err := s.buildLineItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	metadata, err := s.buildMetadata(input, grant, rate, shipmentRef)
	if err != nil {
		return nil, err
	}

	params := &stripelib.CheckoutSessionCreateParams{
		Mode:       stripelib.String(string(stripelib.CheckoutSessionModePayment)),
		SuccessURL: stripelib.String(s.stripeCfg.SuccessURL),
		CancelURL:  stripelib.String(s.stripeCfg.CancelURL),
		LineItems:  lineItems,
		Metadata:   metadata,
		AutomaticTax: &stripelib.CheckoutSessionCreateAutomaticTaxParams{
			Enabled: stripelib.Bool(true),
		},
		// Shipping is a shipping option, not a line item, so percent-off
		// discounts never apply to it.
		ShippingOptions: []*stripelib.CheckoutSessionCreateShippingOptionParams{
			shippingOption(rate),
		},
	}
	if input.Email != "" {
		params.CustomerEmail = stripelib.String(input.Email)
	}
	if grant != nil {
		params.Discounts = []*stripelib.CheckoutSessionCreateDiscountParams{
			{PromotionCode: stripelib.String(grant.PromotionCodeID)},
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil && grant != nil && isCouponError(err) {
		// A dead promotion code costs the user their discount, not their
		// order. Retry once at full price.
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("discount rejected by gateway, retrying without it: %v", err))
		}
		grant = nil
		params.Discounts = nil
		delete(params.Metadata, MetaKeyPointsUsed)
		session, err = s.gateway.CreateCheckoutSession(ctx, params)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "creating checkout session")
	}

	return &SessionResult{
		URL:         session.URL,
		Shipping:    *rate,
		ShipmentRef: shipmentRef,
		Discount:    grant,
		Rates:       rates,
	}, nil
}

// resolveShipping prices shipping either from a previously quoted
// shipment+rate reference or from a fresh quote against the destination.
func (s *service) resolveShipping(ctx context.Context, input SessionInput) (*shippo.Rate, string, []shippo.Rate, error) {
	if input.ShipmentRef != "" && input.RateRef != "" {
		rate, err := s.quotes.ResolveReference(ctx, input.ShipmentRef, input.RateRef)
		if err != nil {
			return nil, "", nil, err
		}
		return rate, input.ShipmentRef, nil, nil
	}

	if input.ShippingInfo == nil {
		return nil, "", nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping destination or shipment reference required")
	}
	quote, err := s.quotes.Quote(ctx, input.Items, *input.ShippingInfo)
	if err != nil {
		return nil, "", nil, err
	}
	return &quote.Cheapest, quote.ShipmentID, quote.Rates, nil
}

func (s *service) buildLineItems(ctx context.Context, items []types.CartItem) ([]*stripelib.CheckoutSessionCreateLineItemParams, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading catalog products")
	}
	titles := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		titles[p.ID] = p.Title
	}

	out := make([]*stripelib.CheckoutSessionCreateLineItemParams, 0, len(items))
	for _, item := range items {
		if item.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %s has non-positive quantity", item.ProductID))
		}
		name := titles[item.ProductID]
		if name == "" {
			name = "Item " + item.ProductID.String()
		}
		out = append(out, &stripelib.CheckoutSessionCreateLineItemParams{
			Quantity: stripelib.Int64(int64(item.Qty)),
			PriceData: &stripelib.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripelib.String(string(stripelib.CurrencyUSD)),
				UnitAmount: stripelib.Int64(item.UnitPriceCents),
				ProductData: &stripelib.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripelib.String(name),
					Metadata: map[string]string{
						"product_id": item.ProductID.String(),
					},
				},
			},
		})
	}
	return out, nil
}

// buildMetadata writes the settlement-facing metadata. Amounts go in as
// integer cents so the reader never has to guess units.
func (s *service) buildMetadata(input SessionInput, grant *promo.Grant, rate *shippo.Rate, shipmentRef string) (map[string]string, error) {
	metadata := make(map[string]string, len(input.Metadata)+10)
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	cart, err := EncodeCartMetadata(input.Items, MetadataCartLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart metadata")
	}
	metadata[MetaKeyCart] = cart

	var subtotal int64
	for _, item := range input.Items {
		subtotal += item.UnitPriceCents * int64(item.Qty)
	}
	metadata[MetaKeySubtotalCents] = strconv.FormatInt(subtotal, 10)
	metadata[MetaKeyShippingGross] = strconv.FormatInt(rate.AmountCents, 10)
	metadata[MetaKeyShippingNet] = strconv.FormatInt(rate.AmountCents-s.shippingCfg.HandlingFeeCents, 10)
	metadata[MetaKeyShipmentRef] = shipmentRef
	metadata[MetaKeyRateRef] = rate.ID
	if input.Email != "" {
		metadata[MetaKeyEmail] = input.Email
	}
	if input.UserID != uuid.Nil {
		metadata[MetaKeyUserID] = input.UserID.String()
	}
	if grant != nil {
		metadata[MetaKeyPointsUsed] = strconv.Itoa(grant.PointsUsed)
	}
	if input.ShippingInfo != nil {
		addr, err := input.ShippingInfo.MarshalCompact()
		if err == nil && len(addr) <= MetadataCartLimit {
			metadata[MetaKeyShippingAddress] = addr
		}
	}
	return metadata, nil
}

func shippingOption(rate *shippo.Rate) *stripelib.CheckoutSessionCreateShippingOptionParams {
	display := strings.TrimSpace(rate.Provider + " " + rate.Service)
	if display == "" {
		display = "Shipping"
	}
	return &stripelib.CheckoutSessionCreateShippingOptionParams{
		ShippingRateData: &stripelib.CheckoutSessionCreateShippingOptionShippingRateDataParams{
			DisplayName: stripelib.String(display),
			Type:        stripelib.String("fixed_amount"),
			FixedAmount: &stripelib.CheckoutSessionCreateShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripelib.Int64(rate.AmountCents),
				Currency: stripelib.String(string(stripelib.CurrencyUSD)),
			},
		},
	}
}

// isCouponError reports whether a session-creation failure is specific to the
// attached discount rather than the session itself.
func isCouponError(err error) bool {
	var stripeErr *stripelib.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	code := string(stripeErr.Code)
	if strings.Contains(code, "coupon") || strings.Contains(code, "promotion") {
		return true
	}
	if code == "resource_missing" && strings.Contains(stripeErr.Param, "promotion_code") {
		return true
	}
	msg := strings.ToLower(stripeErr.Msg)
	return strings.Contains(msg, "coupon") || strings.Contains(msg, "promotion code")
}
