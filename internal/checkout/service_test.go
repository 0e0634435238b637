package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripelib "github.com/stripe/stripe-go/v84"

	"github.com/danielhargrove/shopflow-backend/internal/promo"
	"github.com/danielhargrove/shopflow-backend/pkg/config"
	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
	"github.com/danielhargrove/shopflow-backend/pkg/shippo"
	"github.com/danielhargrove/shopflow-backend/pkg/types"

	shippingsvc "github.com/danielhargrove/shopflow-backend/internal/shipping"
)

type fakeGateway struct {
	sessions   []*stripelib.CheckoutSession
	errs       []error
	calls      int
	lastParams *stripelib.CheckoutSessionCreateParams
	allParams  []*stripelib.CheckoutSessionCreateParams
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, params *stripelib.CheckoutSessionCreateParams) (*stripelib.CheckoutSession, error) {
	i := f.calls
	f.calls++
	f.lastParams = params
	f.allParams = append(f.allParams, params)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.sessions) {
		return f.sessions[i], nil
	}
	return &stripelib.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/pay/cs_test"}, nil
}

type fakeQuotes struct {
	quote      *shippingsvc.QuoteResult
	quoteErr   error
	resolved   *shippo.Rate
	resolveErr error
}

func (f *fakeQuotes) Quote(_ context.Context, _ []types.CartItem, _ types.Address) (*shippingsvc.QuoteResult, error) {
	return f.quote, f.quoteErr
}

func (f *fakeQuotes) ResolveReference(_ context.Context, _, _ string) (*shippo.Rate, error) {
	return f.resolved, f.resolveErr
}

type fakePromos struct {
	grant *promo.Grant
	err   error
}

func (f *fakePromos) Resolve(_ context.Context, _ uuid.UUID) (*promo.Grant, error) {
	return f.grant, f.err
}

type fakeCatalog struct {
	products []models.Product
}

func (f *fakeCatalog) FindByIDs(_ context.Context, _ []uuid.UUID) ([]models.Product, error) {
	return f.products, nil
}

func testStripeCfg() config.StripeConfig {
	return config.StripeConfig{
		SuccessURL: "https://shop.example.com/success",
		CancelURL:  "https://shop.example.com/cancel",
	}
}

func testShippingCfg() config.ShippingConfig {
	return config.ShippingConfig{HandlingFeeCents: 200}
}

func cheapRate() *shippingsvc.QuoteResult {
	return &shippingsvc.QuoteResult{
		ShipmentID: "ship_1",
		Cheapest:   shippo.Rate{ID: "rate_1", Provider: "USPS", Service: "Priority Mail", AmountCents: 1199},
		Rates:      []shippo.Rate{{ID: "rate_1", Provider: "USPS", Service: "Priority Mail", AmountCents: 1199}},
	}
}

func cart() []types.CartItem {
	return []types.CartItem{{ProductID: uuid.New(), Qty: 2, UnitPriceCents: 2499}}
}

func destAddr() *types.Address {
	return &types.Address{Street1: "1 Main St", City: "Tulsa", State: "OK", PostalCode: "74104"}
}

func newTestService(t *testing.T, gateway *fakeGateway, quotes *fakeQuotes, promos *fakePromos) Service {
	t.Helper()
	svc, err := NewService(gateway, quotes, promos, &fakeCatalog{}, testStripeCfg(), testShippingCfg(), nil)
	require.NoError(t, err)
	return svc
}

func TestCreateSessionHappyPath(t *testing.T) {
	gateway := &fakeGateway{}
	svc := newTestService(t, gateway, &fakeQuotes{quote: cheapRate()}, &fakePromos{})

	result, err := svc.CreateSession(context.Background(), SessionInput{
		Items:        cart(),
		ShippingInfo: destAddr(),
		Email:        "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test", result.URL)
	assert.Equal(t, "rate_1", result.Shipping.ID)
	assert.Equal(t, "ship_1", result.ShipmentRef)

	params := gateway.lastParams
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, int64(2499), *params.LineItems[0].PriceData.UnitAmount)
	require.Len(t, params.ShippingOptions, 1)
	assert.Equal(t, int64(1199), *params.ShippingOptions[0].ShippingRateData.FixedAmount.Amount)
	assert.Empty(t, params.Discounts)

	assert.Equal(t, "4998", params.Metadata[MetaKeySubtotalCents])
	assert.Equal(t, "1199", params.Metadata[MetaKeyShippingGross])
	assert.Equal(t, "999", params.Metadata[MetaKeyShippingNet])
	assert.Equal(t, "buyer@example.com", params.Metadata[MetaKeyEmail])
	assert.NotEmpty(t, params.Metadata[MetaKeyCart])
}

func TestCreateSessionAppliesDiscount(t *testing.T) {
	gateway := &fakeGateway{}
	promos := &fakePromos{grant: &promo.Grant{PromotionCodeID: "promo_1", Code: "LOYAL-A1B2C3", PointsUsed: 100}}
	svc := newTestService(t, gateway, &fakeQuotes{quote: cheapRate()}, promos)

	result, err := svc.CreateSession(context.Background(), SessionInput{
		Items:        cart(),
		ShippingInfo: destAddr(),
		UserID:       uuid.New(),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Discount)

	params := gateway.lastParams
	require.Len(t, params.Discounts, 1)
	assert.Equal(t, "promo_1", *params.Discounts[0].PromotionCode)
	assert.Equal(t, "100", params.Metadata[MetaKeyPointsUsed])
}

func TestCreateSessionPromoFailureIsNonFatal(t *testing.T) {
	gateway := &fakeGateway{}
	svc := newTestService(t, gateway, &fakeQuotes{quote: cheapRate()}, &fakePromos{err: errors.New("stripe down")})

	result, err := svc.CreateSession(context.Background(), SessionInput{Items: cart(), ShippingInfo: destAddr()})
	require.NoError(t, err)
	assert.Nil(t, result.Discount)
	assert.Empty(t, gateway.lastParams.Discounts)
}

func TestCreateSessionRetriesOnceWithoutDeadCoupon(t *testing.T) {
	couponErr := &stripelib.Error{Code: "coupon_expired", Msg: "This coupon has expired."}
	gateway := &fakeGateway{errs: []error{couponErr}}
	promos := &fakePromos{grant: &promo.Grant{PromotionCodeID: "promo_dead", PointsUsed: 100}}
	svc := newTestService(t, gateway, &fakeQuotes{quote: cheapRate()}, promos)

	result, err := svc.CreateSession(context.Background(), SessionInput{Items: cart(), ShippingInfo: destAddr(), UserID: uuid.New()})
	require.NoError(t, err)
	assert.Nil(t, result.Discount)
	assert.Equal(t, 2, gateway.calls)

	retry := gateway.allParams[1]
	assert.Empty(t, retry.Discounts)
	assert.NotContains(t, retry.Metadata, MetaKeyPointsUsed)
}

func TestCreateSessionNonCouponGatewayErrorIsFatal(t *testing.T) {
	gateway := &fakeGateway{errs: []error{&stripelib.Error{Code: "rate_limit", Msg: "Too many requests"}}}
	promos := &fakePromos{grant: &promo.Grant{PromotionCodeID: "promo_1", PointsUsed: 100}}
	svc := newTestService(t, gateway, &fakeQuotes{quote: cheapRate()}, promos)

	_, err := svc.CreateSession(context.Background(), SessionInput{Items: cart(), ShippingInfo: destAddr(), UserID: uuid.New()})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePaymentGateway, typed.Code())
	assert.Equal(t, 1, gateway.calls)
}

func TestCreateSessionUsesShipmentReference(t *testing.T) {
	gateway := &fakeGateway{}
	quotes := &fakeQuotes{resolved: &shippo.Rate{ID: "rate_9", AmountCents: 899}}
	svc := newTestService(t, gateway, quotes, &fakePromos{})

	result, err := svc.CreateSession(context.Background(), SessionInput{
		Items:       cart(),
		ShipmentRef: "ship_9",
		RateRef:     "rate_9",
	})
	require.NoError(t, err)
	assert.Equal(t, "rate_9", result.Shipping.ID)
	assert.Equal(t, "ship_9", result.ShipmentRef)
}

func TestCreateSessionStaleReferenceFails(t *testing.T) {
	quotes := &fakeQuotes{resolveErr: pkgerrors.New(pkgerrors.CodeInvalidShippingRef, "rate not found on shipment")}
	svc := newTestService(t, &fakeGateway{}, quotes, &fakePromos{})

	_, err := svc.CreateSession(context.Background(), SessionInput{Items: cart(), ShipmentRef: "ship_9", RateRef: "rate_gone"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidShippingRef, typed.Code())
}

func TestCreateSessionEmptyCartRejected(t *testing.T) {
	svc := newTestService(t, &fakeGateway{}, &fakeQuotes{quote: cheapRate()}, &fakePromos{})

	_, err := svc.CreateSession(context.Background(), SessionInput{ShippingInfo: destAddr()})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateSessionRequiresDestinationOrReference(t *testing.T) {
	svc := newTestService(t, &fakeGateway{}, &fakeQuotes{}, &fakePromos{})

	_, err := svc.CreateSession(context.Background(), SessionInput{Items: cart()})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
