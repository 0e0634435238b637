package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/danielhargrove/shopflow-backend/pkg/config"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Env)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:           api,
		environment:   env,
		signingSecret: strings.TrimSpace(cfg.WebhookSecret),
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret. Empty means signature
// verification cannot run; callers decide whether that is acceptable.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreateCheckoutSession creates a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return c.api.V1CheckoutSessions.Create(ctx, params)
}

// GetCheckoutSession retrieves a checkout session by ID.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return c.api.V1CheckoutSessions.Retrieve(ctx, id, &stripe.CheckoutSessionRetrieveParams{})
}

// ListSessionLineItems returns all line items recorded on a checkout session,
// with the backing product expanded so callers can read its metadata.
func (c *Client) ListSessionLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	params.AddExpand("data.price.product")

	var items []*stripe.LineItem
	var iterErr error
	c.api.V1CheckoutSessions.ListLineItems(ctx, params)(func(item *stripe.LineItem, err error) bool {
		if err != nil {
			iterErr = err
			return false
		}
		items = append(items, item)
		return true
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return items, nil
}

// FindActivePromotionCode returns the active promotion code matching code, or
// nil when none exists.
func (c *Client) FindActivePromotionCode(ctx context.Context, code string) (*stripe.PromotionCode, error) {
	params := &stripe.PromotionCodeListParams{
		Code:   stripe.String(code),
		Active: stripe.Bool(true),
	}
	var (
		found   *stripe.PromotionCode
		iterErr error
	)
	c.api.V1PromotionCodes.List(ctx, params)(func(promo *stripe.PromotionCode, err error) bool {
		if err != nil {
			iterErr = err
			return false
		}
		found = promo
		return false
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return found, nil
}

// CreatePromotionCode creates a single-redemption percent-off promotion code
// tied to the given user. A fresh one-shot coupon backs each code.
func (c *Client) CreatePromotionCode(ctx context.Context, code string, percentOff int64, userID string) (*stripe.PromotionCode, error) {
	coupon, err := c.api.V1Coupons.Create(ctx, &stripe.CouponCreateParams{
		PercentOff: stripe.Float64(float64(percentOff)),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
		Name:       stripe.String(fmt.Sprintf("Loyalty %d%% off", percentOff)),
	})
	if err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	promo, err := c.api.V1PromotionCodes.Create(ctx, &stripe.PromotionCodeCreateParams{
		Promotion: &stripe.PromotionCodeCreatePromotionParams{
			Type:   stripe.String("coupon"),
			Coupon: stripe.String(coupon.ID),
		},
		Code:           stripe.String(code),
		MaxRedemptions: stripe.Int64(1),
		Metadata:       map[string]string{"user_id": userID},
	})
	if err != nil {
		return nil, fmt.Errorf("create promotion code: %w", err)
	}
	return promo, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
