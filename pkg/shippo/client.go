package shippo

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/danielhargrove/shopflow-backend/pkg/config"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
)

// Client talks to the Shippo REST API. All requests run under the configured
// timeout; a timed-out rate fetch surfaces the same way as a hard provider
// failure.
type Client struct {
	http             *resty.Client
	handlingFeeCents int64
	logg             *logger.Logger
}

// Address is the provider-facing address shape.
type Address struct {
	Name    string `json:"name,omitempty"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Parcel describes one billable package. Shippo wants dimensions and weight
// as strings.
type Parcel struct {
	LengthIn float64
	WidthIn  float64
	HeightIn float64
	WeightOz float64
}

// Rate is a single carrier quote with the handling fee already folded in.
type Rate struct {
	ID            string
	Provider      string
	Service       string
	AmountCents   int64
	Currency      string
	EstimatedDays int
}

// Shipment carries the provider shipment reference plus its candidate rates.
type Shipment struct {
	ID    string
	Rates []Rate
}

// Transaction is the result of a label purchase.
type Transaction struct {
	ID             string
	Status         string
	TrackingNumber string
	TrackingURL    string
	LabelURL       string
	RateID         string
}

type wireParcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type wireServiceLevel struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

type wireRate struct {
	ObjectID      string           `json:"object_id"`
	Provider      string           `json:"provider"`
	ServiceLevel  wireServiceLevel `json:"servicelevel"`
	Amount        string           `json:"amount"`
	Currency      string           `json:"currency"`
	EstimatedDays int              `json:"estimated_days"`
}

type wireShipment struct {
	ObjectID string     `json:"object_id"`
	Status   string     `json:"status"`
	Rates    []wireRate `json:"rates"`
}

type wireTransaction struct {
	ObjectID            string `json:"object_id"`
	Status              string `json:"status"`
	TrackingNumber      string `json:"tracking_number"`
	TrackingURLProvider string `json:"tracking_url_provider"`
	LabelURL            string `json:"label_url"`
	Rate                string `json:"rate"`
	Messages            []struct {
		Text string `json:"text"`
	} `json:"messages"`
}

// NewClient builds a Shippo client with auth, base URL, and bounded timeout.
func NewClient(cfg config.ShippoConfig, handlingFeeCents int64, logg *logger.Logger) (*Client, error) {
	token := strings.TrimSpace(cfg.APIToken)
	if token == "" {
		return nil, fmt.Errorf("shippo api token is required")
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "ShippoToken "+token).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:             httpClient,
		handlingFeeCents: handlingFeeCents,
		logg:             logg,
	}, nil
}

// CreateShipment registers a shipment and returns its candidate rates. Zero
// candidates is an error, never a silently substituted default price.
func (c *Client) CreateShipment(ctx context.Context, from, to Address, parcel Parcel) (*Shipment, error) {
	body := map[string]any{
		"address_from": from,
		"address_to":   to,
		"parcels":      []wireParcel{encodeParcel(parcel)},
		"async":        false,
	}

	var out wireShipment
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/shipments")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeShippingUnavailable, err, "create shipment")
	}
	if resp.IsError() {
		return nil, pkgerrors.New(pkgerrors.CodeShippingUnavailable,
			fmt.Sprintf("shippo returned %d creating shipment", resp.StatusCode()))
	}

	shipment, err := c.decodeShipment(&out)
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// GetShipment re-fetches a shipment so callers can verify a previously quoted
// rate still belongs to it.
func (c *Client) GetShipment(ctx context.Context, shipmentID string) (*Shipment, error) {
	if strings.TrimSpace(shipmentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidShippingRef, "shipment id is required")
	}

	var out wireShipment
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/shipments/" + shipmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeShippingUnavailable, err, "fetch shipment")
	}
	if resp.StatusCode() == 404 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidShippingRef, "shipment not found")
	}
	if resp.IsError() {
		return nil, pkgerrors.New(pkgerrors.CodeShippingUnavailable,
			fmt.Sprintf("shippo returned %d fetching shipment", resp.StatusCode()))
	}

	return c.decodeShipment(&out)
}

// PurchaseLabel buys a label against a previously quoted rate.
func (c *Client) PurchaseLabel(ctx context.Context, rateID string) (*Transaction, error) {
	if strings.TrimSpace(rateID) == "" {
		return nil, fmt.Errorf("rate id is required")
	}

	body := map[string]any{
		"rate":            rateID,
		"label_file_type": "PDF",
		"async":           false,
	}

	var out wireTransaction
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/transactions")
	if err != nil {
		return nil, fmt.Errorf("purchase label: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("shippo returned %d purchasing label", resp.StatusCode())
	}
	if !strings.EqualFold(out.Status, "SUCCESS") {
		return nil, fmt.Errorf("label purchase status %s: %s", out.Status, transactionMessages(&out))
	}

	return &Transaction{
		ID:             out.ObjectID,
		Status:         out.Status,
		TrackingNumber: out.TrackingNumber,
		TrackingURL:    out.TrackingURLProvider,
		LabelURL:       out.LabelURL,
		RateID:         out.Rate,
	}, nil
}

func (c *Client) decodeShipment(out *wireShipment) (*Shipment, error) {
	if len(out.Rates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeShippingUnavailable, "provider returned no rates").
			WithDetails(map[string]any{"shipment_id": out.ObjectID, "status": out.Status})
	}

	rates := make([]Rate, 0, len(out.Rates))
	for _, raw := range out.Rates {
		cents, err := amountToCents(raw.Amount)
		if err != nil {
			if c.logg != nil {
				c.logg.Warn(context.Background(), fmt.Sprintf("skipping rate %s with bad amount %q", raw.ObjectID, raw.Amount))
			}
			continue
		}
		rates = append(rates, Rate{
			ID:            raw.ObjectID,
			Provider:      raw.Provider,
			Service:       raw.ServiceLevel.Name,
			AmountCents:   cents + c.handlingFeeCents,
			Currency:      raw.Currency,
			EstimatedDays: raw.EstimatedDays,
		})
	}
	if len(rates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeShippingUnavailable, "provider returned no usable rates")
	}

	return &Shipment{ID: out.ObjectID, Rates: rates}, nil
}

func encodeParcel(p Parcel) wireParcel {
	return wireParcel{
		Length:       formatDim(p.LengthIn),
		Width:        formatDim(p.WidthIn),
		Height:       formatDim(p.HeightIn),
		DistanceUnit: "in",
		Weight:       formatDim(p.WeightOz),
		MassUnit:     "oz",
	}
}

func formatDim(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func amountToCents(amount string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func transactionMessages(out *wireTransaction) string {
	if len(out.Messages) == 0 {
		return "no provider message"
	}
	parts := make([]string, 0, len(out.Messages))
	for _, m := range out.Messages {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}
