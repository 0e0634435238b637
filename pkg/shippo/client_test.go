package shippo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhargrove/shopflow-backend/pkg/config"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler, handlingFeeCents int64) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.ShippoConfig{
		APIToken: "shippo_test_token",
		BaseURL:  server.URL,
		Timeout:  2 * time.Second,
	}, handlingFeeCents, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestCreateShipmentAddsHandlingFee(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "ShippoToken shippo_test_token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		writeJSON(t, w, map[string]any{
			"object_id": "ship_1",
			"status":    "SUCCESS",
			"rates": []map[string]any{
				{
					"object_id":      "rate_a",
					"provider":       "USPS",
					"servicelevel":   map[string]string{"name": "Priority Mail", "token": "usps_priority"},
					"amount":         "9.99",
					"currency":       "USD",
					"estimated_days": 2,
				},
			},
		})
	})
	client, _ := newTestClient(t, handler, 200)

	shipment, err := client.CreateShipment(context.Background(), Address{}, Address{}, Parcel{LengthIn: 10, WidthIn: 6, HeightIn: 4, WeightOz: 32})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if shipment.ID != "ship_1" {
		t.Fatalf("unexpected shipment id %q", shipment.ID)
	}
	if len(shipment.Rates) != 1 {
		t.Fatalf("expected 1 rate, got %d", len(shipment.Rates))
	}
	if got := shipment.Rates[0].AmountCents; got != 1199 {
		t.Fatalf("expected 999+200 cents, got %d", got)
	}
	if shipment.Rates[0].Service != "Priority Mail" {
		t.Fatalf("unexpected service %q", shipment.Rates[0].Service)
	}
}

func TestCreateShipmentNoRatesIsShippingUnavailable(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"object_id": "ship_2", "status": "ERROR", "rates": []any{}})
	})
	client, _ := newTestClient(t, handler, 0)

	_, err := client.CreateShipment(context.Background(), Address{}, Address{}, Parcel{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeShippingUnavailable {
		t.Fatalf("expected SHIPPING_UNAVAILABLE, got %v", err)
	}
}

func TestGetShipmentNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client, _ := newTestClient(t, handler, 0)

	_, err := client.GetShipment(context.Background(), "ship_missing")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidShippingRef {
		t.Fatalf("expected INVALID_SHIPPING_REFERENCE, got %v", err)
	}
}

func TestPurchaseLabelSuccess(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"object_id":             "txn_1",
			"status":                "SUCCESS",
			"tracking_number":       "9400100000000000000000",
			"tracking_url_provider": "https://tools.usps.com/track?n=9400100000000000000000",
			"label_url":             "https://deliver.goshippo.com/label.pdf",
			"rate":                  "rate_a",
		})
	})
	client, _ := newTestClient(t, handler, 0)

	txn, err := client.PurchaseLabel(context.Background(), "rate_a")
	if err != nil {
		t.Fatalf("purchase label: %v", err)
	}
	if txn.TrackingNumber == "" || txn.LabelURL == "" {
		t.Fatalf("expected tracking and label url, got %+v", txn)
	}
}

func TestPurchaseLabelFailureSurfacesMessages(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"object_id": "txn_2",
			"status":    "ERROR",
			"messages":  []map[string]string{{"text": "rate expired"}},
		})
	})
	client, _ := newTestClient(t, handler, 0)

	if _, err := client.PurchaseLabel(context.Background(), "rate_stale"); err == nil {
		t.Fatalf("expected error on failed transaction")
	}
}
