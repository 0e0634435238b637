package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielhargrove/shopflow-backend/api/responses"
	"github.com/danielhargrove/shopflow-backend/internal/shipping"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
	"github.com/danielhargrove/shopflow-backend/pkg/shippo"
	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

type quoteRequest struct {
	ShippingInfo types.Address    `json:"shipping_info"`
	Items        []types.CartItem `json:"items"`
}

type quoteResponse struct {
	Cheapest    shippo.Rate   `json:"cheapest"`
	Rates       []shippo.Rate `json:"rates"`
	ShipmentRef string        `json:"shipment_ref"`
	ElapsedMs   int64         `json:"elapsed_ms"`
}

// ShippingQuote prices a cart against the destination address.
func ShippingQuote(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req quoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}

		start := time.Now()
		result, err := svc.Quote(ctx, req.Items, req.ShippingInfo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, quoteResponse{
			Cheapest:    result.Cheapest,
			Rates:       result.Rates,
			ShipmentRef: result.ShipmentID,
			ElapsedMs:   time.Since(start).Milliseconds(),
		})
	}
}
