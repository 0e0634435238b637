package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/danielhargrove/shopflow-backend/api/middleware"
	"github.com/danielhargrove/shopflow-backend/api/responses"
	"github.com/danielhargrove/shopflow-backend/internal/checkout"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
	"github.com/danielhargrove/shopflow-backend/pkg/types"
)

type checkoutRequest struct {
	Items        []types.CartItem  `json:"items"`
	ShippingInfo *types.Address    `json:"shipping_info,omitempty"`
	ShipmentRef  string            `json:"shipment_ref,omitempty"`
	RateRef      string            `json:"rate_ref,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Email        string            `json:"email,omitempty"`
}

// CreateCheckoutSession builds a gateway payment session for the cart. Guests
// are allowed; an authenticated identity unlocks the loyalty discount.
func CreateCheckoutSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}

		email := req.Email
		if email == "" {
			email = middleware.EmailFromContext(ctx)
		}

		result, err := svc.CreateSession(ctx, checkout.SessionInput{
			Items:        req.Items,
			ShippingInfo: req.ShippingInfo,
			ShipmentRef:  req.ShipmentRef,
			RateRef:      req.RateRef,
			Metadata:     req.Metadata,
			UserID:       middleware.UserIDFromContext(ctx),
			Email:        email,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
