package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/danielhargrove/shopflow-backend/internal/checkout"
	"github.com/danielhargrove/shopflow-backend/internal/orders"
	"github.com/danielhargrove/shopflow-backend/internal/products"
	"github.com/danielhargrove/shopflow-backend/pkg/config"
	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
	pkgerrors "github.com/danielhargrove/shopflow-backend/pkg/errors"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
	"github.com/danielhargrove/shopflow-backend/pkg/metrics"
	"github.com/danielhargrove/shopflow-backend/pkg/shippo"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gatewayReader interface {
	ListSessionLineItems(ctx context.Context, sessionID string) ([]*stripelib.LineItem, error)
}

type labelProvider interface {
	PurchaseLabel(ctx context.Context, rateID string) (*shippo.Transaction, error)
	GetShipment(ctx context.Context, shipmentID string) (*shippo.Shipment, error)
}

type duplicateGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Service turns completed-checkout webhook events into durable orders.
type Service interface {
	// ProcessEvent settles one webhook delivery. Repeat deliveries of the
	// same event return the already-settled order. Events of other types
	// return (nil, nil).
	ProcessEvent(ctx context.Context, event stripelib.Event) (*models.Order, error)
}

type service struct {
	tx          txRunner
	ordersRepo  orders.Repository
	productRepo products.Repository
	gateway     gatewayReader
	labels      labelProvider
	guard       duplicateGuard
	shippingCfg config.ShippingConfig
	collector   *metrics.SettlementMetrics
	logg        *logger.Logger
}

// NewService builds the settlement processor.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	productRepo products.Repository,
	gateway gatewayReader,
	labels labelProvider,
	guard duplicateGuard,
	shippingCfg config.ShippingConfig,
	collector *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway reader required")
	}
	if labels == nil {
		return nil, fmt.Errorf("label provider required")
	}
	return &service{
		tx:          tx,
		ordersRepo:  ordersRepo,
		productRepo: productRepo,
		gateway:     gateway,
		labels:      labels,
		guard:       guard,
		shippingCfg: shippingCfg,
		collector:   collector,
		logg:        logg,
	}, nil
}

func (s *service) ProcessEvent(ctx context.Context, event stripelib.Event) (*models.Order, error) {
	if event.Type != stripelib.EventTypeCheckoutSessionCompleted {
		return nil, nil
	}

	var session stripelib.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parsing checkout session payload")
	}
	if session.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session payload missing id")
	}

	// Fast-path duplicate filter. Redis being down is not a reason to drop a
	// paid order; the unique constraint below still holds the line.
	if s.guard != nil {
		duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			s.warn(ctx, fmt.Sprintf("idempotency guard unavailable, relying on db constraint: %v", err))
		} else if duplicate {
			s.collector.IncDuplicate(string(event.Type))
			return s.ordersRepo.FindByStripeSessionID(ctx, session.ID)
		}
	}

	start := time.Now()
	order, err := s.settle(ctx, &session)
	if err != nil {
		s.collector.IncFailure(string(event.Type))
		// Clear the mark so the gateway's redelivery gets a real retry.
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
				s.warn(ctx, fmt.Sprintf("releasing idempotency mark: %v", delErr))
			}
		}
		return nil, err
	}
	s.collector.ObserveDuration(string(event.Type), time.Since(start))
	s.collector.IncSettled(string(event.Type))
	return order, nil
}

func (s *service) settle(ctx context.Context, session *stripelib.CheckoutSession) (*models.Order, error) {
	existing, err := s.ordersRepo.FindByStripeSessionID(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up existing order")
	}
	if existing != nil {
		return existing, nil
	}

	email, ok := extractEmail(session)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeMissingEmail, "no buyer email in session, metadata, or customer details")
	}
	address, ok := extractAddress(session)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeMissingShipping, "no shipping address in session, customer details, or metadata")
	}

	items := s.resolveItems(ctx, session)
	amounts := s.resolveAmounts(session)

	order := &models.Order{
		ID:              uuid.New(),
		Email:           email,
		Status:          models.OrderStatusPending,
		ShippingInfo:    address,
		StripeSessionID: session.ID,

		SubtotalCents:         amounts.subtotal,
		TaxCents:              amounts.tax,
		DiscountCents:         amounts.discount,
		ShippingFeeGrossCents: amounts.shippingGross,
		ShippingFeeNetCents:   amounts.shippingNet,
		TotalCents:            amounts.total,
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		order.StripePaymentIntentID = &session.PaymentIntent.ID
	}
	if raw := session.Metadata[checkout.MetaKeyUserID]; raw != "" {
		if userID, err := uuid.Parse(raw); err == nil {
			order.UserID = &userID
		}
	}
	if raw := session.Metadata[checkout.MetaKeyPointsUsed]; raw != "" {
		if points, err := strconv.Atoi(raw); err == nil {
			order.PointsUsed = points
		}
	}
	shipmentRef := session.Metadata[checkout.MetaKeyShipmentRef]
	rateRef := session.Metadata[checkout.MetaKeyRateRef]
	if shipmentRef != "" {
		order.ShippoShipmentID = &shipmentRef
	}
	if rateRef != "" {
		order.ShippoRateID = &rateRef
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			PriceCents: item.PriceCents,
		})
	}

	// Order and items land in one transaction; an item failure rolls the
	// order back with it. A concurrent delivery that wins the insert race
	// surfaces here as a unique violation, which means "already settled".
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.ordersRepo.WithTx(tx).CreateWithItems(ctx, order)
		return err
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return s.ordersRepo.FindByStripeSessionID(ctx, session.ID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting order")
	}

	// Everything past this point is best-effort. The customer has paid and
	// the order is durable; nothing below may undo that.
	s.decrementInventory(ctx, order.ID, items)
	s.purchaseLabel(ctx, order, shipmentRef, rateRef)

	return order, nil
}

type settledAmounts struct {
	subtotal      int64
	tax           int64
	discount      int64
	shippingGross int64
	shippingNet   int64
	total         int64
}

// resolveAmounts prefers the gateway's own totals, which are always minor
// units. Metadata amounts are the fallback and go through the unit heuristic.
func (s *service) resolveAmounts(session *stripelib.CheckoutSession) settledAmounts {
	var out settledAmounts

	if session.AmountTotal > 0 {
		out.subtotal = session.AmountSubtotal
		out.total = session.AmountTotal
		if session.TotalDetails != nil {
			out.tax = session.TotalDetails.AmountTax
			out.discount = session.TotalDetails.AmountDiscount
			out.shippingGross = session.TotalDetails.AmountShipping
		}
		if session.ShippingCost != nil && session.ShippingCost.AmountTotal > 0 {
			out.shippingGross = session.ShippingCost.AmountTotal
		}
	} else {
		if v, ok := parseAmountCents(session.Metadata[checkout.MetaKeySubtotalCents]); ok {
			out.subtotal = v
		}
		if v, ok := parseAmountCents(session.Metadata[checkout.MetaKeyShippingGross]); ok {
			out.shippingGross = v
		}
		out.total = out.subtotal + out.shippingGross
	}

	if v, ok := parseAmountCents(session.Metadata[checkout.MetaKeyShippingNet]); ok {
		out.shippingNet = v
	} else if out.shippingGross > s.shippingCfg.HandlingFeeCents {
		out.shippingNet = out.shippingGross - s.shippingCfg.HandlingFeeCents
	} else {
		out.shippingNet = out.shippingGross
	}
	return out
}

// resolveItems tries the compact metadata cart first, then maps the gateway's
// line items back to catalog ids. An empty result is allowed; the order is
// created without items.
func (s *service) resolveItems(ctx context.Context, session *stripelib.CheckoutSession) []settledItem {
	if items, ok := itemsFromMetadata(session); ok {
		return items
	}

	lines, err := s.gateway.ListSessionLineItems(ctx, session.ID)
	if err != nil {
		s.warn(ctx, fmt.Sprintf("listing session line items: %v", err))
		return nil
	}
	var out []settledItem
	for _, line := range lines {
		if line == nil || line.Price == nil || line.Price.Product == nil {
			continue
		}
		productID, ok := s.mapLineProduct(ctx, line.Price.Product)
		if !ok {
			continue
		}
		item := settledItem{ProductID: productID, Qty: int(line.Quantity)}
		if line.Price.UnitAmount > 0 {
			item.PriceCents = line.Price.UnitAmount
		}
		out = append(out, item)
	}
	return out
}

// mapLineProduct resolves a gateway product to a catalog id, first from the
// product metadata stamped at checkout, then through the catalog's own
// cross-reference column.
func (s *service) mapLineProduct(ctx context.Context, product *stripelib.Product) (uuid.UUID, bool) {
	if raw := product.Metadata["product_id"]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}
	match, err := s.productRepo.FindByStripeProductID(ctx, product.ID)
	if err != nil {
		s.warn(ctx, fmt.Sprintf("catalog xref lookup for %s: %v", product.ID, err))
		return uuid.Nil, false
	}
	if match == nil {
		return uuid.Nil, false
	}
	return match.ID, true
}

// decrementInventory is non-transactional and never fails settlement. A miss
// here means possible oversell, which operations resolves manually.
func (s *service) decrementInventory(ctx context.Context, orderID uuid.UUID, items []settledItem) {
	var errs error
	for _, item := range items {
		if item.Qty < 1 {
			continue
		}
		if err := s.productRepo.DecrementQuantity(ctx, item.ProductID, item.Qty); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("product %s: %w", item.ProductID, err))
		}
	}
	if errs != nil {
		s.warn(ctx, fmt.Sprintf("inventory decrement for order %s: %v", orderID, errs))
	}
}

// purchaseLabel buys the shipping label when the session carried a usable
// shipment and rate reference. Failure leaves the order for manual
// fulfillment.
func (s *service) purchaseLabel(ctx context.Context, order *models.Order, shipmentRef, rateRef string) {
	if shipmentRef == "" || rateRef == "" {
		return
	}

	txn, err := s.labels.PurchaseLabel(ctx, rateRef)
	if err != nil || txn == nil {
		s.warn(ctx, fmt.Sprintf("label purchase for order %s: %v", order.ID, err))
		return
	}

	artifacts := orders.ShippingArtifacts{
		TrackingCode:  txn.TrackingNumber,
		TrackingURL:   txn.TrackingURL,
		LabelURL:      txn.LabelURL,
		TransactionID: txn.ID,
	}
	if shipment, err := s.labels.GetShipment(ctx, shipmentRef); err == nil && shipment != nil {
		for _, rate := range shipment.Rates {
			if rate.ID == rateRef {
				artifacts.Carrier = rate.Provider
				artifacts.Service = rate.Service
				break
			}
		}
	}

	if err := s.ordersRepo.UpdateShippingArtifacts(ctx, order.ID, artifacts); err != nil {
		s.warn(ctx, fmt.Sprintf("saving shipping artifacts for order %s: %v", order.ID, err))
		return
	}
	order.TrackingCode = &artifacts.TrackingCode
	order.TrackingURL = &artifacts.TrackingURL
	order.LabelURL = &artifacts.LabelURL
	order.ShippoTransactionID = &artifacts.TransactionID
}

func (s *service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}
