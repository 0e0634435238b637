package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
)

// ShippingArtifacts carries the label-purchase output written back onto a
// settled order.
type ShippingArtifacts struct {
	TrackingCode  string
	TrackingURL   string
	LabelURL      string
	Carrier       string
	Service       string
	TransactionID string
}

// Repository persists the order aggregate produced by settlement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindByStripeSessionID returns nil without error when no order exists
	// for the session. Settlement uses this as its idempotent lookup.
	FindByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CreateWithItems(ctx context.Context, order *models.Order) (*models.Order, error)
	UpdateShippingArtifacts(ctx context.Context, id uuid.UUID, artifacts ShippingArtifacts) error
}
