package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
)

// Repository exposes catalog reads plus the inventory decrement applied at
// settlement time.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindByStripeProductID(ctx context.Context, stripeProductID string) (*models.Product, error)
	DecrementQuantity(ctx context.Context, id uuid.UUID, qty int) error
}
