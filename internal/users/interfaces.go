package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
)

// Repository provides the loyalty and identity lookups the fulfillment core
// needs. Account lifecycle lives in the identity service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetPoints(ctx context.Context, userID uuid.UUID) (int, error)
	// DebitPoints atomically subtracts points from the user's balance. It
	// returns false when the balance was insufficient at debit time.
	DebitPoints(ctx context.Context, userID uuid.UUID, points int) (bool, error)
}
