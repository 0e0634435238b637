package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetPoints(ctx context.Context, userID uuid.UUID) (int, error) {
	var points int
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("points").
		Where("id = ?", userID).
		Scan(&points).Error
	if err != nil {
		return 0, err
	}
	return points, nil
}

func (r *repository) DebitPoints(ctx context.Context, userID uuid.UUID, points int) (bool, error) {
	// Guarded decrement: concurrent debits cannot drive the balance negative.
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND points >= ?", userID, points).
		UpdateColumn("points", gorm.Expr("points - ?", points))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
