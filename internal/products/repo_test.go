package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danielhargrove/shopflow-backend/pkg/db/models"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  sku TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 0,
  weight_oz REAL,
  weight REAL,
  weight_unit TEXT,
  length_in REAL,
  width_in REAL,
  height_in REAL,
  stripe_product_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, qty int, stripeID string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:         uuid.New(),
		Title:      "Widget",
		SKU:        uuid.NewString(),
		PriceCents: 1999,
		Quantity:   qty,
	}
	if stripeID != "" {
		product.StripeProductID = &stripeID
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestDecrementQuantity(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	product := seedProduct(t, db, 10, "")

	require.NoError(t, repo.DecrementQuantity(context.Background(), product.ID, 3))

	found, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, found.Quantity)
}

func TestDecrementQuantityFloorsAtZero(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	product := seedProduct(t, db, 2, "")

	require.NoError(t, repo.DecrementQuantity(context.Background(), product.ID, 5))

	found, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.Quantity)
}

func TestFindByStripeProductID(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	product := seedProduct(t, db, 1, "prod_abc123")

	found, err := repo.FindByStripeProductID(context.Background(), "prod_abc123")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, product.ID, found.ID)

	missing, err := repo.FindByStripeProductID(context.Background(), "prod_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindByIDs(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	a := seedProduct(t, db, 1, "")
	b := seedProduct(t, db, 1, "")

	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	none, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}
