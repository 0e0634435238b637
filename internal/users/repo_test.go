package users

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

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  points INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, points int) *models.User {
	t.Helper()

	user := &models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Points: points}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestDebitPointsSufficientBalance(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	user := seedUser(t, db, 150)

	ok, err := repo.DebitPoints(context.Background(), user.ID, 100)
	require.NoError(t, err)
	assert.True(t, ok)

	points, err := repo.GetPoints(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, points)
}

func TestDebitPointsInsufficientBalance(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	user := seedUser(t, db, 99)

	ok, err := repo.DebitPoints(context.Background(), user.ID, 100)
	require.NoError(t, err)
	assert.False(t, ok)

	points, err := repo.GetPoints(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, points)
}

func TestDebitPointsDebitsOnlyOnce(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	user := seedUser(t, db, 100)

	ok, err := repo.DebitPoints(context.Background(), user.ID, 100)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DebitPoints(context.Background(), user.ID, 100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindByEmail(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	user := seedUser(t, db, 10)

	found, err := repo.FindByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
