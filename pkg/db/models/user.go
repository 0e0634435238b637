package models

import (
	"time"

	"github.com/google/uuid"
)

// User exposes the identity and loyalty surface the fulfillment core touches.
// Account management itself lives in the identity service.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	Points    int       `gorm:"column:points;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
