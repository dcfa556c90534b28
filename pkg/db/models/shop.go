package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is the selling tenant. Onboarding and CRUD live elsewhere; the cart
// core only needs the identity for shipping-fee grouping.
type Shop struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	SellerID  uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
