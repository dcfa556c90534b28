package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a buyer-owned container of line items. A buyer has at most one
// cart with is_checkout = false at any time (enforced by a partial unique
// index on buyer_id).
type Cart struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID    uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null"`
	IsCheckout bool       `gorm:"column:is_checkout;not null;default:false"`
	OrderID    *uuid.UUID `gorm:"column:order_id;type:uuid"`
	Items      []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
