package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is the seller listing read by the cart core. Catalog writes happen
// in the seller-facing workflows; this side only reads.
type Product struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID            uuid.UUID       `gorm:"column:shop_id;type:uuid;not null"`
	Name              string          `gorm:"column:name;not null"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock             int             `gorm:"column:stock;not null;default:0"`
	OnShelf           bool            `gorm:"column:on_shelf;not null;default:false"`
	IsApproved        bool            `gorm:"column:is_approved;not null;default:false"`
	ShippingProfileID *uuid.UUID      `gorm:"column:shipping_profile_id;type:uuid"`
	Weight            decimal.Decimal `gorm:"column:weight;type:numeric(12,3);not null;default:0"`
	Categories        pq.StringArray  `gorm:"column:categories;type:text[]"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
