package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-cart/pkg/enums"
)

// ShippingProfile is a named fee policy attached to products.
// A fee type of "free" always yields a zero fee regardless of FeeAmount.
type ShippingProfile struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID    uuid.UUID             `gorm:"column:shop_id;type:uuid;not null"`
	Name      string                `gorm:"column:name;not null"`
	FeeType   enums.ShippingFeeType `gorm:"column:fee_type;type:shipping_fee_type;not null"`
	FeeAmount decimal.Decimal       `gorm:"column:fee_amount;type:numeric(12,2);not null;default:0"`
	Currency  enums.Currency        `gorm:"column:currency;not null;default:'USD'"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
