package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-cart/pkg/enums"
)

// ShopShippingPolicy holds a shop's optional free-shipping threshold.
// The threshold is compared against the shop's shipping-fee subtotal, not the
// merchandise subtotal; see internal/shipping.
type ShopShippingPolicy struct {
	ShopID                uuid.UUID        `gorm:"column:shop_id;type:uuid;primaryKey"`
	FreeShippingThreshold *decimal.Decimal `gorm:"column:free_shipping_threshold;type:numeric(12,2)"`
	Currency              enums.Currency   `gorm:"column:currency;not null;default:'USD'"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
