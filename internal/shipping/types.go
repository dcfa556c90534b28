package shipping

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
)

// ProfileProvider batch-loads shipping profiles by id.
type ProfileProvider interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ShippingProfile, error)
}

// PolicyProvider batch-loads shop shipping policies by shop id.
type PolicyProvider interface {
	FindByShopIDs(ctx context.Context, shopIDs []uuid.UUID) (map[uuid.UUID]models.ShopShippingPolicy, error)
}

// ProductShippingLine is one cart line's contribution to its shop's fee.
type ProductShippingLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
}

// ShopShippingFee is the per-shop bucket of the quote.
type ShopShippingFee struct {
	ShopID             uuid.UUID             `json:"shop_id"`
	Products           []ProductShippingLine `json:"products"`
	TotalShippingFee   decimal.Decimal       `json:"total_shipping_fee"`
	FreeShippingAmount *decimal.Decimal      `json:"free_shipping_amount,omitempty"`
}

// QuoteResult is the cart-level shipping breakdown consumed by checkout.
type QuoteResult struct {
	CartTotalShippingFee decimal.Decimal                `json:"cart_total_shipping_fee"`
	ShopShippingFees     map[uuid.UUID]*ShopShippingFee `json:"shop_shipping_fees"`
}
