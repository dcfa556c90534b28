package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"   validate:"required,min=1"`
}

type updateItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"   validate:"required,min=1"`
}

type checkoutDoneRequest struct {
	OrderID *uuid.UUID `json:"order_id"`
}

type cartResponse struct {
	ID         uuid.UUID          `json:"id"`
	BuyerID    uuid.UUID          `json:"buyer_id"`
	IsCheckout bool               `json:"is_checkout"`
	OrderID    *uuid.UUID         `json:"order_id,omitempty"`
	Items      []cartItemResponse `json:"items"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type cartItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ShopID      uuid.UUID       `json:"shop_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	resp := cartResponse{
		ID:         cart.ID,
		BuyerID:    cart.BuyerID,
		IsCheckout: cart.IsCheckout,
		OrderID:    cart.OrderID,
		Items:      make([]cartItemResponse, 0, len(cart.Items)),
		UpdatedAt:  cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		resp.Items = append(resp.Items, cartItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ShopID:      item.ShopID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
		})
	}
	return resp
}
