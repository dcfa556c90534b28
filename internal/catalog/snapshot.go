package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the live product view the cart core validates against.
// Cart items carry their own stored snapshot of Price and Name; this type is
// the fresh read used to check and refresh them.
type ProductSnapshot struct {
	ID                uuid.UUID
	ShopID            uuid.UUID
	Name              string
	Price             decimal.Decimal
	Stock             int
	OnShelf           bool
	IsApproved        bool
	ShippingProfileID *uuid.UUID
	Weight            decimal.Decimal
}

// Purchasable reports whether the product can still be bought at all.
// Quantity-level stock checks are the caller's concern.
func (p ProductSnapshot) Purchasable() bool {
	return p.OnShelf && p.IsApproved && p.Stock > 0
}

// SnapshotProvider batch-loads current product state. Implementations must
// resolve all ids in a single round trip; missing ids are simply absent from
// the result map.
type SnapshotProvider interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductSnapshot, error)
}
