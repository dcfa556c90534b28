package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-cart/internal/catalog"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
	"github.com/angelmondragon/marketplace-cart/pkg/metrics"
)

// ItemService mutates line items inside a buyer's cart. Every mutation runs
// under the cart's Redis mutex so concurrent stock checks cannot interleave.
type ItemService interface {
	AddItem(ctx context.Context, buyerID, cartID, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItemQty(ctx context.Context, buyerID, cartID, itemID, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveIfOwned(ctx context.Context, buyerID, cartID, itemID uuid.UUID) error
}

type itemService struct {
	repo     CartRepository
	tx       txRunner
	products catalog.SnapshotProvider
	locks    Locker
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
}

// NewItemService builds the item mutation service. Metrics may be nil.
func NewItemService(
	repo CartRepository,
	tx txRunner,
	products catalog.SnapshotProvider,
	locks Locker,
	logg *logger.Logger,
	cartMetrics *metrics.CartMetrics,
) (ItemService, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product snapshot provider required")
	}
	if locks == nil {
		return nil, fmt.Errorf("cart locker required")
	}
	return &itemService{
		repo:     repo,
		tx:       tx,
		products: products,
		locks:    locks,
		logg:     logg,
		metrics:  cartMetrics,
	}, nil
}

// AddItem appends the product to the cart, merging into an existing line for
// the same product. Stock is validated against the merged total before any
// write happens.
func (s *itemService) AddItem(ctx context.Context, buyerID, cartID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	const op = "add_item"
	start := time.Now()
	defer func() { s.metrics.ObserveDuration(op, time.Since(start)) }()

	if quantity < 1 {
		s.metrics.IncFailure(op)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if productID == uuid.Nil {
		s.metrics.IncFailure(op)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	err := s.locks.WithLock(ctx, cartID, func(ctx context.Context) error {
		cart, err := s.mutableCart(ctx, buyerID, cartID)
		if err != nil {
			return err
		}

		snapshot, err := s.snapshot(ctx, productID)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindItemByProduct(ctx, cart.ID, productID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		total := quantity
		if existing != nil {
			total += existing.Quantity
		}
		if total > snapshot.Stock {
			return pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds available stock").
				WithDetails(map[string]any{
					"product_id": productID,
					"requested":  total,
					"stock":      snapshot.Stock,
				})
		}

		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if existing != nil {
				return txRepo.UpdateItemQuantity(ctx, existing.ID, total)
			}
			return txRepo.CreateItem(ctx, &models.CartItem{
				CartID:      cart.ID,
				ProductID:   productID,
				ShopID:      snapshot.ShopID,
				ProductName: snapshot.Name,
				Price:       snapshot.Price,
				Quantity:    quantity,
			})
		})
	})
	if err != nil {
		s.metrics.IncFailure(op)
		return nil, err
	}

	return s.reload(ctx, cartID)
}

// UpdateItemQty overwrites the line's quantity after a stock check. The stored
// price and name snapshots are left alone; reconciliation refreshes those.
func (s *itemService) UpdateItemQty(ctx context.Context, buyerID, cartID, itemID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	const op = "update_item_qty"
	start := time.Now()
	defer func() { s.metrics.ObserveDuration(op, time.Since(start)) }()

	if quantity < 1 {
		s.metrics.IncFailure(op)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	err := s.locks.WithLock(ctx, cartID, func(ctx context.Context) error {
		cart, err := s.mutableCart(ctx, buyerID, cartID)
		if err != nil {
			return err
		}

		item, err := s.ownedItem(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}
		if item.ProductID != productID {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id does not match the cart line")
		}

		snapshot, err := s.snapshot(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if quantity > snapshot.Stock {
			return pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds available stock").
				WithDetails(map[string]any{
					"product_id": item.ProductID,
					"requested":  quantity,
					"stock":      snapshot.Stock,
				})
		}

		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.repo.WithTx(tx).UpdateItemQuantity(ctx, item.ID, quantity)
		})
	})
	if err != nil {
		s.metrics.IncFailure(op)
		return nil, err
	}

	return s.reload(ctx, cartID)
}

// RemoveIfOwned deletes the line from the buyer's cart. An emptied cart is
// kept; only checkout retires a cart.
func (s *itemService) RemoveIfOwned(ctx context.Context, buyerID, cartID, itemID uuid.UUID) error {
	const op = "remove_item"
	start := time.Now()
	defer func() { s.metrics.ObserveDuration(op, time.Since(start)) }()

	err := s.locks.WithLock(ctx, cartID, func(ctx context.Context) error {
		cart, err := s.mutableCart(ctx, buyerID, cartID)
		if err != nil {
			return err
		}

		item, err := s.ownedItem(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}

		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.repo.WithTx(tx).DeleteItem(ctx, cart.ID, item.ID)
		})
	})
	if err != nil {
		s.metrics.IncFailure(op)
		return err
	}
	return nil
}

// mutableCart loads the buyer's cart and rejects mutations on a cart that has
// already been checked out.
func (s *itemService) mutableCart(ctx context.Context, buyerID, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := findOwnedCart(ctx, s.repo, buyerID, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsCheckout {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is already checked out")
	}
	return cart, nil
}

func (s *itemService) ownedItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.repo.FindItem(ctx, cartID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return item, nil
}

func (s *itemService) snapshot(ctx context.Context, productID uuid.UUID) (catalog.ProductSnapshot, error) {
	snapshots, err := s.products.FindByIDs(ctx, []uuid.UUID{productID})
	if err != nil {
		return catalog.ProductSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product snapshot")
	}
	snapshot, ok := snapshots[productID]
	if !ok {
		return catalog.ProductSnapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return snapshot, nil
}

func (s *itemService) reload(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return cart, nil
}
