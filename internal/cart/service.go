package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-cart/pkg/db"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
)

const openCartIndexName = "idx_carts_open_buyer"

// Service owns the cart aggregate: the open-cart lifecycle and the checkout
// transition. Item-level mutations live on ItemService.
type Service interface {
	FindOrCreateOpenCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	FindOneIfOwned(ctx context.Context, buyerID, cartID uuid.UUID) (*models.Cart, error)
	SetCheckoutDone(ctx context.Context, buyerID, cartID uuid.UUID, orderID *uuid.UUID) error
}

type service struct {
	repo CartRepository
	logg *logger.Logger
}

// NewService builds a cart aggregate service backed by the provided store.
func NewService(repo CartRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// FindOrCreateOpenCart returns the buyer's open cart, creating an empty one
// when none exists. Repeated calls without an intervening checkout return the
// same cart.
func (s *service) FindOrCreateOpenCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}

	cart, err := s.repo.FindOpenByBuyer(ctx, buyerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{BuyerID: buyerID})
	if err != nil {
		// a concurrent request created the open cart first; the partial
		// unique index turns that race into a conflict we can re-read
		if db.IsUniqueViolation(err, openCartIndexName) {
			return s.repo.FindOpenByBuyer(ctx, buyerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithCartID(ctx, created.ID.String()), "open cart created")
	}
	return created, nil
}

// FindOneIfOwned returns the cart only when it belongs to the buyer.
func (s *service) FindOneIfOwned(ctx context.Context, buyerID, cartID uuid.UUID) (*models.Cart, error) {
	return findOwnedCart(ctx, s.repo, buyerID, cartID)
}

// SetCheckoutDone flips the cart into its checked-out state and records the
// order id. The next FindOrCreateOpenCart for the buyer yields a fresh cart.
func (s *service) SetCheckoutDone(ctx context.Context, buyerID, cartID uuid.UUID, orderID *uuid.UUID) error {
	cart, err := findOwnedCart(ctx, s.repo, buyerID, cartID)
	if err != nil {
		return err
	}
	if cart.IsCheckout {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is already checked out")
	}

	if err := s.repo.SetCheckoutDone(ctx, cart.ID, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cart checked out")
	}
	return nil
}

// findOwnedCart distinguishes a missing cart (not found) from someone else's
// cart (forbidden).
func findOwnedCart(ctx context.Context, repo CartRepository, buyerID, cartID uuid.UUID) (*models.Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	cart, err := repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart does not belong to the buyer")
	}
	return cart, nil
}
