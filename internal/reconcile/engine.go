package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-cart/internal/cart"
	"github.com/angelmondragon/marketplace-cart/internal/catalog"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
	"github.com/angelmondragon/marketplace-cart/pkg/metrics"
)

// removal reasons, logged per pruned item
const (
	reasonProductMissing = "product_missing"
	reasonOffShelf       = "off_shelf"
	reasonNotApproved    = "not_approved"
	reasonOutOfStock     = "out_of_stock"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Engine re-validates a cart's items against live product state. Items whose
// product is gone, off shelf, unapproved or out of stock are removed; the
// price and name snapshots of surviving items are refreshed from the live
// record. Quantity is never clamped when stock drops but stays positive; the
// item survives and checkout revalidates.
type Engine struct {
	repo     cart.CartRepository
	tx       txRunner
	products catalog.SnapshotProvider
	locks    cart.Locker
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
}

// NewEngine builds the availability reconciler. Metrics may be nil.
func NewEngine(
	repo cart.CartRepository,
	tx txRunner,
	products catalog.SnapshotProvider,
	locks cart.Locker,
	logg *logger.Logger,
	cartMetrics *metrics.CartMetrics,
) (*Engine, error) {
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
	return &Engine{
		repo:     repo,
		tx:       tx,
		products: products,
		locks:    locks,
		logg:     logg,
		metrics:  cartMetrics,
	}, nil
}

// Reconcile prunes and refreshes the buyer's cart, then returns the reloaded
// cart. Running it twice without product changes in between is a no-op the
// second time.
func (e *Engine) Reconcile(ctx context.Context, buyerID, cartID uuid.UUID) (*models.Cart, error) {
	const op = "reconcile"
	start := time.Now()
	defer func() { e.metrics.ObserveDuration(op, time.Since(start)) }()

	var reconciled *models.Cart
	err := e.locks.WithLock(ctx, cartID, func(ctx context.Context) error {
		cart, err := e.loadOwnedOpenCart(ctx, buyerID, cartID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			reconciled = cart
			return nil
		}

		snapshots, err := e.products.FindByIDs(ctx, productIDs(cart.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product snapshots")
		}

		plan := buildPlan(cart.Items, snapshots)
		if plan.empty() {
			reconciled = cart
			return nil
		}

		if err := e.apply(ctx, cart.ID, plan); err != nil {
			return err
		}

		e.logRemovals(ctx, cart.ID, plan)
		e.metrics.AddItemsRemoved(len(plan.remove))

		reconciled, err = e.repo.FindByID(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
		}
		return nil
	})
	if err != nil {
		e.metrics.IncFailure(op)
		return nil, err
	}
	return reconciled, nil
}

type removal struct {
	item   models.CartItem
	reason string
}

type refresh struct {
	item     models.CartItem
	snapshot catalog.ProductSnapshot
}

type plan struct {
	remove  []removal
	refresh []refresh
}

func (p plan) empty() bool {
	return len(p.remove) == 0 && len(p.refresh) == 0
}

// buildPlan walks the items in stored order and decides, per item, whether it
// is pruned or kept. Kept items with a stale price or name snapshot are queued
// for a refresh.
func buildPlan(items []models.CartItem, snapshots map[uuid.UUID]catalog.ProductSnapshot) plan {
	var p plan
	for _, item := range items {
		snapshot, ok := snapshots[item.ProductID]
		if reason := removalReason(snapshot, ok); reason != "" {
			p.remove = append(p.remove, removal{item: item, reason: reason})
			continue
		}
		if !item.Price.Equal(snapshot.Price) || item.ProductName != snapshot.Name {
			p.refresh = append(p.refresh, refresh{item: item, snapshot: snapshot})
		}
	}
	return p
}

// removalReason applies the pruning rules in their fixed order and returns the
// first matching reason, or empty when the item stays.
func removalReason(snapshot catalog.ProductSnapshot, found bool) string {
	switch {
	case !found:
		return reasonProductMissing
	case !snapshot.OnShelf:
		return reasonOffShelf
	case !snapshot.IsApproved:
		return reasonNotApproved
	case snapshot.Stock <= 0:
		return reasonOutOfStock
	default:
		return ""
	}
}

// apply persists the whole plan in one transaction.
func (e *Engine) apply(ctx context.Context, cartID uuid.UUID, p plan) error {
	return e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := e.repo.WithTx(tx)

		if len(p.remove) > 0 {
			ids := make([]uuid.UUID, 0, len(p.remove))
			for _, r := range p.remove {
				ids = append(ids, r.item.ID)
			}
			if err := txRepo.DeleteItems(ctx, cartID, ids); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove unavailable items")
			}
		}

		var errs []error
		for _, r := range p.refresh {
			if err := txRepo.UpdateItemSnapshot(ctx, r.item.ID, r.snapshot.Price, r.snapshot.Name); err != nil {
				errs = append(errs, fmt.Errorf("refresh item %s: %w", r.item.ID, err))
			}
		}
		if combined := multierr.Combine(errs...); combined != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "refresh item snapshots")
		}
		return nil
	})
}

func (e *Engine) logRemovals(ctx context.Context, cartID uuid.UUID, p plan) {
	if e.logg == nil {
		return
	}
	for _, r := range p.remove {
		e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
			"cart_id":    cartID,
			"item_id":    r.item.ID,
			"product_id": r.item.ProductID,
			"reason":     r.reason,
		}), "cart item removed during reconciliation")
	}
}

func (e *Engine) loadOwnedOpenCart(ctx context.Context, buyerID, cartID uuid.UUID) (*models.Cart, error) {
	loaded, err := findCart(ctx, e.repo, buyerID, cartID)
	if err != nil {
		return nil, err
	}
	if loaded.IsCheckout {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is already checked out")
	}
	return loaded, nil
}

func productIDs(items []models.CartItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func findCart(ctx context.Context, repo cart.CartRepository, buyerID, cartID uuid.UUID) (*models.Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	loaded, err := repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if loaded.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart does not belong to the buyer")
	}
	return loaded, nil
}
