package reconcile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-cart/internal/cart"
	"github.com/angelmondragon/marketplace-cart/internal/catalog"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
)

func TestReconcilePrunesUnavailableItems(t *testing.T) {
	t.Parallel()

	buyerID := uuid.New()
	repo := newMemRepo()
	loaded := repo.seedCart(buyerID, false)

	missing := repo.seedItem(loaded.ID, uuid.New(), 1)
	offShelf := repo.seedItem(loaded.ID, uuid.New(), 1)
	unapproved := repo.seedItem(loaded.ID, uuid.New(), 1)
	outOfStock := repo.seedItem(loaded.ID, uuid.New(), 1)
	healthy := repo.seedItem(loaded.ID, uuid.New(), 3)

	snapshots := stubSnapshots{
		offShelf.ProductID:   {ID: offShelf.ProductID, OnShelf: false, IsApproved: true, Stock: 5, Name: "seeded", Price: seedPrice()},
		unapproved.ProductID: {ID: unapproved.ProductID, OnShelf: true, IsApproved: false, Stock: 5, Name: "seeded", Price: seedPrice()},
		outOfStock.ProductID: {ID: outOfStock.ProductID, OnShelf: true, IsApproved: true, Stock: 0, Name: "seeded", Price: seedPrice()},
		healthy.ProductID:    {ID: healthy.ProductID, OnShelf: true, IsApproved: true, Stock: 5, Name: "seeded", Price: seedPrice()},
	}
	engine := newTestEngine(t, repo, snapshots)

	got, err := engine.Reconcile(context.Background(), buyerID, loaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected only the healthy item to survive, got %d items", len(got.Items))
	}
	if got.Items[0].ID != healthy.ID {
		t.Fatalf("wrong survivor: %+v", got.Items[0])
	}
	if got.Items[0].Quantity != 3 {
		t.Fatalf("survivor quantity must be untouched, got %d", got.Items[0].Quantity)
	}
	for _, removed := range []uuid.UUID{missing.ID, offShelf.ID, unapproved.ID, outOfStock.ID} {
		if _, ok := repo.items[removed]; ok {
			t.Fatalf("item %s should have been removed", removed)
		}
	}
}

func TestReconcileRefreshesStaleSnapshots(t *testing.T) {
	t.Parallel()

	buyerID := uuid.New()
	repo := newMemRepo()
	loaded := repo.seedCart(buyerID, false)
	item := repo.seedItem(loaded.ID, uuid.New(), 2)

	snapshots := stubSnapshots{
		item.ProductID: {
			ID:         item.ProductID,
			Name:       "renamed upstream",
			Price:      decimal.RequireFromString("14.25"),
			Stock:      5,
			OnShelf:    true,
			IsApproved: true,
		},
	}
	engine := newTestEngine(t, repo, snapshots)

	got, err := engine.Reconcile(context.Background(), buyerID, loaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := got.Items[0]
	if line.ProductName != "renamed upstream" {
		t.Fatalf("expected the name snapshot to refresh, got %q", line.ProductName)
	}
	if !line.Price.Equal(decimal.RequireFromString("14.25")) {
		t.Fatalf("expected the price snapshot to refresh, got %s", line.Price)
	}
	if line.Quantity != 2 {
		t.Fatalf("refresh must not touch quantity, got %d", line.Quantity)
	}
}

func TestReconcileKeepsItemOnPartialStockShortfall(t *testing.T) {
	t.Parallel()

	buyerID := uuid.New()
	repo := newMemRepo()
	loaded := repo.seedCart(buyerID, false)
	item := repo.seedItem(loaded.ID, uuid.New(), 8)

	// stock dropped below the stored quantity but stays positive; the item
	// survives with its quantity intact and checkout revalidates
	snapshots := stubSnapshots{
		item.ProductID: {ID: item.ProductID, OnShelf: true, IsApproved: true, Stock: 3, Name: "seeded", Price: seedPrice()},
	}
	engine := newTestEngine(t, repo, snapshots)

	got, err := engine.Reconcile(context.Background(), buyerID, loaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 8 {
		t.Fatalf("expected the item kept with quantity 8, got %+v", got.Items)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	buyerID := uuid.New()
	repo := newMemRepo()
	loaded := repo.seedCart(buyerID, false)
	keep := repo.seedItem(loaded.ID, uuid.New(), 2)
	repo.seedItem(loaded.ID, uuid.New(), 1)

	snapshots := stubSnapshots{
		keep.ProductID: {
			ID:         keep.ProductID,
			Name:       "renamed upstream",
			Price:      decimal.RequireFromString("3.33"),
			Stock:      9,
			OnShelf:    true,
			IsApproved: true,
		},
	}
	engine := newTestEngine(t, repo, snapshots)

	first, err := engine.Reconcile(context.Background(), buyerID, loaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Reconcile(context.Background(), buyerID, loaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Items) != 1 || len(second.Items) != 1 {
		t.Fatalf("expected one surviving item in both runs, got %d then %d", len(first.Items), len(second.Items))
	}
	a, b := first.Items[0], second.Items[0]
	if a.ID != b.ID || a.Quantity != b.Quantity || a.ProductName != b.ProductName || !a.Price.Equal(b.Price) {
		t.Fatalf("second run diverged: %+v vs %+v", a, b)
	}
}

func TestReconcileEmptyCart(t *testing.T) {
	t.Parallel()

	buyerID := uuid.New()
	repo := newMemRepo()
	loaded := repo.seedCart(buyerID, false)
	engine := newTestEngine(t, repo, stubSnapshots{})

	got, err := engine.Reconcile(context.Background(), buyerID, loaded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected an empty cart, got %d items", len(got.Items))
	}
}

func TestReconcileForeignCart(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	loaded := repo.seedCart(uuid.New(), false)
	engine := newTestEngine(t, repo, stubSnapshots{})

	_, err := engine.Reconcile(context.Background(), uuid.New(), loaded.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestReconcileCheckedOutCart(t *testing.T) {
	t.Parallel()

	buyerID := uuid.New()
	repo := newMemRepo()
	loaded := repo.seedCart(buyerID, true)
	engine := newTestEngine(t, repo, stubSnapshots{})

	_, err := engine.Reconcile(context.Background(), buyerID, loaded.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func newTestEngine(t *testing.T, repo cart.CartRepository, snapshots stubSnapshots) *Engine {
	t.Helper()
	engine, err := NewEngine(repo, stubTxRunner{}, snapshots, passthroughLocker{}, nil, nil)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine
}

func seedPrice() decimal.Decimal {
	return decimal.RequireFromString("9.99")
}

type memRepo struct {
	carts map[uuid.UUID]*models.Cart
	items map[uuid.UUID]*models.CartItem
}

func newMemRepo() *memRepo {
	return &memRepo{
		carts: map[uuid.UUID]*models.Cart{},
		items: map[uuid.UUID]*models.CartItem{},
	}
}

func (m *memRepo) seedCart(buyerID uuid.UUID, checkedOut bool) *models.Cart {
	loaded := &models.Cart{ID: uuid.New(), BuyerID: buyerID, IsCheckout: checkedOut}
	m.carts[loaded.ID] = loaded
	return loaded
}

func (m *memRepo) seedItem(cartID, productID uuid.UUID, quantity int) *models.CartItem {
	item := &models.CartItem{
		ID:          uuid.New(),
		CartID:      cartID,
		ProductID:   productID,
		ShopID:      uuid.New(),
		ProductName: "seeded",
		Price:       seedPrice(),
		Quantity:    quantity,
	}
	m.items[item.ID] = item
	return item
}

func (m *memRepo) WithTx(tx *gorm.DB) cart.CartRepository { return m }

func (m *memRepo) Create(ctx context.Context, loaded *models.Cart) (*models.Cart, error) {
	loaded.ID = uuid.New()
	m.carts[loaded.ID] = loaded
	return loaded, nil
}

func (m *memRepo) FindOpenByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	for _, loaded := range m.carts {
		if loaded.BuyerID == buyerID && !loaded.IsCheckout {
			return m.loaded(loaded), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	loaded, ok := m.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.loaded(loaded), nil
}

func (m *memRepo) SetCheckoutDone(ctx context.Context, id uuid.UUID, orderID *uuid.UUID) error {
	loaded, ok := m.carts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	loaded.IsCheckout = true
	loaded.OrderID = orderID
	return nil
}

func (m *memRepo) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	item, ok := m.items[itemID]
	if !ok || item.CartID != cartID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *memRepo) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	for _, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID {
			clone := *item
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	item.ID = uuid.New()
	clone := *item
	m.items[item.ID] = &clone
	return nil
}

func (m *memRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	item, ok := m.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *memRepo) UpdateItemSnapshot(ctx context.Context, itemID uuid.UUID, price decimal.Decimal, name string) error {
	item, ok := m.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Price = price
	item.ProductName = name
	return nil
}

func (m *memRepo) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	if item, ok := m.items[itemID]; ok && item.CartID == cartID {
		delete(m.items, itemID)
	}
	return nil
}

func (m *memRepo) DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	for _, id := range itemIDs {
		if item, ok := m.items[id]; ok && item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *memRepo) loaded(src *models.Cart) *models.Cart {
	clone := *src
	clone.Items = nil
	for _, item := range m.items {
		if item.CartID == src.ID {
			clone.Items = append(clone.Items, *item)
		}
	}
	return &clone
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type passthroughLocker struct{}

func (passthroughLocker) WithLock(ctx context.Context, cartID uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubSnapshots map[uuid.UUID]catalog.ProductSnapshot

func (s stubSnapshots) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.ProductSnapshot, error) {
	out := make(map[uuid.UUID]catalog.ProductSnapshot, len(ids))
	for _, id := range ids {
		if snapshot, ok := s[id]; ok {
			out[id] = snapshot
		}
	}
	return out, nil
}
