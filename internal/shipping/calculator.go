package shipping

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-cart/internal/catalog"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
	"github.com/angelmondragon/marketplace-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
)

// Calculator computes the per-shop shipping breakdown for a loaded cart.
//
// The free-shipping threshold is compared against the shop's shipping-fee
// subtotal, not the merchandise subtotal. That matches the observed upstream
// behavior; see the calculator tests before changing it.
type Calculator struct {
	products catalog.SnapshotProvider
	profiles ProfileProvider
	policies PolicyProvider
}

// NewCalculator builds a shipping calculator backed by the provided readers.
func NewCalculator(products catalog.SnapshotProvider, profiles ProfileProvider, policies PolicyProvider) (*Calculator, error) {
	if products == nil {
		return nil, fmt.Errorf("product snapshot provider required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("shipping profile provider required")
	}
	if policies == nil {
		return nil, fmt.Errorf("shop policy provider required")
	}
	return &Calculator{
		products: products,
		profiles: profiles,
		policies: policies,
	}, nil
}

// Calculate resolves every line's fee from its product's shipping profile,
// folds the lines into per-shop totals, applies free-shipping thresholds and
// sums the shop totals into the cart-level fee.
func (c *Calculator) Calculate(ctx context.Context, cart *models.Cart) (*QuoteResult, error) {
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is required")
	}

	result := &QuoteResult{
		CartTotalShippingFee: decimal.Zero,
		ShopShippingFees:     map[uuid.UUID]*ShopShippingFee{},
	}
	if len(cart.Items) == 0 {
		return result, nil
	}

	snapshots, err := c.products.FindByIDs(ctx, productIDs(cart.Items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product snapshots")
	}

	profiles, err := c.profiles.FindByIDs(ctx, profileIDs(snapshots))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping profiles")
	}

	policies, err := c.policies.FindByShopIDs(ctx, shopIDs(cart.Items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop shipping policies")
	}

	// First pass: bucket the flat item list per selling shop, second pass:
	// fold each bucket independently so the threshold rule stays local to
	// one shop.
	for shopID, items := range groupItemsByShop(cart.Items) {
		shopFee := foldShop(shopID, items, snapshots, profiles)

		if policy, ok := policies[shopID]; ok && policy.FreeShippingThreshold != nil {
			threshold := *policy.FreeShippingThreshold
			shopFee.FreeShippingAmount = &threshold
			if shopFee.TotalShippingFee.GreaterThanOrEqual(threshold) {
				shopFee.TotalShippingFee = decimal.Zero
			}
		}

		result.ShopShippingFees[shopID] = shopFee
		result.CartTotalShippingFee = result.CartTotalShippingFee.Add(shopFee.TotalShippingFee)
	}

	return result, nil
}

// groupItemsByShop buckets cart items by their selling shop.
func groupItemsByShop(items []models.CartItem) map[uuid.UUID][]models.CartItem {
	grouped := make(map[uuid.UUID][]models.CartItem, len(items))
	for _, item := range items {
		grouped[item.ShopID] = append(grouped[item.ShopID], item)
	}
	return grouped
}

func foldShop(
	shopID uuid.UUID,
	items []models.CartItem,
	snapshots map[uuid.UUID]catalog.ProductSnapshot,
	profiles map[uuid.UUID]models.ShippingProfile,
) *ShopShippingFee {
	shopFee := &ShopShippingFee{
		ShopID:           shopID,
		Products:         make([]ProductShippingLine, 0, len(items)),
		TotalShippingFee: decimal.Zero,
	}

	for _, item := range items {
		fee := lineFee(item, snapshots, profiles)
		shopFee.Products = append(shopFee.Products, ProductShippingLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			ShippingFee: fee,
		})
		shopFee.TotalShippingFee = shopFee.TotalShippingFee.Add(fee)
	}

	return shopFee
}

// lineFee resolves one cart line's shipping fee from its product's profile.
// Lines whose product or profile is gone cost nothing; reconciliation owns
// removing them.
func lineFee(
	item models.CartItem,
	snapshots map[uuid.UUID]catalog.ProductSnapshot,
	profiles map[uuid.UUID]models.ShippingProfile,
) decimal.Decimal {
	if item.Quantity <= 0 {
		return decimal.Zero
	}

	snapshot, ok := snapshots[item.ProductID]
	if !ok || snapshot.ShippingProfileID == nil {
		return decimal.Zero
	}
	profile, ok := profiles[*snapshot.ShippingProfileID]
	if !ok {
		return decimal.Zero
	}

	switch profile.FeeType {
	case enums.ShippingFeeTypeFlat:
		// charged once per line, not per unit
		return profile.FeeAmount
	case enums.ShippingFeeTypePerItem:
		return profile.FeeAmount.Mul(decimal.NewFromInt(int64(item.Quantity)))
	case enums.ShippingFeeTypeByWeight:
		// weight is multiplied as stored; no unit conversion
		return snapshot.Weight.
			Mul(decimal.NewFromInt(int64(item.Quantity))).
			Mul(profile.FeeAmount)
	case enums.ShippingFeeTypeFree:
		return decimal.Zero
	default:
		return decimal.Zero
	}
}

func productIDs(items []models.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func shopIDs(items []models.CartItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ShopID]; ok {
			continue
		}
		seen[item.ShopID] = struct{}{}
		ids = append(ids, item.ShopID)
	}
	return ids
}

func profileIDs(snapshots map[uuid.UUID]catalog.ProductSnapshot) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(snapshots))
	ids := make([]uuid.UUID, 0, len(snapshots))
	for _, snapshot := range snapshots {
		if snapshot.ShippingProfileID == nil {
			continue
		}
		id := *snapshot.ShippingProfileID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
