package shipping

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-cart/internal/repo"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
)

// ProfileRepository reads shipping profiles.
type ProfileRepository struct {
	repo.Base
}

// NewProfileRepository binds the repository to the provided GORM handle.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{Base: repo.NewBase(db)}
}

// FindByIDs loads the requested profiles in one query.
func (r *ProfileRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ShippingProfile, error) {
	profiles := make(map[uuid.UUID]models.ShippingProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	var rows []models.ShippingProfile
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		profiles[row.ID] = row
	}
	return profiles, nil
}

// PolicyRepository reads shop shipping policies.
type PolicyRepository struct {
	repo.Base
}

// NewPolicyRepository binds the repository to the provided GORM handle.
func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{Base: repo.NewBase(db)}
}

// FindByShopIDs loads the requested policies in one query. Shops without a
// configured policy are absent from the result.
func (r *PolicyRepository) FindByShopIDs(ctx context.Context, shopIDs []uuid.UUID) (map[uuid.UUID]models.ShopShippingPolicy, error) {
	policies := make(map[uuid.UUID]models.ShopShippingPolicy, len(shopIDs))
	if len(shopIDs) == 0 {
		return policies, nil
	}

	var rows []models.ShopShippingPolicy
	if err := r.DB(ctx).Where("shop_id IN ?", shopIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		policies[row.ShopID] = row
	}
	return policies, nil
}
