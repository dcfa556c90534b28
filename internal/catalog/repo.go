package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-cart/internal/repo"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
)

// Repository reads product rows as snapshots for the cart core.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByIDs loads the requested products in one query. Ids that no longer
// exist are absent from the returned map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductSnapshot, error) {
	snapshots := make(map[uuid.UUID]ProductSnapshot, len(ids))
	if len(ids) == 0 {
		return snapshots, nil
	}

	var rows []models.Product
	if err := r.DB(ctx).
		Where("id IN ?", dedupe(ids)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		snapshots[row.ID] = ProductSnapshot{
			ID:                row.ID,
			ShopID:            row.ShopID,
			Name:              row.Name,
			Price:             row.Price,
			Stock:             row.Stock,
			OnShelf:           row.OnShelf,
			IsApproved:        row.IsApproved,
			ShippingProfileID: row.ShippingProfileID,
			Weight:            row.Weight,
		}
	}
	return snapshots, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
