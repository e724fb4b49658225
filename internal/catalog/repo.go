package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/pkg/db/models"
)

// Repository reads the redeemable product catalog.
type Repository interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListByMaterial(ctx context.Context, materialID uuid.UUID) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListByMaterial(ctx context.Context, materialID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND is_active = ?", materialID, true).
		Order("weight_in_grams ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
