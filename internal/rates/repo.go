package rates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
)

// Repository manages persistence for metal, tax and service-fee rates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLatestMetalRate(ctx context.Context, materialID uuid.UUID) (*models.MetalRate, error)
	ClearLatestMetalRate(ctx context.Context, materialID uuid.UUID) error
	CreateMetalRate(ctx context.Context, rate *models.MetalRate) error
	ListMetalRates(ctx context.Context, materialID uuid.UUID, limit int) ([]models.MetalRate, error)
	FindEffectiveTaxRate(ctx context.Context, materialID uuid.UUID, taxOn enums.TaxOn, asOf time.Time) (*models.TaxRate, error)
	CreateTaxRate(ctx context.Context, rate *models.TaxRate) error
	FindEffectiveServiceFeeRate(ctx context.Context, materialID uuid.UUID, asOf time.Time) (*models.ServiceFeeRate, error)
	CreateServiceFeeRate(ctx context.Context, rate *models.ServiceFeeRate) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rates repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindLatestMetalRate(ctx context.Context, materialID uuid.UUID) (*models.MetalRate, error) {
	var rate models.MetalRate
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND is_latest = ?", materialID, true).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) ClearLatestMetalRate(ctx context.Context, materialID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.MetalRate{}).
		Where("material_id = ? AND is_latest = ?", materialID, true).
		Update("is_latest", false).Error
}

func (r *repository) CreateMetalRate(ctx context.Context, rate *models.MetalRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *repository) ListMetalRates(ctx context.Context, materialID uuid.UUID, limit int) ([]models.MetalRate, error) {
	var rates []models.MetalRate
	err := r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *repository) FindEffectiveTaxRate(ctx context.Context, materialID uuid.UUID, taxOn enums.TaxOn, asOf time.Time) (*models.TaxRate, error) {
	var rate models.TaxRate
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND tax_on = ? AND effective_date <= ?", materialID, taxOn, asOf).
		Order("effective_date DESC, created_at DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CreateTaxRate(ctx context.Context, rate *models.TaxRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *repository) FindEffectiveServiceFeeRate(ctx context.Context, materialID uuid.UUID, asOf time.Time) (*models.ServiceFeeRate, error) {
	var rate models.ServiceFeeRate
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND effective_date <= ?", materialID, asOf).
		Order("effective_date DESC, created_at DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CreateServiceFeeRate(ctx context.Context, rate *models.ServiceFeeRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}
