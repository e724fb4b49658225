package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service resolves pricing inputs and lets admins maintain the rate tables.
// The read methods return found=false when no row applies; pricing decides
// what an absent rate means.
type Service interface {
	LivePrice(ctx context.Context, materialID uuid.UUID) (decimal.Decimal, bool, error)
	TaxRate(ctx context.Context, materialID uuid.UUID, asOf time.Time, taxOn enums.TaxOn) (decimal.Decimal, bool, error)
	ServiceFeeRate(ctx context.Context, materialID uuid.UUID, asOf time.Time) (decimal.Decimal, bool, error)
	SetLivePrice(ctx context.Context, input SetLivePriceInput) (*models.MetalRate, error)
	AddTaxRate(ctx context.Context, input AddTaxRateInput) (*models.TaxRate, error)
	AddServiceFeeRate(ctx context.Context, input AddServiceFeeRateInput) (*models.ServiceFeeRate, error)
	PriceHistory(ctx context.Context, materialID uuid.UUID, limit int) ([]models.MetalRate, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// SetLivePriceInput replaces the live price for a material.
type SetLivePriceInput struct {
	MaterialID   uuid.UUID
	PricePerGram decimal.Decimal
}

// AddTaxRateInput appends an effective-dated tax percentage.
type AddTaxRateInput struct {
	MaterialID    uuid.UUID
	TaxOn         enums.TaxOn
	Percentage    decimal.Decimal
	EffectiveDate time.Time
}

// AddServiceFeeRateInput appends an effective-dated service-fee percentage.
type AddServiceFeeRateInput struct {
	MaterialID    uuid.UUID
	Percentage    decimal.Decimal
	EffectiveDate time.Time
}

// NewService wires a rates service with the provided dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rates repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) LivePrice(ctx context.Context, materialID uuid.UUID) (decimal.Decimal, bool, error) {
	if materialID == uuid.Nil {
		return decimal.Zero, false, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	rate, err := s.repo.FindLatestMetalRate(ctx, materialID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load live price")
	}
	return rate.PricePerGram, true, nil
}

func (s *service) TaxRate(ctx context.Context, materialID uuid.UUID, asOf time.Time, taxOn enums.TaxOn) (decimal.Decimal, bool, error) {
	if materialID == uuid.Nil {
		return decimal.Zero, false, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if !taxOn.IsValid() {
		return decimal.Zero, false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tax target %q", taxOn))
	}
	rate, err := s.repo.FindEffectiveTaxRate(ctx, materialID, taxOn, asOf)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tax rate")
	}
	return rate.Percentage, true, nil
}

func (s *service) ServiceFeeRate(ctx context.Context, materialID uuid.UUID, asOf time.Time) (decimal.Decimal, bool, error) {
	if materialID == uuid.Nil {
		return decimal.Zero, false, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	rate, err := s.repo.FindEffectiveServiceFeeRate(ctx, materialID, asOf)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service fee rate")
	}
	return rate.Percentage, true, nil
}

func (s *service) SetLivePrice(ctx context.Context, input SetLivePriceInput) (*models.MetalRate, error) {
	if input.MaterialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if !input.PricePerGram.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per gram must be positive")
	}

	rate := &models.MetalRate{
		ID:           uuid.New(),
		MaterialID:   input.MaterialID,
		PricePerGram: input.PricePerGram,
		IsLatest:     true,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearLatestMetalRate(ctx, input.MaterialID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear previous live price")
		}
		if err := repo.CreateMetalRate(ctx, rate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create metal rate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rate, nil
}

func (s *service) AddTaxRate(ctx context.Context, input AddTaxRateInput) (*models.TaxRate, error) {
	if input.MaterialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if !input.TaxOn.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tax target %q", input.TaxOn))
	}
	if input.Percentage.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage must not be negative")
	}
	if input.EffectiveDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "effective date required")
	}

	rate := &models.TaxRate{
		ID:            uuid.New(),
		MaterialID:    input.MaterialID,
		TaxOn:         input.TaxOn,
		Percentage:    input.Percentage,
		EffectiveDate: input.EffectiveDate,
	}
	if err := s.repo.CreateTaxRate(ctx, rate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tax rate")
	}
	return rate, nil
}

func (s *service) AddServiceFeeRate(ctx context.Context, input AddServiceFeeRateInput) (*models.ServiceFeeRate, error) {
	if input.MaterialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if input.Percentage.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage must not be negative")
	}
	if input.EffectiveDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "effective date required")
	}

	rate := &models.ServiceFeeRate{
		ID:            uuid.New(),
		MaterialID:    input.MaterialID,
		Percentage:    input.Percentage,
		EffectiveDate: input.EffectiveDate,
	}
	if err := s.repo.CreateServiceFeeRate(ctx, rate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create service fee rate")
	}
	return rate, nil
}

func (s *service) PriceHistory(ctx context.Context, materialID uuid.UUID, limit int) ([]models.MetalRate, error) {
	if materialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rates, err := s.repo.ListMetalRates(ctx, materialID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list metal rates")
	}
	return rates, nil
}
