package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/pkg/enums"
)

// MetalRate is one point-in-time price per gram for a material. Exactly one
// row per material carries is_latest = true; flipping it happens inside the
// same transaction that inserts the replacement.
type MetalRate struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	MaterialID   uuid.UUID       `gorm:"column:material_id;type:uuid;not null;index"`
	PricePerGram decimal.Decimal `gorm:"column:price_per_gram;type:numeric(20,2);not null"`
	IsLatest     bool            `gorm:"column:is_latest;not null;default:false"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (MetalRate) TableName() string {
	return "metal_rates"
}

// TaxRate is an effective-dated tax percentage for a material, split by what
// the tax applies to (material value or service fee).
type TaxRate struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	MaterialID    uuid.UUID       `gorm:"column:material_id;type:uuid;not null;index"`
	TaxOn         enums.TaxOn     `gorm:"column:tax_on;type:tax_on_enum;not null"`
	Percentage    decimal.Decimal `gorm:"column:percentage;type:numeric(8,2);not null"`
	EffectiveDate time.Time       `gorm:"column:effective_date;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (TaxRate) TableName() string {
	return "tax_rates"
}

// ServiceFeeRate is an effective-dated service-fee percentage for a material.
type ServiceFeeRate struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	MaterialID    uuid.UUID       `gorm:"column:material_id;type:uuid;not null;index"`
	Percentage    decimal.Decimal `gorm:"column:percentage;type:numeric(8,2);not null"`
	EffectiveDate time.Time       `gorm:"column:effective_date;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (ServiceFeeRate) TableName() string {
	return "service_fee_rates"
}
