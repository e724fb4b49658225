package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/pkg/enums"
)

// Purchase is the persisted record of a committed fractional purchase. It is
// created atomically with its positive ledger entry and never mutated after
// the fact except for status.
type Purchase struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID     uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	MaterialID     uuid.UUID            `gorm:"column:material_id;type:uuid;not null"`
	Amount         decimal.Decimal      `gorm:"column:amount;type:numeric(20,2);not null"`
	PricePerGram   decimal.Decimal      `gorm:"column:price_per_gram;type:numeric(20,2);not null"`
	GramsPurchased decimal.Decimal      `gorm:"column:grams_purchased;type:numeric(20,6);not null"`
	TaxOnMaterial  decimal.Decimal      `gorm:"column:tax_on_material;type:numeric(20,2);not null"`
	TaxOnService   decimal.Decimal      `gorm:"column:tax_on_service;type:numeric(20,2);not null"`
	ServiceFee     decimal.Decimal      `gorm:"column:service_fee;type:numeric(20,2);not null"`
	TotalAmount    decimal.Decimal      `gorm:"column:total_amount;type:numeric(20,2);not null"`
	Status         enums.PurchaseStatus `gorm:"column:status;type:purchase_status_enum;not null"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (Purchase) TableName() string {
	return "purchases"
}
