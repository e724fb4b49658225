package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a redeemable physical item (coin, bar) in the vendor catalog.
// Only the fields the redemption pipeline needs live here.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	MaterialID    uuid.UUID       `gorm:"column:material_id;type:uuid;not null;index"`
	Name          string          `gorm:"column:name;not null"`
	WeightInGrams decimal.Decimal `gorm:"column:weight_in_grams;type:numeric(20,6);not null"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Product) TableName() string {
	return "products"
}
