package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a customer delivery address. Lookups are always ownership
// checked.
type Address struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	Line1      string    `gorm:"column:line1;not null"`
	Line2      string    `gorm:"column:line2"`
	City       string    `gorm:"column:city;not null"`
	Region     string    `gorm:"column:region"`
	PostalCode string    `gorm:"column:postal_code"`
	Phone      string    `gorm:"column:phone"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Address) TableName() string {
	return "addresses"
}
