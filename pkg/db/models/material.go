package models

import (
	"time"

	"github.com/google/uuid"
)

// Material is a tradeable precious metal (gold, silver, ...).
type Material struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	Symbol    string    `gorm:"column:symbol;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Material) TableName() string {
	return "materials"
}
