package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aurumly/bullion-backend/pkg/enums"
)

// User is the minimal identity record the core pipelines need: a role for
// capability checks and a phone number for OTP delivery.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Role      enums.UserRole `gorm:"column:role;type:user_role_enum;not null"`
	Name      string         `gorm:"column:name;not null"`
	Email     string         `gorm:"column:email;uniqueIndex"`
	Phone     string         `gorm:"column:phone;not null"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
