package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aurumly/bullion-backend/pkg/enums"
)

// OtpChallenge is a short-lived hashed one-time code gating a sensitive
// action. Only the argon2id hash of the code is stored.
type OtpChallenge struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index:idx_otp_user_context,priority:1"`
	Context   enums.OtpContext `gorm:"column:context;type:otp_context_enum;not null;index:idx_otp_user_context,priority:2"`
	OtpHash   string           `gorm:"column:otp_hash;not null"`
	ExpiresAt time.Time        `gorm:"column:expires_at;not null"`
	Attempts  int              `gorm:"column:attempts;not null;default:0"`
	IsUsed    bool             `gorm:"column:is_used;not null;default:false"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (OtpChallenge) TableName() string {
	return "otp_challenges"
}
