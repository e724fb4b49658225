package otp

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
)

// Repository manages persistence for OTP challenges.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, challenge *models.OtpChallenge) error
	// FindNewest loads the most recent challenge for a user and context.
	// Returns gorm.ErrRecordNotFound when none exists.
	FindNewest(ctx context.Context, userID uuid.UUID, otpContext enums.OtpContext) (*models.OtpChallenge, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	// Consume marks a challenge used if it is still unused and under the
	// attempt cap, reporting whether this caller won the claim.
	Consume(ctx context.Context, id uuid.UUID, maxAttempts int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an OTP repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, challenge *models.OtpChallenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

func (r *repository) FindNewest(ctx context.Context, userID uuid.UUID, otpContext enums.OtpContext) (*models.OtpChallenge, error) {
	var challenge models.OtpChallenge
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND context = ?", userID, otpContext).
		Order("created_at DESC").
		First(&challenge).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *repository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OtpChallenge{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}

func (r *repository) Consume(ctx context.Context, id uuid.UUID, maxAttempts int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OtpChallenge{}).
		Where("id = ? AND is_used = ? AND attempts < ?", id, false, maxAttempts).
		Update("is_used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
