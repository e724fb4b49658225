package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/pkg/config"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
	"github.com/aurumly/bullion-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway delivers one-time codes out of band.
type Gateway interface {
	Send(ctx context.Context, phone, message string) error
}

// PhoneDirectory resolves the delivery target for a user.
type PhoneDirectory interface {
	Phone(ctx context.Context, userID uuid.UUID) (string, error)
}

// Service issues and verifies one-time codes gating sensitive actions.
type Service interface {
	Issue(ctx context.Context, userID uuid.UUID, otpContext enums.OtpContext) (*IssueResult, error)
	Verify(ctx context.Context, userID uuid.UUID, otpContext enums.OtpContext, code string) error
	// VerifyInTx consumes a code inside the caller's transaction, for
	// operations that gate other writes on the code.
	VerifyInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, otpContext enums.OtpContext, code string) error
}

// IssueResult reports a freshly stored challenge. Delivered is false when the
// SMS gateway failed; the challenge still stands and the caller may retry
// issuance after the cooldown.
type IssueResult struct {
	ChallengeID uuid.UUID
	ExpiresAt   time.Time
	Delivered   bool
}

type service struct {
	repo    Repository
	tx      txRunner
	gateway Gateway
	phones  PhoneDirectory
	cfg     config.OTPConfig
	logg    *logger.Logger
	now     func() time.Time
}

const codeLength = 6

// NewService wires an OTP service with the provided dependencies.
func NewService(repo Repository, tx txRunner, gateway Gateway, phones PhoneDirectory, cfg config.OTPConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("otp repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("sms gateway required")
	}
	if phones == nil {
		return nil, fmt.Errorf("phone directory required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		gateway: gateway,
		phones:  phones,
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) Issue(ctx context.Context, userID uuid.UUID, otpContext enums.OtpContext) (*IssueResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !otpContext.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid otp context %q", otpContext))
	}

	now := s.now()

	// Cooldown counts from the newest challenge regardless of whether it
	// was used or expired.
	newest, err := s.repo.FindNewest(ctx, userID, otpContext)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load newest challenge")
	}
	if newest != nil && now.Sub(newest.CreatedAt) < s.cfg.Cooldown {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "please wait before requesting another code")
	}

	code, err := security.GenerateNumericCode(codeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}
	hash, err := security.HashCode(code, s.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash code")
	}

	challenge := &models.OtpChallenge{
		ID:        uuid.New(),
		UserID:    userID,
		Context:   otpContext,
		OtpHash:   hash,
		ExpiresAt: now.Add(s.cfg.Expiry),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, challenge); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store challenge")
	}

	// Delivery is best effort: the challenge row already exists, and a
	// gateway outage must not invalidate it.
	delivered := true
	phone, err := s.phones.Phone(ctx, userID)
	if err != nil {
		delivered = false
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "otp phone lookup failed", err)
	} else if err := s.gateway.Send(ctx, phone, fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.cfg.Expiry.Minutes()))); err != nil {
		delivered = false
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "otp delivery failed", err)
	}

	return &IssueResult{
		ChallengeID: challenge.ID,
		ExpiresAt:   challenge.ExpiresAt,
		Delivered:   delivered,
	}, nil
}

func (s *service) Verify(ctx context.Context, userID uuid.UUID, otpContext enums.OtpContext, code string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.VerifyInTx(ctx, tx, userID, otpContext, code)
	})
}

func (s *service) VerifyInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, otpContext enums.OtpContext, code string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for otp verification")
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !otpContext.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid otp context %q", otpContext))
	}
	if len(code) != codeLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "code must be 6 digits")
	}

	challenge, err := s.repo.FindNewest(ctx, userID, otpContext)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no active challenge")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load challenge")
	}
	if challenge.IsUsed {
		return pkgerrors.New(pkgerrors.CodeConflict, "code already used")
	}
	if s.now().After(challenge.ExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active challenge")
	}
	// Lockout is checked before the comparison: a correct guess after the
	// limit still fails.
	if challenge.Attempts >= s.cfg.MaxAttempts {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "too many attempts")
	}

	matches, err := security.VerifyCode(code, challenge.OtpHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify code")
	}
	if !matches {
		// The increment runs on the base connection, not the caller's
		// transaction: a wrong code makes the caller roll back, and the
		// recorded attempt must survive that rollback.
		if err := s.repo.IncrementAttempts(ctx, challenge.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed attempt")
		}
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "invalid code")
	}

	// Consumption stays in the caller's transaction: if the gated write
	// fails the challenge reverts to usable. The conditional update is
	// what makes the code single-use under concurrent verifies.
	claimed, err := s.repo.WithTx(tx).Consume(ctx, challenge.ID, s.cfg.MaxAttempts)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume challenge")
	}
	if !claimed {
		return pkgerrors.New(pkgerrors.CodeConflict, "code already used")
	}
	return nil
}
