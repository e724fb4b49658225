package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines operations over the append-only holdings ledger.
type Service interface {
	// Append records a signed gram movement inside the caller's transaction.
	// The tx must not be nil: appends always run under the pair's row lock so
	// two concurrent writers cannot both read the same running balance.
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.LedgerEntry, error)
	Deposit(ctx context.Context, input DepositInput) (*models.LedgerEntry, error)
	CurrentBalance(ctx context.Context, customerID, materialID uuid.UUID) (decimal.Decimal, error)
	Holdings(ctx context.Context, customerID uuid.UUID) ([]models.LedgerEntry, error)
	History(ctx context.Context, input HistoryInput) ([]models.LedgerEntry, *string, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// AppendInput carries one gram movement. Grams is a positive magnitude; the
// direction comes from the source type.
type AppendInput struct {
	CustomerID uuid.UUID
	MaterialID uuid.UUID
	SourceType enums.LedgerSourceType
	SourceRef  *uuid.UUID
	Grams      decimal.Decimal
}

// DepositInput credits grams outside the purchase pipeline (back-office
// adjustments, physical deposits).
type DepositInput struct {
	CustomerID uuid.UUID
	MaterialID uuid.UUID
	Grams      decimal.Decimal
	SourceRef  *uuid.UUID
}

// HistoryInput pages a pair's entries newest-first by id.
type HistoryInput struct {
	CustomerID uuid.UUID
	MaterialID uuid.UUID
	Cursor     *string
	Limit      int
}

// NewService wires a ledger service with the provided dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.LedgerEntry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for ledger append")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.MaterialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if !input.SourceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger source type %q", input.SourceType))
	}
	if !input.Grams.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "grams must be positive")
	}

	repo := s.repo.WithTx(tx)

	if err := repo.LockPair(ctx, input.CustomerID, input.MaterialID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock ledger pair")
	}

	balance := decimal.Zero
	latest, err := repo.FindLatestForUpdate(ctx, input.CustomerID, input.MaterialID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest ledger entry")
	}
	if latest != nil {
		balance = latest.RunningBalance
	}

	signed := input.Grams
	if !input.SourceType.IsCredit() {
		signed = signed.Neg()
	}
	next := balance.Add(signed)
	if next.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient balance").
			WithDetails(map[string]any{
				"available": balance.StringFixed(6),
				"requested": input.Grams.StringFixed(6),
			})
	}

	entry := &models.LedgerEntry{
		CustomerID:     input.CustomerID,
		MaterialID:     input.MaterialID,
		SourceType:     input.SourceType,
		SourceRef:      input.SourceRef,
		Grams:          signed,
		RunningBalance: next,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger entry")
	}
	return entry, nil
}

func (s *service) Deposit(ctx context.Context, input DepositInput) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.Append(ctx, tx, AppendInput{
			CustomerID: input.CustomerID,
			MaterialID: input.MaterialID,
			SourceType: enums.LedgerSourceDeposit,
			SourceRef:  input.SourceRef,
			Grams:      input.Grams,
		})
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) CurrentBalance(ctx context.Context, customerID, materialID uuid.UUID) (decimal.Decimal, error) {
	if customerID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if materialID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	latest, err := s.repo.FindLatest(ctx, customerID, materialID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest ledger entry")
	}
	return latest.RunningBalance, nil
}

func (s *service) Holdings(ctx context.Context, customerID uuid.UUID) ([]models.LedgerEntry, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	entries, err := s.repo.ListLatestPerMaterial(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list holdings")
	}
	return entries, nil
}

func (s *service) History(ctx context.Context, input HistoryInput) ([]models.LedgerEntry, *string, error) {
	if input.CustomerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.MaterialID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	var beforeID *int64
	if input.Cursor != nil && *input.Cursor != "" {
		parsed, err := pagination.ParseSeqCursor(*input.Cursor)
		if err != nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
		}
		beforeID = parsed
	}

	entries, err := s.repo.ListByPair(ctx, input.CustomerID, input.MaterialID, beforeID, limit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	var nextCursor *string
	if len(entries) > limit {
		entries = entries[:limit]
		cursor := pagination.EncodeSeqCursor(entries[len(entries)-1].ID)
		nextCursor = &cursor
	}
	return entries, nextCursor, nil
}
