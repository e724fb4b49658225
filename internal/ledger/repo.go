package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	// LockPair takes a transaction-scoped advisory lock on the pair. The row
	// lock on the newest entry cannot cover a pair's first append (there is
	// no row to lock yet), so concurrent appends serialize here instead.
	LockPair(ctx context.Context, customerID, materialID uuid.UUID) error
	// FindLatestForUpdate loads the newest entry for a customer/material pair
	// with a row lock. Returns gorm.ErrRecordNotFound when the pair has no
	// entries yet.
	FindLatestForUpdate(ctx context.Context, customerID, materialID uuid.UUID) (*models.LedgerEntry, error)
	FindLatest(ctx context.Context, customerID, materialID uuid.UUID) (*models.LedgerEntry, error)
	ListByPair(ctx context.Context, customerID, materialID uuid.UUID, beforeID *int64, limit int) ([]models.LedgerEntry, error)
	ListLatestPerMaterial(ctx context.Context, customerID uuid.UUID) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) LockPair(ctx context.Context, customerID, materialID uuid.UUID) error {
	// No-op outside postgres; the sqlite test store has a single writer.
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	key := customerID.String() + ":" + materialID.String()
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error
}

func (r *repository) FindLatestForUpdate(ctx context.Context, customerID, materialID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND material_id = ?", customerID, materialID).
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindLatest(ctx context.Context, customerID, materialID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND material_id = ?", customerID, materialID).
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByPair(ctx context.Context, customerID, materialID uuid.UUID, beforeID *int64, limit int) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ? AND material_id = ?", customerID, materialID)
	if beforeID != nil {
		query = query.Where("id < ?", *beforeID)
	}
	var entries []models.LedgerEntry
	if err := query.
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListLatestPerMaterial(ctx context.Context, customerID uuid.UUID) ([]models.LedgerEntry, error) {
	// Latest row per material by id; DISTINCT ON would be shorter but this
	// form also runs on sqlite in tests.
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Where("id IN (?)", r.db.Model(&models.LedgerEntry{}).
			Select("MAX(id)").
			Where("customer_id = ?", customerID).
			Group("material_id")).
		Order("material_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
