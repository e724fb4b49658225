package redemptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

// Repository manages persistence for redemptions and their item snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, redemption *models.Redemption) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error)
	// FindByIDForUpdate locks the record so decision and refund updates
	// serialize; the refund guard depends on it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Redemption, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Redemption, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Redemption, error)
	ListByRider(ctx context.Context, riderID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Redemption, error)
	ListAll(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Redemption, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a redemptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, redemption *models.Redemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	var redemption models.Redemption
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&redemption, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	var redemption models.Redemption
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&redemption, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.Redemption, error) {
	query := scope(r.db.WithContext(ctx).Preload("Items"))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var records []models.Redemption
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Redemption, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("customer_id = ?", customerID)
	}, cursor, limit)
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Redemption, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("vendor_id = ?", vendorID)
	}, cursor, limit)
}

func (r *repository) ListByRider(ctx context.Context, riderID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Redemption, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("rider_id = ?", riderID)
	}, cursor, limit)
}

func (r *repository) ListAll(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Redemption, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB { return q }, cursor, limit)
}
