package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/pkg/enums"
)

// LedgerEntry records one immutable gram-quantity change for a customer and
// material pair. The bigserial id is the ordering key: running_balance of the
// latest entry by id is the pair's current balance. Entries are never updated
// or deleted; corrections append an offsetting entry.
type LedgerEntry struct {
	ID             int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID     uuid.UUID              `gorm:"column:customer_id;type:uuid;not null;index:idx_ledger_pair,priority:1"`
	MaterialID     uuid.UUID              `gorm:"column:material_id;type:uuid;not null;index:idx_ledger_pair,priority:2"`
	SourceType     enums.LedgerSourceType `gorm:"column:source_type;type:ledger_source_type_enum;not null"`
	SourceRef      *uuid.UUID             `gorm:"column:source_ref;type:uuid"`
	Grams          decimal.Decimal        `gorm:"column:grams;type:numeric(20,6);not null"`
	RunningBalance decimal.Decimal        `gorm:"column:running_balance;type:numeric(20,6);not null"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
