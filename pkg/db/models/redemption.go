package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/pkg/enums"
)

// Redemption is one instance of the physical delivery state machine. Grams
// are debited from the ledger at creation time, not at delivery; rejection on
// any branch appends a compensating redeem_refund entry exactly once.
type Redemption struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID    uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	MaterialID    uuid.UUID          `gorm:"column:material_id;type:uuid;not null"`
	AddressID     uuid.UUID          `gorm:"column:address_id;type:uuid;not null"`
	GramsBefore   decimal.Decimal    `gorm:"column:grams_before;type:numeric(20,6);not null"`
	GramsRedeemed decimal.Decimal    `gorm:"column:grams_redeemed;type:numeric(20,6);not null"`
	GramsAfter    decimal.Decimal    `gorm:"column:grams_after;type:numeric(20,6);not null"`
	ValuedAt      decimal.Decimal    `gorm:"column:valued_at;type:numeric(20,2);not null"`
	AdminStatus   enums.AdminStatus  `gorm:"column:admin_status;type:admin_status_enum;not null"`
	VendorID      *uuid.UUID         `gorm:"column:vendor_id;type:uuid;index"`
	VendorStatus  enums.VendorStatus `gorm:"column:vendor_status;type:vendor_status_enum;not null"`
	RiderID       *uuid.UUID         `gorm:"column:rider_id;type:uuid;index"`
	RiderStatus   enums.RiderStatus  `gorm:"column:rider_status;type:rider_status_enum;not null"`
	FlowStatus    enums.FlowStatus   `gorm:"column:flow_status;type:flow_status_enum;not null"`
	Refunded      bool               `gorm:"column:refunded;not null;default:false"`
	Items         []RedemptionItem   `gorm:"foreignKey:RedemptionID"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Redemption) TableName() string {
	return "redemptions"
}

// RedemptionItem snapshots one requested product and its unit weight at
// request time, so later catalog edits cannot change what was reserved.
type RedemptionItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RedemptionID  uuid.UUID       `gorm:"column:redemption_id;type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	WeightInGrams decimal.Decimal `gorm:"column:weight_in_grams;type:numeric(20,6);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (RedemptionItem) TableName() string {
	return "redemption_items"
}
