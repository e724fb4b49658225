package redemptions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/internal/ledger"
	"github.com/aurumly/bullion-backend/internal/otp"
	"github.com/aurumly/bullion-backend/internal/rates"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductCatalog resolves redeemable products for grams computation.
type ProductCatalog interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// AddressBook performs ownership-checked address lookups.
type AddressBook interface {
	GetOwned(ctx context.Context, addressID, customerID uuid.UUID) (*models.Address, error)
}

// AssigneeDirectory validates vendor and rider assignment targets.
type AssigneeDirectory interface {
	HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error)
}

// Service drives the OTP-gated redemption state machine: a requested
// redemption debits grams immediately, then moves admin -> vendor -> rider ->
// delivery, with exactly one compensating refund on any rejection branch.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Redemption, error)
	AdminApprove(ctx context.Context, redeemID, vendorID uuid.UUID) (*models.Redemption, error)
	AdminReject(ctx context.Context, redeemID uuid.UUID) (*models.Redemption, error)
	VendorAccept(ctx context.Context, redeemID, vendorID, riderID uuid.UUID) (*models.Redemption, error)
	VendorReject(ctx context.Context, redeemID, vendorID uuid.UUID) (*models.Redemption, error)
	RiderAccept(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error)
	RiderReject(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error)
	MarkOutForDelivery(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error)
	MarkDelivered(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error)
	Cancel(ctx context.Context, redeemID, customerID uuid.UUID) (*models.Redemption, error)
	Get(ctx context.Context, redeemID uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.Redemption, error)
	List(ctx context.Context, actorID uuid.UUID, role enums.UserRole, params pagination.Params) ([]models.Redemption, *string, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	ledger    ledger.Service
	otp       otp.Service
	rates     rates.Service
	catalog   ProductCatalog
	addresses AddressBook
	directory AssigneeDirectory
	logg      *logger.Logger
}

// CreateInput requests a new redemption.
type CreateInput struct {
	CustomerID uuid.UUID
	MaterialID uuid.UUID
	AddressID  uuid.UUID
	OtpCode    string
	Products   []ProductSelection
}

// ProductSelection is one requested catalog item and quantity.
type ProductSelection struct {
	ProductID uuid.UUID
	Quantity  int
}

// NewService wires a redemptions service with the provided dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	ledgerSvc ledger.Service,
	otpSvc otp.Service,
	rateResolver rates.Service,
	catalog ProductCatalog,
	addresses AddressBook,
	directory AssigneeDirectory,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("redemptions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if otpSvc == nil {
		return nil, fmt.Errorf("otp service required")
	}
	if rateResolver == nil {
		return nil, fmt.Errorf("rate resolver required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address book required")
	}
	if directory == nil {
		return nil, fmt.Errorf("assignee directory required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		ledger:    ledgerSvc,
		otp:       otpSvc,
		rates:     rateResolver,
		catalog:   catalog,
		addresses: addresses,
		directory: directory,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Redemption, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.MaterialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	if len(input.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product required")
	}

	seen := make(map[uuid.UUID]struct{}, len(input.Products))
	ids := make([]uuid.UUID, 0, len(input.Products))
	for _, selection := range input.Products {
		if selection.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if selection.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if _, dup := seen[selection.ProductID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in request")
		}
		seen[selection.ProductID] = struct{}{}
		ids = append(ids, selection.ProductID)
	}

	if _, err := s.addresses.GetOwned(ctx, input.AddressID, input.CustomerID); err != nil {
		return nil, err
	}

	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	gramsRedeemed := decimal.Zero
	items := make([]models.RedemptionItem, 0, len(input.Products))
	for _, selection := range input.Products {
		product, ok := byID[selection.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": selection.ProductID.String()})
		}
		if product.MaterialID != input.MaterialID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product belongs to a different material").
				WithDetails(map[string]any{"product_id": product.ID.String()})
		}
		gramsRedeemed = gramsRedeemed.Add(product.WeightInGrams.Mul(decimal.NewFromInt(int64(selection.Quantity))))
		items = append(items, models.RedemptionItem{
			ID:            uuid.New(),
			ProductID:     product.ID,
			Quantity:      selection.Quantity,
			WeightInGrams: product.WeightInGrams,
		})
	}

	// Valuation is informational; a missing live price does not block the
	// redemption.
	valuedAt := decimal.Zero
	if price, found, err := s.rates.LivePrice(ctx, input.MaterialID); err != nil {
		return nil, err
	} else if found {
		valuedAt = gramsRedeemed.Mul(price).Round(2)
	}

	redemption := &models.Redemption{
		ID:            uuid.New(),
		CustomerID:    input.CustomerID,
		MaterialID:    input.MaterialID,
		AddressID:     input.AddressID,
		GramsRedeemed: gramsRedeemed,
		ValuedAt:      valuedAt,
		AdminStatus:   enums.AdminStatusPending,
		VendorStatus:  enums.VendorStatusUnassigned,
		RiderStatus:   enums.RiderStatusUnassigned,
		FlowStatus:    enums.FlowStatusRequested,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// The code is consumed in the same transaction that debits grams:
		// if anything below fails the challenge stays usable.
		if err := s.otp.VerifyInTx(ctx, tx, input.CustomerID, enums.OtpContextPhysicalRedeem, input.OtpCode); err != nil {
			return err
		}

		entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			CustomerID: input.CustomerID,
			MaterialID: input.MaterialID,
			SourceType: enums.LedgerSourceRedeem,
			SourceRef:  &redemption.ID,
			Grams:      gramsRedeemed,
		})
		if err != nil {
			return err
		}
		redemption.GramsBefore = entry.RunningBalance.Add(gramsRedeemed)
		redemption.GramsAfter = entry.RunningBalance

		for i := range items {
			items[i].RedemptionID = redemption.ID
		}
		redemption.Items = items
		if err := s.repo.WithTx(tx).Create(ctx, redemption); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create redemption")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithRedemptionID(ctx, redemption.ID.String()), "redemption requested")
	return redemption, nil
}

func (s *service) AdminApprove(ctx context.Context, redeemID, vendorID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	isVendor, err := s.directory.HasRole(ctx, vendorID, enums.UserRoleVendor)
	if err != nil {
		return nil, err
	}
	if !isVendor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment target is not a vendor")
	}

	return s.applyTransition(ctx, redeemID, adminDecide, nil, map[string]any{
		"admin_status":  enums.AdminStatusApproved,
		"vendor_id":     vendorID,
		"vendor_status": enums.VendorStatusPending,
		"flow_status":   enums.FlowStatusVendorAssigned,
	}, false)
}

func (s *service) AdminReject(ctx context.Context, redeemID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	return s.applyTransition(ctx, redeemID, adminDecide, nil, map[string]any{
		"admin_status": enums.AdminStatusRejected,
		"flow_status":  enums.FlowStatusAdminRejected,
	}, true)
}

func (s *service) VendorAccept(ctx context.Context, redeemID, vendorID, riderID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	if riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider id required")
	}
	isRider, err := s.directory.HasRole(ctx, riderID, enums.UserRoleRider)
	if err != nil {
		return nil, err
	}
	if !isRider {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment target is not a rider")
	}

	return s.applyTransition(ctx, redeemID, vendorDecide, actorCheck(vendorID, actorVendor), map[string]any{
		"vendor_status": enums.VendorStatusApproved,
		"rider_id":      riderID,
		"rider_status":  enums.RiderStatusPending,
		"flow_status":   enums.FlowStatusRiderAssigned,
	}, false)
}

func (s *service) VendorReject(ctx context.Context, redeemID, vendorID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	return s.applyTransition(ctx, redeemID, vendorDecide, actorCheck(vendorID, actorVendor), map[string]any{
		"vendor_status": enums.VendorStatusRejected,
		"flow_status":   enums.FlowStatusCancelled,
	}, true)
}

func (s *service) RiderAccept(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	return s.applyTransition(ctx, redeemID, riderDecide, actorCheck(riderID, actorRider), map[string]any{
		"rider_status": enums.RiderStatusApproved,
	}, false)
}

func (s *service) RiderReject(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	return s.applyTransition(ctx, redeemID, riderDecide, actorCheck(riderID, actorRider), map[string]any{
		"rider_status": enums.RiderStatusRejected,
		"flow_status":  enums.FlowStatusCancelled,
	}, true)
}

func (s *service) MarkOutForDelivery(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	return s.applyTransition(ctx, redeemID, startDelivery, actorCheck(riderID, actorRider), map[string]any{
		"flow_status": enums.FlowStatusOutForDelivery,
	}, false)
}

func (s *service) MarkDelivered(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	return s.applyTransition(ctx, redeemID, completeDelivery, actorCheck(riderID, actorRider), map[string]any{
		"flow_status": enums.FlowStatusDelivered,
	}, false)
}

func (s *service) Cancel(ctx context.Context, redeemID, customerID uuid.UUID) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	return s.applyTransition(ctx, redeemID, customerCancel, actorCheck(customerID, actorCustomer), map[string]any{
		"flow_status": enums.FlowStatusCancelled,
	}, true)
}

type actorKind int

const (
	actorCustomer actorKind = iota
	actorVendor
	actorRider
)

// actorCheck verifies the caller is the party the record names for that role.
func actorCheck(actorID uuid.UUID, kind actorKind) func(*models.Redemption) error {
	return func(r *models.Redemption) error {
		if actorID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
		}
		var assigned bool
		switch kind {
		case actorCustomer:
			assigned = r.CustomerID == actorID
		case actorVendor:
			assigned = r.VendorID != nil && *r.VendorID == actorID
		case actorRider:
			assigned = r.RiderID != nil && *r.RiderID == actorID
		}
		if !assigned {
			return pkgerrors.New(pkgerrors.CodeForbidden, "redemption is not assigned to caller")
		}
		return nil
	}
}

// applyTransition loads the record under a row lock, checks the guard and
// actor, applies the updates, and refunds exactly once when the move is a
// rejection branch. The Refunded flag is flipped in the same statement that
// appends the refund entry, so a repeat can never refund twice.
func (s *service) applyTransition(
	ctx context.Context,
	redeemID uuid.UUID,
	tr transition,
	checkActor func(*models.Redemption) error,
	updates map[string]any,
	refund bool,
) (*models.Redemption, error) {
	var result *models.Redemption
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindByIDForUpdate(ctx, redeemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "redemption not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redemption")
		}
		if checkActor != nil {
			if err := checkActor(record); err != nil {
				return err
			}
		}
		if err := tr.check(record); err != nil {
			return err
		}

		if refund {
			if record.Refunded {
				return pkgerrors.New(pkgerrors.CodeConflict, "redemption already processed")
			}
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				CustomerID: record.CustomerID,
				MaterialID: record.MaterialID,
				SourceType: enums.LedgerSourceRedeemRefund,
				SourceRef:  &record.ID,
				Grams:      record.GramsRedeemed,
			}); err != nil {
				return err
			}
			updates["refunded"] = true
		}

		if err := repo.Update(ctx, record.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update redemption")
		}
		result, err = repo.FindByID(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload redemption")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithRedemptionID(ctx, redeemID.String()), tr.name+" applied")
	return result, nil
}

func (s *service) Get(ctx context.Context, redeemID uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.Redemption, error) {
	if redeemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	record, err := s.repo.FindByID(ctx, redeemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "redemption not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redemption")
	}
	if !visibleTo(record, actorID, role) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "redemption not found")
	}
	return record, nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, role enums.UserRole, params pagination.Params) ([]models.Redemption, *string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	var records []models.Redemption
	switch role {
	case enums.UserRoleCustomer:
		records, err = s.repo.ListByCustomer(ctx, actorID, cursor, limit)
	case enums.UserRoleVendor:
		records, err = s.repo.ListByVendor(ctx, actorID, cursor, limit)
	case enums.UserRoleRider:
		records, err = s.repo.ListByRider(ctx, actorID, cursor, limit)
	case enums.UserRoleAdmin:
		records, err = s.repo.ListAll(ctx, cursor, limit)
	default:
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list redemptions")
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list redemptions")
	}

	var nextCursor *string
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		encoded := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		nextCursor = &encoded
	}
	return records, nextCursor, nil
}

func visibleTo(record *models.Redemption, actorID uuid.UUID, role enums.UserRole) bool {
	switch role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleCustomer:
		return record.CustomerID == actorID
	case enums.UserRoleVendor:
		return record.VendorID != nil && *record.VendorID == actorID
	case enums.UserRoleRider:
		return record.RiderID != nil && *record.RiderID == actorID
	default:
		return false
	}
}
