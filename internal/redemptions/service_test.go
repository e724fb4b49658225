package redemptions

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
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

const testOtpCode = "123456"

type stubOtp struct {
	failWith error
	verified int
}

func (s *stubOtp) Issue(ctx context.Context, userID uuid.UUID, otpContext enums.OtpContext) (*otp.IssueResult, error) {
	return &otp.IssueResult{}, nil
}

func (s *stubOtp) Verify(ctx context.Context, userID uuid.UUID, otpContext enums.OtpContext, code string) error {
	return s.VerifyInTx(ctx, nil, userID, otpContext, code)
}

func (s *stubOtp) VerifyInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, otpContext enums.OtpContext, code string) error {
	if s.failWith != nil {
		return s.failWith
	}
	if code != testOtpCode {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "invalid code")
	}
	s.verified++
	return nil
}

type stubCatalog struct {
	products map[uuid.UUID]models.Product
}

func (s *stubCatalog) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

type stubAddresses struct {
	owned map[uuid.UUID]uuid.UUID // address -> customer
}

func (s *stubAddresses) GetOwned(ctx context.Context, addressID, customerID uuid.UUID) (*models.Address, error) {
	owner, ok := s.owned[addressID]
	if !ok || owner != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return &models.Address{ID: addressID, CustomerID: customerID}, nil
}

type stubDirectory struct {
	roles map[uuid.UUID]enums.UserRole
}

func (s *stubDirectory) HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error) {
	return s.roles[userID] == role, nil
}

type redeemTxRunner struct {
	db *gorm.DB
}

func (r *redeemTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupRedemptionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS ledger_entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  customer_id TEXT NOT NULL,
  material_id TEXT NOT NULL,
  source_type TEXT NOT NULL,
  source_ref TEXT,
  grams NUMERIC NOT NULL,
  running_balance NUMERIC NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS redemptions (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  material_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  grams_before NUMERIC NOT NULL,
  grams_redeemed NUMERIC NOT NULL,
  grams_after NUMERIC NOT NULL,
  valued_at NUMERIC NOT NULL,
  admin_status TEXT NOT NULL,
  vendor_id TEXT,
  vendor_status TEXT NOT NULL,
  rider_id TEXT,
  rider_status TEXT NOT NULL,
  flow_status TEXT NOT NULL,
  refunded INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS redemption_items (
  id TEXT PRIMARY KEY,
  redemption_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  weight_in_grams NUMERIC NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type fixture struct {
	db         *gorm.DB
	svc        Service
	ledger     ledger.Service
	otp        *stubOtp
	customerID uuid.UUID
	materialID uuid.UUID
	addressID  uuid.UUID
	vendorID   uuid.UUID
	riderID    uuid.UUID
	coinID     uuid.UUID
	barID      uuid.UUID
}

func g(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupRedemptionsTestDB(t)
	runner := &redeemTxRunner{db: db}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), runner)
	require.NoError(t, err)

	f := &fixture{
		db:         db,
		ledger:     ledgerSvc,
		otp:        &stubOtp{},
		customerID: uuid.New(),
		materialID: uuid.New(),
		addressID:  uuid.New(),
		vendorID:   uuid.New(),
		riderID:    uuid.New(),
		coinID:     uuid.New(),
		barID:      uuid.New(),
	}

	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{
		f.coinID: {ID: f.coinID, MaterialID: f.materialID, Name: "coin 2g", WeightInGrams: g("2.0")},
		f.barID:  {ID: f.barID, MaterialID: f.materialID, Name: "bar 10g", WeightInGrams: g("10.0")},
	}}
	addresses := &stubAddresses{owned: map[uuid.UUID]uuid.UUID{f.addressID: f.customerID}}
	directory := &stubDirectory{roles: map[uuid.UUID]enums.UserRole{
		f.vendorID: enums.UserRoleVendor,
		f.riderID:  enums.UserRoleRider,
	}}
	rateResolver := newLiveRates(t, db)

	logg := logger.New(logger.Options{ServiceName: "redemptions-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), runner, ledgerSvc, f.otp, rateResolver, catalog, addresses, directory, logg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// newLiveRates backs the valuation lookup with the real rates service over
// the shared sqlite handle.
func newLiveRates(t *testing.T, db *gorm.DB) rates.Service {
	t.Helper()

	metalRates := `
CREATE TABLE IF NOT EXISTS metal_rates (
  id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL,
  price_per_gram NUMERIC NOT NULL,
  is_latest INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	taxRates := `
CREATE TABLE IF NOT EXISTS tax_rates (
  id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL,
  tax_on TEXT NOT NULL,
  percentage NUMERIC NOT NULL,
  effective_date DATETIME NOT NULL,
  created_at DATETIME
);`
	serviceFeeRates := `
CREATE TABLE IF NOT EXISTS service_fee_rates (
  id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL,
  percentage NUMERIC NOT NULL,
  effective_date DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(metalRates).Error)
	require.NoError(t, db.Exec(taxRates).Error)
	require.NoError(t, db.Exec(serviceFeeRates).Error)

	svc, err := rates.NewService(rates.NewRepository(db), &redeemTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func (f *fixture) deposit(t *testing.T, grams string) {
	t.Helper()

	_, err := f.ledger.Deposit(context.Background(), ledger.DepositInput{
		CustomerID: f.customerID,
		MaterialID: f.materialID,
		Grams:      g(grams),
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()

	balance, err := f.ledger.CurrentBalance(context.Background(), f.customerID, f.materialID)
	require.NoError(t, err)
	return balance
}

func (f *fixture) create(t *testing.T, selections ...ProductSelection) *models.Redemption {
	t.Helper()

	record, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: f.customerID,
		MaterialID: f.materialID,
		AddressID:  f.addressID,
		OtpCode:    testOtpCode,
		Products:   selections,
	})
	require.NoError(t, err)
	return record
}

func TestCreateDebitsGramsAndSnapshotsItems(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "20.0")

	record := f.create(t,
		ProductSelection{ProductID: f.coinID, Quantity: 2},
		ProductSelection{ProductID: f.barID, Quantity: 1},
	)

	assert.True(t, record.GramsRedeemed.Equal(g("14.0")))
	assert.True(t, record.GramsBefore.Equal(g("20.0")))
	assert.True(t, record.GramsAfter.Equal(g("6.0")))
	assert.Equal(t, enums.FlowStatusRequested, record.FlowStatus)
	assert.Equal(t, enums.AdminStatusPending, record.AdminStatus)
	assert.Equal(t, enums.VendorStatusUnassigned, record.VendorStatus)
	require.Len(t, record.Items, 2)
	assert.True(t, f.balance(t).Equal(g("6.0")))
	assert.Equal(t, 1, f.otp.verified)

	var entry models.LedgerEntry
	require.NoError(t, f.db.Where("customer_id = ? AND source_type = ?", f.customerID, enums.LedgerSourceRedeem).First(&entry).Error)
	require.NotNil(t, entry.SourceRef)
	assert.Equal(t, record.ID, *entry.SourceRef)
	assert.True(t, entry.Grams.Equal(g("-14.0")))
}

func TestCreateValuesAtLivePrice(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")

	rateResolver := newLiveRates(t, f.db)
	_, err := rateResolver.SetLivePrice(context.Background(), rates.SetLivePriceInput{
		MaterialID:   f.materialID,
		PricePerGram: g("6000.00"),
	})
	require.NoError(t, err)

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})
	assert.True(t, record.ValuedAt.Equal(g("12000.00")), "got %s", record.ValuedAt)
}

func TestCreateRejectsInsufficientGrams(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: f.customerID,
		MaterialID: f.materialID,
		AddressID:  f.addressID,
		OtpCode:    testOtpCode,
		Products:   []ProductSelection{{ProductID: f.barID, Quantity: 2}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	assert.True(t, f.balance(t).Equal(g("10.0")))
	var count int64
	require.NoError(t, f.db.Model(&models.Redemption{}).Where("customer_id = ?", f.customerID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateAbortsOnBadOtpBeforeLedger(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: f.customerID,
		MaterialID: f.materialID,
		AddressID:  f.addressID,
		OtpCode:    "000000",
		Products:   []ProductSelection{{ProductID: f.coinID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	assert.True(t, f.balance(t).Equal(g("10.0")))
}

func TestCreateValidatesProducts(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "100.0")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{
		CustomerID: f.customerID,
		MaterialID: f.materialID,
		AddressID:  f.addressID,
		OtpCode:    testOtpCode,
		Products: []ProductSelection{
			{ProductID: f.coinID, Quantity: 1},
			{ProductID: f.coinID, Quantity: 2},
		},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "duplicate product ids")

	_, err = f.svc.Create(ctx, CreateInput{
		CustomerID: f.customerID,
		MaterialID: f.materialID,
		AddressID:  f.addressID,
		OtpCode:    testOtpCode,
		Products:   []ProductSelection{{ProductID: f.coinID, Quantity: 0}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "zero quantity")

	_, err = f.svc.Create(ctx, CreateInput{
		CustomerID: f.customerID,
		MaterialID: f.materialID,
		AddressID:  f.addressID,
		OtpCode:    testOtpCode,
		Products:   []ProductSelection{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "unknown product")

	_, err = f.svc.Create(ctx, CreateInput{
		CustomerID: f.customerID,
		MaterialID: uuid.New(),
		AddressID:  f.addressID,
		OtpCode:    testOtpCode,
		Products:   []ProductSelection{{ProductID: f.coinID, Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "material mismatch")

	_, err = f.svc.Create(ctx, CreateInput{
		CustomerID: uuid.New(),
		MaterialID: f.materialID,
		AddressID:  f.addressID,
		OtpCode:    testOtpCode,
		Products:   []ProductSelection{{ProductID: f.coinID, Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "address owned by someone else")
}

func TestAdminRejectRefundsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")
	ctx := context.Background()

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})
	require.True(t, f.balance(t).Equal(g("8.0")))

	rejected, err := f.svc.AdminReject(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AdminStatusRejected, rejected.AdminStatus)
	assert.Equal(t, enums.FlowStatusAdminRejected, rejected.FlowStatus)
	assert.True(t, rejected.Refunded)
	assert.True(t, f.balance(t).Equal(g("10.0")))

	_, err = f.svc.AdminReject(ctx, record.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.True(t, f.balance(t).Equal(g("10.0")), "second reject must not refund again")
}

func TestFullDeliveryFlow(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")
	ctx := context.Background()

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})

	approved, err := f.svc.AdminApprove(ctx, record.ID, f.vendorID)
	require.NoError(t, err)
	assert.Equal(t, enums.FlowStatusVendorAssigned, approved.FlowStatus)
	assert.Equal(t, enums.VendorStatusPending, approved.VendorStatus)
	require.NotNil(t, approved.VendorID)
	assert.Equal(t, f.vendorID, *approved.VendorID)

	assigned, err := f.svc.VendorAccept(ctx, record.ID, f.vendorID, f.riderID)
	require.NoError(t, err)
	assert.Equal(t, enums.FlowStatusRiderAssigned, assigned.FlowStatus)
	assert.Equal(t, enums.VendorStatusApproved, assigned.VendorStatus)
	assert.Equal(t, enums.RiderStatusPending, assigned.RiderStatus)

	accepted, err := f.svc.RiderAccept(ctx, record.ID, f.riderID)
	require.NoError(t, err)
	assert.Equal(t, enums.RiderStatusApproved, accepted.RiderStatus)

	out, err := f.svc.MarkOutForDelivery(ctx, record.ID, f.riderID)
	require.NoError(t, err)
	assert.Equal(t, enums.FlowStatusOutForDelivery, out.FlowStatus)

	delivered, err := f.svc.MarkDelivered(ctx, record.ID, f.riderID)
	require.NoError(t, err)
	assert.Equal(t, enums.FlowStatusDelivered, delivered.FlowStatus)
	assert.False(t, delivered.Refunded)
	assert.True(t, f.balance(t).Equal(g("8.0")), "delivered redemption keeps the debit")
}

func TestOutOfOrderTransitionsRejected(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")
	ctx := context.Background()

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})

	_, err := f.svc.MarkDelivered(ctx, record.ID, f.riderID)
	require.Error(t, err)

	_, err = f.svc.VendorAccept(ctx, record.ID, f.vendorID, f.riderID)
	require.Error(t, err)

	_, err = f.svc.RiderAccept(ctx, record.ID, f.riderID)
	require.Error(t, err)

	// After admin approval the admin decision is spent.
	_, err = f.svc.AdminApprove(ctx, record.ID, f.vendorID)
	require.NoError(t, err)
	_, err = f.svc.AdminApprove(ctx, record.ID, f.vendorID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestVendorRejectRefunds(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")
	ctx := context.Background()

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})
	_, err := f.svc.AdminApprove(ctx, record.ID, f.vendorID)
	require.NoError(t, err)

	rejected, err := f.svc.VendorReject(ctx, record.ID, f.vendorID)
	require.NoError(t, err)
	assert.Equal(t, enums.FlowStatusCancelled, rejected.FlowStatus)
	assert.Equal(t, enums.VendorStatusRejected, rejected.VendorStatus)
	assert.True(t, f.balance(t).Equal(g("10.0")))

	_, err = f.svc.VendorReject(ctx, record.ID, f.vendorID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRiderRejectRefunds(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")
	ctx := context.Background()

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})
	_, err := f.svc.AdminApprove(ctx, record.ID, f.vendorID)
	require.NoError(t, err)
	_, err = f.svc.VendorAccept(ctx, record.ID, f.vendorID, f.riderID)
	require.NoError(t, err)

	rejected, err := f.svc.RiderReject(ctx, record.ID, f.riderID)
	require.NoError(t, err)
	assert.Equal(t, enums.FlowStatusCancelled, rejected.FlowStatus)
	assert.True(t, f.balance(t).Equal(g("10.0")))
}

func TestVendorActorMustMatchAssignment(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")
	ctx := context.Background()

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})
	_, err := f.svc.AdminApprove(ctx, record.ID, f.vendorID)
	require.NoError(t, err)

	_, err = f.svc.VendorReject(ctx, record.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCancelOnlyWhileRequested(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")
	ctx := context.Background()

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})

	cancelled, err := f.svc.Cancel(ctx, record.ID, f.customerID)
	require.NoError(t, err)
	assert.Equal(t, enums.FlowStatusCancelled, cancelled.FlowStatus)
	assert.True(t, f.balance(t).Equal(g("10.0")))

	second := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})
	_, err = f.svc.AdminApprove(ctx, second.ID, f.vendorID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, second.ID, f.customerID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListScopedByRole(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "100.0")
	ctx := context.Background()

	first := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})
	f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})
	_, err := f.svc.AdminApprove(ctx, first.ID, f.vendorID)
	require.NoError(t, err)

	mine, _, err := f.svc.List(ctx, f.customerID, enums.UserRoleCustomer, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	assignedToVendor, _, err := f.svc.List(ctx, f.vendorID, enums.UserRoleVendor, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, assignedToVendor, 1)

	assignedToRider, _, err := f.svc.List(ctx, f.riderID, enums.UserRoleRider, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, assignedToRider)

	all, _, err := f.svc.List(ctx, uuid.New(), enums.UserRoleAdmin, pagination.Params{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 2)

	strangers, _, err := f.svc.List(ctx, uuid.New(), enums.UserRoleCustomer, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, strangers)
}

func TestGetScopedByRole(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "10.0")
	ctx := context.Background()

	record := f.create(t, ProductSelection{ProductID: f.coinID, Quantity: 1})

	got, err := f.svc.Get(ctx, record.ID, f.customerID, enums.UserRoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)

	_, err = f.svc.Get(ctx, record.ID, uuid.New(), enums.UserRoleCustomer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Get(ctx, record.ID, uuid.New(), enums.UserRoleAdmin)
	require.NoError(t, err)
}
