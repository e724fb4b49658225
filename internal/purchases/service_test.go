package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/internal/ledger"
	"github.com/aurumly/bullion-backend/internal/rates"
	"github.com/aurumly/bullion-backend/pkg/config"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type stubRates struct {
	price       decimal.Decimal
	priceFound  bool
	materialTax decimal.Decimal
	serviceTax  decimal.Decimal
	serviceFee  decimal.Decimal
	ratesFound  bool
}

func (s *stubRates) LivePrice(ctx context.Context, materialID uuid.UUID) (decimal.Decimal, bool, error) {
	return s.price, s.priceFound, nil
}

func (s *stubRates) TaxRate(ctx context.Context, materialID uuid.UUID, asOf time.Time, taxOn enums.TaxOn) (decimal.Decimal, bool, error) {
	if taxOn == enums.TaxOnMaterial {
		return s.materialTax, s.ratesFound, nil
	}
	return s.serviceTax, s.ratesFound, nil
}

func (s *stubRates) ServiceFeeRate(ctx context.Context, materialID uuid.UUID, asOf time.Time) (decimal.Decimal, bool, error) {
	return s.serviceFee, s.ratesFound, nil
}

func (s *stubRates) SetLivePrice(ctx context.Context, input rates.SetLivePriceInput) (*models.MetalRate, error) {
	return nil, nil
}

func (s *stubRates) AddTaxRate(ctx context.Context, input rates.AddTaxRateInput) (*models.TaxRate, error) {
	return nil, nil
}

func (s *stubRates) AddServiceFeeRate(ctx context.Context, input rates.AddServiceFeeRateInput) (*models.ServiceFeeRate, error) {
	return nil, nil
}

func (s *stubRates) PriceHistory(ctx context.Context, materialID uuid.UUID, limit int) ([]models.MetalRate, error) {
	return nil, nil
}

func healthyRates() *stubRates {
	return &stubRates{
		price:       d("6000.00"),
		priceFound:  true,
		materialTax: d("3.00"),
		serviceTax:  d("18.00"),
		serviceFee:  d("2.50"),
		ratesFound:  true,
	}
}

func setupPurchasesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	purchases := `
CREATE TABLE IF NOT EXISTS purchases (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  material_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  price_per_gram NUMERIC NOT NULL,
  grams_purchased NUMERIC NOT NULL,
  tax_on_material NUMERIC NOT NULL,
  tax_on_service NUMERIC NOT NULL,
  service_fee NUMERIC NOT NULL,
  total_amount NUMERIC NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME
);`
	ledgerEntries := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  customer_id TEXT NOT NULL,
  material_id TEXT NOT NULL,
  source_type TEXT NOT NULL,
  source_ref TEXT,
  grams NUMERIC NOT NULL,
  running_balance NUMERIC NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(purchases).Error)
	require.NoError(t, db.Exec(ledgerEntries).Error)
	return db
}

type purchasesTxRunner struct {
	db *gorm.DB
}

func (r *purchasesTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newPurchasesService(t *testing.T, db *gorm.DB, rateResolver rates.Service) Service {
	t.Helper()

	runner := &purchasesTxRunner{db: db}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), runner)
	require.NoError(t, err)

	svc, err := NewService(NewRepository(db), rateResolver, ledgerSvc, runner, config.PurchaseConfig{PreviewWindow: 5 * time.Minute}, nil)
	require.NoError(t, err)
	return svc
}

func TestPreviewThenCommitAppendsLedger(t *testing.T) {
	db := setupPurchasesTestDB(t)
	svc := newPurchasesService(t, db, healthyRates())
	ctx := context.Background()

	customerID := uuid.New()
	materialID := uuid.New()

	quote, err := svc.Preview(ctx, PreviewInput{
		CustomerID: customerID,
		MaterialID: materialID,
		Amount:     d("10000.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "10595.00", quote.TotalAmount.StringFixed(2))
	assert.False(t, quote.GeneratedAt.IsZero())

	purchase, err := svc.Commit(ctx, CommitInput{
		CustomerID:     customerID,
		MaterialID:     materialID,
		Amount:         quote.Amount,
		PricePerGram:   quote.PricePerGram,
		MaterialTaxPct: quote.MaterialTaxPct,
		ServiceTaxPct:  quote.ServiceTaxPct,
		ServiceFeePct:  quote.ServiceFeePct,
		TotalAmount:    quote.TotalAmount,
		GeneratedAt:    quote.GeneratedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusCompleted, purchase.Status)
	assert.True(t, purchase.GramsPurchased.Equal(d("1.666667")))

	var entry models.LedgerEntry
	require.NoError(t, db.Where("customer_id = ?", customerID).First(&entry).Error)
	assert.Equal(t, enums.LedgerSourcePurchase, entry.SourceType)
	require.NotNil(t, entry.SourceRef)
	assert.Equal(t, purchase.ID, *entry.SourceRef)
	assert.True(t, entry.RunningBalance.Equal(d("1.666667")))
}

func TestPreviewRejectsMissingRates(t *testing.T) {
	db := setupPurchasesTestDB(t)
	missing := healthyRates()
	missing.ratesFound = false
	svc := newPurchasesService(t, db, missing)

	_, err := svc.Preview(context.Background(), PreviewInput{
		CustomerID: uuid.New(),
		MaterialID: uuid.New(),
		Amount:     d("100.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
}

func TestCommitRejectsExpiredPreview(t *testing.T) {
	db := setupPurchasesTestDB(t)
	svc := newPurchasesService(t, db, healthyRates())

	_, err := svc.Commit(context.Background(), CommitInput{
		CustomerID:     uuid.New(),
		MaterialID:     uuid.New(),
		Amount:         d("100.00"),
		PricePerGram:   d("6000.00"),
		MaterialTaxPct: d("3.00"),
		ServiceTaxPct:  d("18.00"),
		ServiceFeePct:  d("2.50"),
		TotalAmount:    d("105.54"),
		GeneratedAt:    time.Now().Add(-6 * time.Minute),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	assert.Contains(t, err.Error(), "preview expired")
}

func TestCommitRejectsRateDrift(t *testing.T) {
	db := setupPurchasesTestDB(t)
	resolver := healthyRates()
	svc := newPurchasesService(t, db, resolver)
	ctx := context.Background()

	customerID := uuid.New()
	materialID := uuid.New()

	quote, err := svc.Preview(ctx, PreviewInput{
		CustomerID: customerID,
		MaterialID: materialID,
		Amount:     d("10000.00"),
	})
	require.NoError(t, err)

	// Admin moves the live price between preview and commit.
	resolver.price = d("6100.00")

	_, err = svc.Commit(ctx, CommitInput{
		CustomerID:     customerID,
		MaterialID:     materialID,
		Amount:         quote.Amount,
		PricePerGram:   quote.PricePerGram,
		MaterialTaxPct: quote.MaterialTaxPct,
		ServiceTaxPct:  quote.ServiceTaxPct,
		ServiceFeePct:  quote.ServiceFeePct,
		TotalAmount:    quote.TotalAmount,
		GeneratedAt:    quote.GeneratedAt,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	assert.Contains(t, err.Error(), "rates changed")

	var count int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Where("customer_id = ?", customerID).Count(&count).Error)
	assert.Zero(t, count, "rejected commit must not touch the ledger")
}

func TestCommitRejectsTamperedTotal(t *testing.T) {
	db := setupPurchasesTestDB(t)
	svc := newPurchasesService(t, db, healthyRates())
	ctx := context.Background()

	customerID := uuid.New()
	materialID := uuid.New()

	quote, err := svc.Preview(ctx, PreviewInput{
		CustomerID: customerID,
		MaterialID: materialID,
		Amount:     d("10000.00"),
	})
	require.NoError(t, err)

	_, err = svc.Commit(ctx, CommitInput{
		CustomerID:     customerID,
		MaterialID:     materialID,
		Amount:         quote.Amount,
		PricePerGram:   quote.PricePerGram,
		MaterialTaxPct: quote.MaterialTaxPct,
		ServiceTaxPct:  quote.ServiceTaxPct,
		ServiceFeePct:  quote.ServiceFeePct,
		TotalAmount:    quote.TotalAmount.Sub(d("100.00")),
		GeneratedAt:    quote.GeneratedAt,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	assert.Contains(t, err.Error(), "total")
}

func TestListPurchasesPaginates(t *testing.T) {
	db := setupPurchasesTestDB(t)
	svc := newPurchasesService(t, db, healthyRates())
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		record := &models.Purchase{
			ID:             uuid.New(),
			CustomerID:     customerID,
			MaterialID:     uuid.New(),
			Amount:         d("100.00"),
			PricePerGram:   d("6000.00"),
			GramsPurchased: d("0.016667"),
			TaxOnMaterial:  d("3.00"),
			TaxOnService:   d("0.45"),
			ServiceFee:     d("2.50"),
			TotalAmount:    d("105.95"),
			Status:         enums.PurchaseStatusCompleted,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(record).Error)
	}

	page1, next, err := svc.List(ctx, customerID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotNil(t, next)

	page2, next2, err := svc.List(ctx, customerID, pagination.Params{Limit: 3, Cursor: *next})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Nil(t, next2)
	assert.True(t, page1[0].CreatedAt.After(page2[0].CreatedAt))
}
