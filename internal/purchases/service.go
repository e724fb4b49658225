package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/internal/ledger"
	"github.com/aurumly/bullion-backend/internal/rates"
	"github.com/aurumly/bullion-backend/pkg/config"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/metrics"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the two-step purchase pipeline: a time-boxed Preview quote,
// then a Commit that re-derives the quote and only persists when nothing
// drifted in between.
type Service interface {
	Preview(ctx context.Context, input PreviewInput) (*Quote, error)
	Commit(ctx context.Context, input CommitInput) (*models.Purchase, error)
	Get(ctx context.Context, customerID, purchaseID uuid.UUID) (*models.Purchase, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Purchase, *string, error)
}

type service struct {
	repo    Repository
	rates   rates.Service
	ledger  ledger.Service
	tx      txRunner
	window  time.Duration
	metrics *metrics.PipelineMetrics
	now     func() time.Time
}

// PreviewInput requests a purchase quote.
type PreviewInput struct {
	CustomerID uuid.UUID
	MaterialID uuid.UUID
	Amount     decimal.Decimal
}

// CommitInput carries the preview values back for verification. Every rate
// the quote embedded must match what the store resolves now.
type CommitInput struct {
	CustomerID     uuid.UUID
	MaterialID     uuid.UUID
	Amount         decimal.Decimal
	PricePerGram   decimal.Decimal
	MaterialTaxPct decimal.Decimal
	ServiceTaxPct  decimal.Decimal
	ServiceFeePct  decimal.Decimal
	TotalAmount    decimal.Decimal
	GeneratedAt    time.Time
}

// NewService wires a purchases service with the provided dependencies.
func NewService(repo Repository, rateResolver rates.Service, ledgerSvc ledger.Service, tx txRunner, cfg config.PurchaseConfig, pipeline *metrics.PipelineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if rateResolver == nil {
		return nil, fmt.Errorf("rate resolver required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	window := cfg.PreviewWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &service{
		repo:    repo,
		rates:   rateResolver,
		ledger:  ledgerSvc,
		tx:      tx,
		window:  window,
		metrics: pipeline,
		now:     time.Now,
	}, nil
}

func (s *service) resolveRates(ctx context.Context, materialID uuid.UUID, asOf time.Time) (RateInputs, error) {
	var missing []string

	price, found, err := s.rates.LivePrice(ctx, materialID)
	if err != nil {
		return RateInputs{}, err
	}
	if !found {
		missing = append(missing, "live_price")
	}

	materialTax, found, err := s.rates.TaxRate(ctx, materialID, asOf, enums.TaxOnMaterial)
	if err != nil {
		return RateInputs{}, err
	}
	if !found {
		missing = append(missing, "material_tax_rate")
	}

	serviceTax, found, err := s.rates.TaxRate(ctx, materialID, asOf, enums.TaxOnService)
	if err != nil {
		return RateInputs{}, err
	}
	if !found {
		missing = append(missing, "service_tax_rate")
	}

	serviceFee, found, err := s.rates.ServiceFeeRate(ctx, materialID, asOf)
	if err != nil {
		return RateInputs{}, err
	}
	if !found {
		missing = append(missing, "service_fee_rate")
	}

	if len(missing) > 0 {
		return RateInputs{}, pkgerrors.New(pkgerrors.CodeBusinessRule, "rate unavailable").
			WithDetails(map[string]any{"missing": missing})
	}
	return RateInputs{
		PricePerGram:   price,
		MaterialTaxPct: materialTax,
		ServiceTaxPct:  serviceTax,
		ServiceFeePct:  serviceFee,
	}, nil
}

func (s *service) Preview(ctx context.Context, input PreviewInput) (*Quote, error) {
	started := s.now()
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.MaterialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	resolved, err := s.resolveRates(ctx, input.MaterialID, started)
	if err != nil {
		s.metrics.IncRejected("preview", rejectionReason(err))
		return nil, err
	}

	quote := computeQuote(input.Amount, resolved)
	quote.MaterialID = input.MaterialID
	quote.GeneratedAt = started

	s.metrics.IncCompleted("preview")
	s.metrics.ObserveDuration("preview", s.now().Sub(started))
	return &quote, nil
}

func (s *service) Commit(ctx context.Context, input CommitInput) (*models.Purchase, error) {
	started := s.now()
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.MaterialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.GeneratedAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preview timestamp required")
	}

	if started.Sub(input.GeneratedAt) > s.window {
		err := pkgerrors.New(pkgerrors.CodeBusinessRule, "preview expired")
		s.metrics.IncRejected("commit", "preview_expired")
		return nil, err
	}

	resolved, err := s.resolveRates(ctx, input.MaterialID, started)
	if err != nil {
		s.metrics.IncRejected("commit", rejectionReason(err))
		return nil, err
	}

	if drift := rateDrift(input, resolved); len(drift) > 0 {
		s.metrics.IncRejected("commit", "rate_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "rates changed since preview").
			WithDetails(map[string]any{"drift": drift})
	}

	quote := computeQuote(input.Amount, resolved)
	if !quote.TotalAmount.Equal(input.TotalAmount) {
		s.metrics.IncRejected("commit", "total_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "declared total does not match computed total").
			WithDetails(map[string]any{
				"declared": input.TotalAmount.StringFixed(2),
				"computed": quote.TotalAmount.StringFixed(2),
			})
	}

	purchase := &models.Purchase{
		ID:             uuid.New(),
		CustomerID:     input.CustomerID,
		MaterialID:     input.MaterialID,
		Amount:         quote.Amount,
		PricePerGram:   quote.PricePerGram,
		GramsPurchased: quote.Grams,
		TaxOnMaterial:  quote.TaxOnMaterial,
		TaxOnService:   quote.TaxOnService,
		ServiceFee:     quote.ServiceFee,
		TotalAmount:    quote.TotalAmount,
		Status:         enums.PurchaseStatusCompleted,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
		}
		_, appendErr := s.ledger.Append(ctx, tx, ledger.AppendInput{
			CustomerID: input.CustomerID,
			MaterialID: input.MaterialID,
			SourceType: enums.LedgerSourcePurchase,
			SourceRef:  &purchase.ID,
			Grams:      quote.Grams,
		})
		return appendErr
	})
	if err != nil {
		s.metrics.IncRejected("commit", rejectionReason(err))
		return nil, err
	}

	s.metrics.IncCompleted("commit")
	s.metrics.ObserveDuration("commit", s.now().Sub(started))
	return purchase, nil
}

func (s *service) Get(ctx context.Context, customerID, purchaseID uuid.UUID) (*models.Purchase, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if purchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	purchase, err := s.repo.FindByID(ctx, purchaseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	if purchase.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	return purchase, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Purchase, *string, error) {
	if customerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	records, err := s.repo.ListByCustomer(ctx, customerID, cursor, limit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
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

// rateDrift compares the rates embedded in a preview against freshly resolved
// ones and reports each field that moved.
func rateDrift(input CommitInput, current RateInputs) map[string]map[string]string {
	drift := map[string]map[string]string{}
	compare := func(name string, declared, resolved decimal.Decimal) {
		if !declared.Equal(resolved) {
			drift[name] = map[string]string{
				"declared": declared.String(),
				"current":  resolved.String(),
				"delta":    resolved.Sub(declared).String(),
			}
		}
	}
	compare("price_per_gram", input.PricePerGram, current.PricePerGram)
	compare("material_tax_rate", input.MaterialTaxPct, current.MaterialTaxPct)
	compare("service_tax_rate", input.ServiceTaxPct, current.ServiceTaxPct)
	compare("service_fee_rate", input.ServiceFeePct, current.ServiceFeePct)
	if len(drift) == 0 {
		return nil
	}
	return drift
}

func rejectionReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return "internal"
}
