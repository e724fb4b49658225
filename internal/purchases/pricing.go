package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateInputs are the resolved percentages and price a quote is computed from.
type RateInputs struct {
	PricePerGram   decimal.Decimal
	MaterialTaxPct decimal.Decimal
	ServiceTaxPct  decimal.Decimal
	ServiceFeePct  decimal.Decimal
}

// Quote is a time-boxed purchase preview. Commit must reproduce TotalAmount
// byte-for-byte from the same rate inputs, so every intermediate here is
// rounded before it is summed.
type Quote struct {
	MaterialID     uuid.UUID       `json:"material_id"`
	Amount         decimal.Decimal `json:"amount"`
	PricePerGram   decimal.Decimal `json:"price_per_gram"`
	MaterialTaxPct decimal.Decimal `json:"material_tax_rate"`
	ServiceTaxPct  decimal.Decimal `json:"service_tax_rate"`
	ServiceFeePct  decimal.Decimal `json:"service_fee_rate"`
	Grams          decimal.Decimal `json:"grams"`
	TaxOnMaterial  decimal.Decimal `json:"tax_on_material"`
	TaxOnService   decimal.Decimal `json:"tax_on_service"`
	ServiceFee     decimal.Decimal `json:"service_fee"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

var oneHundred = decimal.NewFromInt(100)

// computeQuote derives the full pricing breakdown from an amount and resolved
// rates. Grams round to 6 decimals; every money figure rounds to 2 decimals
// before entering the total.
func computeQuote(amount decimal.Decimal, rates RateInputs) Quote {
	grams := amount.DivRound(rates.PricePerGram, 6)
	serviceFee := amount.Mul(rates.ServiceFeePct).Div(oneHundred).Round(2)
	taxOnMaterial := amount.Mul(rates.MaterialTaxPct).Div(oneHundred).Round(2)
	taxOnService := serviceFee.Mul(rates.ServiceTaxPct).Div(oneHundred).Round(2)
	total := amount.Add(taxOnMaterial).Add(taxOnService).Add(serviceFee)

	return Quote{
		Amount:         amount,
		PricePerGram:   rates.PricePerGram,
		MaterialTaxPct: rates.MaterialTaxPct,
		ServiceTaxPct:  rates.ServiceTaxPct,
		ServiceFeePct:  rates.ServiceFeePct,
		Grams:          grams,
		TaxOnMaterial:  taxOnMaterial,
		TaxOnService:   taxOnService,
		ServiceFee:     serviceFee,
		TotalAmount:    total,
	}
}
