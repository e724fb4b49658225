package rates

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/api/responses"
	"github.com/aurumly/bullion-backend/api/validators"
	internalrates "github.com/aurumly/bullion-backend/internal/rates"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
)

type setLivePriceRequest struct {
	MaterialID   string `json:"material_id" validate:"required,uuid"`
	PricePerGram string `json:"price_per_gram" validate:"required"`
}

type addTaxRateRequest struct {
	MaterialID    string    `json:"material_id" validate:"required,uuid"`
	TaxOn         string    `json:"tax_on" validate:"required,oneof=material service"`
	Percentage    string    `json:"percentage" validate:"required"`
	EffectiveDate time.Time `json:"effective_date" validate:"required"`
}

type addServiceFeeRateRequest struct {
	MaterialID    string    `json:"material_id" validate:"required,uuid"`
	Percentage    string    `json:"percentage" validate:"required"`
	EffectiveDate time.Time `json:"effective_date" validate:"required"`
}

type metalRateView struct {
	ID           uuid.UUID       `json:"id"`
	MaterialID   uuid.UUID       `json:"material_id"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	IsLatest     bool            `json:"is_latest"`
	CreatedAt    time.Time       `json:"created_at"`
}

// LivePrice returns the current price per gram for a material.
func LivePrice(svc internalrates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawMaterialID := strings.TrimSpace(chi.URLParam(r, "materialID"))
		materialID, err := uuid.Parse(rawMaterialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id"))
			return
		}

		price, found, err := svc.LivePrice(r.Context(), materialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no live price for material"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"material_id":    materialID,
			"price_per_gram": price,
		})
	}
}

// SetLivePrice replaces the live price for a material.
func SetLivePrice(svc internalrates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setLivePriceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		materialID, err := uuid.Parse(req.MaterialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id"))
			return
		}
		price, err := parseDecimal("price_per_gram", req.PricePerGram)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rate, err := svc.SetLivePrice(r.Context(), internalrates.SetLivePriceInput{
			MaterialID:   materialID,
			PricePerGram: price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toMetalRateView(rate))
	}
}

// AddTaxRate appends an effective-dated tax percentage.
func AddTaxRate(svc internalrates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addTaxRateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		materialID, err := uuid.Parse(req.MaterialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id"))
			return
		}
		taxOn, err := enums.ParseTaxOn(req.TaxOn)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax target"))
			return
		}
		pct, err := parseDecimal("percentage", req.Percentage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rate, err := svc.AddTaxRate(r.Context(), internalrates.AddTaxRateInput{
			MaterialID:    materialID,
			TaxOn:         taxOn,
			Percentage:    pct,
			EffectiveDate: req.EffectiveDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":             rate.ID,
			"material_id":    rate.MaterialID,
			"tax_on":         rate.TaxOn,
			"percentage":     rate.Percentage,
			"effective_date": rate.EffectiveDate,
		})
	}
}

// AddServiceFeeRate appends an effective-dated service-fee percentage.
func AddServiceFeeRate(svc internalrates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addServiceFeeRateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		materialID, err := uuid.Parse(req.MaterialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id"))
			return
		}
		pct, err := parseDecimal("percentage", req.Percentage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rate, err := svc.AddServiceFeeRate(r.Context(), internalrates.AddServiceFeeRateInput{
			MaterialID:    materialID,
			Percentage:    pct,
			EffectiveDate: req.EffectiveDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":             rate.ID,
			"material_id":    rate.MaterialID,
			"percentage":     rate.Percentage,
			"effective_date": rate.EffectiveDate,
		})
	}
}

// PriceHistory lists recent live-price points for a material, newest first.
func PriceHistory(svc internalrates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawMaterialID := strings.TrimSpace(chi.URLParam(r, "materialID"))
		materialID, err := uuid.Parse(rawMaterialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 30, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.PriceHistory(r.Context(), materialID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]metalRateView, 0, len(history))
		for i := range history {
			items = append(items, toMetalRateView(&history[i]))
		}
		responses.WriteSuccess(w, map[string][]metalRateView{"rates": items})
	}
}

func toMetalRateView(rate *models.MetalRate) metalRateView {
	return metalRateView{
		ID:           rate.ID,
		MaterialID:   rate.MaterialID,
		PricePerGram: rate.PricePerGram,
		IsLatest:     rate.IsLatest,
		CreatedAt:    rate.CreatedAt,
	}
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid decimal value").
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}
