package purchases

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/api/middleware"
	"github.com/aurumly/bullion-backend/api/responses"
	"github.com/aurumly/bullion-backend/api/validators"
	internalpurchases "github.com/aurumly/bullion-backend/internal/purchases"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type previewRequest struct {
	MaterialID string `json:"material_id" validate:"required,uuid"`
	Amount     string `json:"amount" validate:"required"`
}

type commitRequest struct {
	MaterialID      string    `json:"material_id" validate:"required,uuid"`
	Amount          string    `json:"amount" validate:"required"`
	PricePerGram    string    `json:"price_per_gram" validate:"required"`
	MaterialTaxRate string    `json:"material_tax_rate" validate:"required"`
	ServiceTaxRate  string    `json:"service_tax_rate" validate:"required"`
	ServiceFeeRate  string    `json:"service_fee_rate" validate:"required"`
	TotalAmount     string    `json:"total_amount" validate:"required"`
	GeneratedAt     time.Time `json:"generated_at" validate:"required"`
}

// Preview quotes a purchase at current rates without committing anything.
func Preview(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req previewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		materialID, amount, err := parsePair(req.MaterialID, req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Preview(r.Context(), internalpurchases.PreviewInput{
			CustomerID: customerID,
			MaterialID: materialID,
			Amount:     amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// Commit verifies the quoted rates still hold and books the purchase.
func Commit(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req commitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		materialID, amount, err := parsePair(req.MaterialID, req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalpurchases.CommitInput{
			CustomerID:  customerID,
			MaterialID:  materialID,
			Amount:      amount,
			GeneratedAt: req.GeneratedAt,
		}
		fields := []struct {
			name  string
			raw   string
			value *decimal.Decimal
		}{
			{"price_per_gram", req.PricePerGram, &input.PricePerGram},
			{"material_tax_rate", req.MaterialTaxRate, &input.MaterialTaxPct},
			{"service_tax_rate", req.ServiceTaxRate, &input.ServiceTaxPct},
			{"service_fee_rate", req.ServiceFeeRate, &input.ServiceFeePct},
			{"total_amount", req.TotalAmount, &input.TotalAmount},
		}
		for _, f := range fields {
			parsed, err := parseDecimal(f.name, f.raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			*f.value = parsed
		}

		purchase, err := svc.Commit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toView(purchase))
	}
}

// Detail returns one purchase owned by the caller.
func Detail(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchaseID, err := parsePathUUID(r, "purchaseID", "purchase id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchase, err := svc.Get(r.Context(), customerID, purchaseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toView(purchase))
	}
}

// List pages the caller's purchases newest first.
func List(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, next, err := svc.List(r.Context(), customerID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]purchaseView, 0, len(list))
		for i := range list {
			items = append(items, toView(&list[i]))
		}
		responses.WriteSuccess(w, listResponse{Items: items, NextCursor: next})
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return id, nil
}

func parsePair(rawMaterialID, rawAmount string) (uuid.UUID, decimal.Decimal, error) {
	materialID, err := uuid.Parse(rawMaterialID)
	if err != nil {
		return uuid.Nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id")
	}
	amount, err := parseDecimal("amount", rawAmount)
	if err != nil {
		return uuid.Nil, decimal.Zero, err
	}
	return materialID, amount, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid decimal value").
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

func parsePathUUID(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
