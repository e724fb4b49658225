package holdings

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
	internalledger "github.com/aurumly/bullion-backend/internal/ledger"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type holdingView struct {
	MaterialID uuid.UUID       `json:"material_id"`
	Grams      decimal.Decimal `json:"grams"`
	AsOf       time.Time       `json:"as_of"`
}

type entryView struct {
	SourceType     enums.LedgerSourceType `json:"source_type"`
	SourceRef      *uuid.UUID             `json:"source_ref,omitempty"`
	Grams          decimal.Decimal        `json:"grams"`
	RunningBalance decimal.Decimal        `json:"running_balance"`
	CreatedAt      time.Time              `json:"created_at"`
}

type historyResponse struct {
	Items      []entryView `json:"items"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

// List returns the caller's current gram balance per material.
func List(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		latest, err := svc.Holdings(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]holdingView, 0, len(latest))
		for _, entry := range latest {
			items = append(items, holdingView{
				MaterialID: entry.MaterialID,
				Grams:      entry.RunningBalance,
				AsOf:       entry.CreatedAt,
			})
		}
		responses.WriteSuccess(w, map[string][]holdingView{"holdings": items})
	}
}

// History pages one material's ledger entries for the caller, newest first.
func History(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawMaterialID := strings.TrimSpace(chi.URLParam(r, "materialID"))
		materialID, err := uuid.Parse(rawMaterialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalledger.HistoryInput{
			CustomerID: customerID,
			MaterialID: materialID,
			Limit:      limit,
		}
		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			input.Cursor = &cursor
		}

		entries, next, err := svc.History(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, historyResponse{Items: toEntryViews(entries), NextCursor: next})
	}
}

func toEntryViews(entries []models.LedgerEntry) []entryView {
	items := make([]entryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entryView{
			SourceType:     entry.SourceType,
			SourceRef:      entry.SourceRef,
			Grams:          entry.Grams,
			RunningBalance: entry.RunningBalance,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return items
}

func callerID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return id, nil
}
