package products

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/api/responses"
	internalcatalog "github.com/aurumly/bullion-backend/internal/catalog"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
)

type productView struct {
	ID            uuid.UUID       `json:"id"`
	MaterialID    uuid.UUID       `json:"material_id"`
	Name          string          `json:"name"`
	WeightInGrams decimal.Decimal `json:"weight_in_grams"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ListByMaterial returns the redeemable catalog for one material, lightest
// item first.
func ListByMaterial(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawMaterialID := strings.TrimSpace(chi.URLParam(r, "materialID"))
		materialID, err := uuid.Parse(rawMaterialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id"))
			return
		}

		list, err := svc.ListByMaterial(r.Context(), materialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]productView, 0, len(list))
		for _, p := range list {
			items = append(items, productView{
				ID:            p.ID,
				MaterialID:    p.MaterialID,
				Name:          p.Name,
				WeightInGrams: p.WeightInGrams,
				CreatedAt:     p.CreatedAt,
			})
		}
		responses.WriteSuccess(w, map[string][]productView{"products": items})
	}
}
