package addresses

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aurumly/bullion-backend/api/middleware"
	"github.com/aurumly/bullion-backend/api/responses"
	"github.com/aurumly/bullion-backend/api/validators"
	internaladdresses "github.com/aurumly/bullion-backend/internal/addresses"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
)

type createRequest struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

type addressView struct {
	ID         uuid.UUID `json:"id"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	Region     string    `json:"region,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Create stores a new delivery address for the caller.
func Create(svc internaladdresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		address, err := svc.Create(r.Context(), internaladdresses.CreateInput{
			CustomerID: customerID,
			Line1:      req.Line1,
			Line2:      req.Line2,
			City:       req.City,
			Region:     req.Region,
			PostalCode: req.PostalCode,
			Phone:      req.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toView(address))
	}
}

// List returns the caller's addresses.
func List(svc internaladdresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]addressView, 0, len(list))
		for i := range list {
			items = append(items, toView(&list[i]))
		}
		responses.WriteSuccess(w, map[string][]addressView{"addresses": items})
	}
}

func toView(a *models.Address) addressView {
	return addressView{
		ID:         a.ID,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
		CreatedAt:  a.CreatedAt,
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return id, nil
}
