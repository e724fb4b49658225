package redemptions

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aurumly/bullion-backend/api/responses"
	"github.com/aurumly/bullion-backend/api/validators"
	internalredemptions "github.com/aurumly/bullion-backend/internal/redemptions"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type selectionRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createRequest struct {
	MaterialID string             `json:"material_id" validate:"required,uuid"`
	AddressID  string             `json:"address_id" validate:"required,uuid"`
	OtpCode    string             `json:"otp_code" validate:"required,len=6"`
	Products   []selectionRequest `json:"products" validate:"required,min=1,dive"`
}

// Create debits the requested grams and opens the delivery flow. The OTP code
// is consumed in the same transaction as the debit.
func Create(svc internalredemptions.Service, logg *logger.Logger) http.HandlerFunc {
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

		materialID, err := uuid.Parse(req.MaterialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material id"))
			return
		}
		addressID, err := uuid.Parse(req.AddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address id"))
			return
		}

		selections := make([]internalredemptions.ProductSelection, 0, len(req.Products))
		for _, p := range req.Products {
			productID, err := uuid.Parse(p.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			selections = append(selections, internalredemptions.ProductSelection{
				ProductID: productID,
				Quantity:  p.Quantity,
			})
		}

		redemption, err := svc.Create(r.Context(), internalredemptions.CreateInput{
			CustomerID: customerID,
			MaterialID: materialID,
			AddressID:  addressID,
			OtpCode:    req.OtpCode,
			Products:   selections,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toView(redemption))
	}
}

// Detail returns one redemption visible to the caller.
func Detail(svc internalredemptions.Service, role enums.UserRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redemptionID, err := redemptionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redemption, err := svc.Get(r.Context(), redemptionID, actorID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toView(redemption))
	}
}

// List pages the redemptions visible to the caller's role.
func List(svc internalredemptions.Service, role enums.UserRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := callerID(r)
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

		list, next, err := svc.List(r.Context(), actorID, role, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listResponse{Items: toViews(list), NextCursor: next})
	}
}

// Cancel withdraws a redemption that has not been decided yet and refunds the
// grams.
func Cancel(svc internalredemptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redemptionID, err := redemptionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redemption, err := svc.Cancel(r.Context(), redemptionID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toView(redemption))
	}
}
