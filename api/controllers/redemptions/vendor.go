package redemptions

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aurumly/bullion-backend/api/responses"
	"github.com/aurumly/bullion-backend/api/validators"
	internalredemptions "github.com/aurumly/bullion-backend/internal/redemptions"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
)

type vendorDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
	RiderID  string `json:"rider_id" validate:"omitempty,uuid"`
}

// VendorDecision accepts or rejects an assignment. Accepting requires the
// rider the vendor is handing the delivery to.
func VendorDecision(svc internalredemptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redemptionID, err := redemptionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req vendorDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch req.Decision {
		case "accept":
			riderID, err := uuid.Parse(req.RiderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "rider id required to accept"))
				return
			}
			redemption, err := svc.VendorAccept(r.Context(), redemptionID, vendorID, riderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, toView(redemption))
		case "reject":
			redemption, err := svc.VendorReject(r.Context(), redemptionID, vendorID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, toView(redemption))
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "decision must be accept or reject"))
		}
	}
}
