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

type adminDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	VendorID string `json:"vendor_id" validate:"omitempty,uuid"`
}

// AdminDecision approves a redemption onto a vendor or rejects it with a
// refund.
func AdminDecision(svc internalredemptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redemptionID, err := redemptionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adminDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch req.Decision {
		case "approve":
			vendorID, err := uuid.Parse(req.VendorID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required to approve"))
				return
			}
			redemption, err := svc.AdminApprove(r.Context(), redemptionID, vendorID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, toView(redemption))
		case "reject":
			redemption, err := svc.AdminReject(r.Context(), redemptionID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, toView(redemption))
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approve or reject"))
		}
	}
}
