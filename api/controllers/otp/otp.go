package otp

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aurumly/bullion-backend/api/middleware"
	"github.com/aurumly/bullion-backend/api/responses"
	"github.com/aurumly/bullion-backend/api/validators"
	internalotp "github.com/aurumly/bullion-backend/internal/otp"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
	"github.com/aurumly/bullion-backend/pkg/logger"
)

type requestBody struct {
	Context string `json:"context" validate:"required"`
}

type issueResponse struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	Delivered   bool      `json:"delivered"`
}

// Request issues a fresh code for the given context and sends it over SMS.
func Request(svc internalotp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req requestBody
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		otpContext := enums.OtpContext(req.Context)
		if !otpContext.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown otp context").
				WithDetails(map[string]any{"context": req.Context}))
			return
		}

		result, err := svc.Issue(r.Context(), userID, otpContext)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, issueResponse{
			ChallengeID: result.ChallengeID,
			ExpiresAt:   result.ExpiresAt,
			Delivered:   result.Delivered,
		})
	}
}
