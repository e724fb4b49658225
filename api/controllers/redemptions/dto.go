package redemptions

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/api/middleware"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
)

type itemView struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      int             `json:"quantity"`
	WeightInGrams decimal.Decimal `json:"weight_in_grams"`
}

type redemptionView struct {
	ID            uuid.UUID          `json:"id"`
	CustomerID    uuid.UUID          `json:"customer_id"`
	MaterialID    uuid.UUID          `json:"material_id"`
	AddressID     uuid.UUID          `json:"address_id"`
	GramsBefore   decimal.Decimal    `json:"grams_before"`
	GramsRedeemed decimal.Decimal    `json:"grams_redeemed"`
	GramsAfter    decimal.Decimal    `json:"grams_after"`
	ValuedAt      decimal.Decimal    `json:"valued_at"`
	AdminStatus   enums.AdminStatus  `json:"admin_status"`
	VendorID      *uuid.UUID         `json:"vendor_id,omitempty"`
	VendorStatus  enums.VendorStatus `json:"vendor_status"`
	RiderID       *uuid.UUID         `json:"rider_id,omitempty"`
	RiderStatus   enums.RiderStatus  `json:"rider_status"`
	FlowStatus    enums.FlowStatus   `json:"flow_status"`
	Refunded      bool               `json:"refunded"`
	Items         []itemView         `json:"items,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type listResponse struct {
	Items      []redemptionView `json:"items"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}

func toView(r *models.Redemption) redemptionView {
	items := make([]itemView, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, itemView{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			WeightInGrams: item.WeightInGrams,
		})
	}
	return redemptionView{
		ID:            r.ID,
		CustomerID:    r.CustomerID,
		MaterialID:    r.MaterialID,
		AddressID:     r.AddressID,
		GramsBefore:   r.GramsBefore,
		GramsRedeemed: r.GramsRedeemed,
		GramsAfter:    r.GramsAfter,
		ValuedAt:      r.ValuedAt,
		AdminStatus:   r.AdminStatus,
		VendorID:      r.VendorID,
		VendorStatus:  r.VendorStatus,
		RiderID:       r.RiderID,
		RiderStatus:   r.RiderStatus,
		FlowStatus:    r.FlowStatus,
		Refunded:      r.Refunded,
		Items:         items,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toViews(list []models.Redemption) []redemptionView {
	items := make([]redemptionView, 0, len(list))
	for i := range list {
		items = append(items, toView(&list[i]))
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

func redemptionIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "redemptionID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid redemption id")
	}
	return id, nil
}
