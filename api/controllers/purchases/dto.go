package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
)

type purchaseView struct {
	ID             uuid.UUID            `json:"id"`
	MaterialID     uuid.UUID            `json:"material_id"`
	Amount         decimal.Decimal      `json:"amount"`
	PricePerGram   decimal.Decimal      `json:"price_per_gram"`
	GramsPurchased decimal.Decimal      `json:"grams_purchased"`
	TaxOnMaterial  decimal.Decimal      `json:"tax_on_material"`
	TaxOnService   decimal.Decimal      `json:"tax_on_service"`
	ServiceFee     decimal.Decimal      `json:"service_fee"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	Status         enums.PurchaseStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
}

type listResponse struct {
	Items      []purchaseView `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

func toView(p *models.Purchase) purchaseView {
	return purchaseView{
		ID:             p.ID,
		MaterialID:     p.MaterialID,
		Amount:         p.Amount,
		PricePerGram:   p.PricePerGram,
		GramsPurchased: p.GramsPurchased,
		TaxOnMaterial:  p.TaxOnMaterial,
		TaxOnService:   p.TaxOnService,
		ServiceFee:     p.ServiceFee,
		TotalAmount:    p.TotalAmount,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
	}
}
