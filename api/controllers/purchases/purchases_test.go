package purchases

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumly/bullion-backend/api/middleware"
	internalpurchases "github.com/aurumly/bullion-backend/internal/purchases"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type stubPurchasesService struct {
	preview func(ctx context.Context, input internalpurchases.PreviewInput) (*internalpurchases.Quote, error)
	commit  func(ctx context.Context, input internalpurchases.CommitInput) (*models.Purchase, error)
	get     func(ctx context.Context, customerID, purchaseID uuid.UUID) (*models.Purchase, error)
	list    func(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Purchase, *string, error)
}

func (s *stubPurchasesService) Preview(ctx context.Context, input internalpurchases.PreviewInput) (*internalpurchases.Quote, error) {
	if s.preview != nil {
		return s.preview(ctx, input)
	}
	return &internalpurchases.Quote{}, nil
}

func (s *stubPurchasesService) Commit(ctx context.Context, input internalpurchases.CommitInput) (*models.Purchase, error) {
	if s.commit != nil {
		return s.commit(ctx, input)
	}
	return &models.Purchase{}, nil
}

func (s *stubPurchasesService) Get(ctx context.Context, customerID, purchaseID uuid.UUID) (*models.Purchase, error) {
	if s.get != nil {
		return s.get(ctx, customerID, purchaseID)
	}
	return &models.Purchase{}, nil
}

func (s *stubPurchasesService) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Purchase, *string, error) {
	if s.list != nil {
		return s.list(ctx, customerID, params)
	}
	return nil, nil, nil
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestPreviewParsesInput(t *testing.T) {
	customerID := uuid.New()
	materialID := uuid.New()

	svc := &stubPurchasesService{
		preview: func(ctx context.Context, input internalpurchases.PreviewInput) (*internalpurchases.Quote, error) {
			if input.CustomerID != customerID {
				t.Fatalf("unexpected customer id %s", input.CustomerID)
			}
			if input.MaterialID != materialID {
				t.Fatalf("unexpected material id %s", input.MaterialID)
			}
			if !input.Amount.Equal(decimal.RequireFromString("10000")) {
				t.Fatalf("unexpected amount %s", input.Amount)
			}
			return &internalpurchases.Quote{MaterialID: materialID, TotalAmount: decimal.RequireFromString("10595.00")}, nil
		},
	}

	body := `{"material_id":"` + materialID.String() + `","amount":"10000"}`
	req := authedRequest(http.MethodPost, "/api/v1/purchases/preview", body, customerID)
	resp := httptest.NewRecorder()
	Preview(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data internalpurchases.Quote `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.TotalAmount.Equal(decimal.RequireFromString("10595.00")) {
		t.Fatalf("unexpected total %s", envelope.Data.TotalAmount)
	}
}

func TestPreviewRejectsUnknownFields(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/purchases/preview", `{"material_id":"`+uuid.NewString()+`","amount":"1","extra":true}`, uuid.New())
	resp := httptest.NewRecorder()
	Preview(&stubPurchasesService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPreviewRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases/preview", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Preview(&stubPurchasesService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCommitParsesDeclaredRates(t *testing.T) {
	customerID := uuid.New()
	materialID := uuid.New()
	generatedAt := time.Now().UTC().Truncate(time.Second)

	svc := &stubPurchasesService{
		commit: func(ctx context.Context, input internalpurchases.CommitInput) (*models.Purchase, error) {
			if !input.PricePerGram.Equal(decimal.RequireFromString("6000")) {
				t.Fatalf("unexpected price %s", input.PricePerGram)
			}
			if !input.TotalAmount.Equal(decimal.RequireFromString("10595.00")) {
				t.Fatalf("unexpected total %s", input.TotalAmount)
			}
			if !input.GeneratedAt.Equal(generatedAt) {
				t.Fatalf("unexpected generated_at %s", input.GeneratedAt)
			}
			return &models.Purchase{
				ID:          uuid.New(),
				CustomerID:  customerID,
				MaterialID:  materialID,
				TotalAmount: input.TotalAmount,
				Status:      enums.PurchaseStatusCompleted,
			}, nil
		},
	}

	body := `{"material_id":"` + materialID.String() + `","amount":"10000","price_per_gram":"6000",` +
		`"material_tax_rate":"3","service_tax_rate":"18","service_fee_rate":"2.5",` +
		`"total_amount":"10595.00","generated_at":"` + generatedAt.Format(time.RFC3339) + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/purchases", body, customerID)
	resp := httptest.NewRecorder()
	Commit(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCommitRejectsMalformedDecimal(t *testing.T) {
	body := `{"material_id":"` + uuid.NewString() + `","amount":"ten thousand","price_per_gram":"6000",` +
		`"material_tax_rate":"3","service_tax_rate":"18","service_fee_rate":"2.5",` +
		`"total_amount":"10595.00","generated_at":"` + time.Now().UTC().Format(time.RFC3339) + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/purchases", body, uuid.New())
	resp := httptest.NewRecorder()
	Commit(&stubPurchasesService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListForwardsPagination(t *testing.T) {
	customerID := uuid.New()
	next := "cursor-token"

	svc := &stubPurchasesService{
		list: func(ctx context.Context, gotCustomerID uuid.UUID, params pagination.Params) ([]models.Purchase, *string, error) {
			if gotCustomerID != customerID {
				t.Fatalf("unexpected customer id %s", gotCustomerID)
			}
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if params.Cursor != "abc" {
				t.Fatalf("unexpected cursor %q", params.Cursor)
			}
			return []models.Purchase{{ID: uuid.New(), CustomerID: customerID}}, &next, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/purchases?limit=5&cursor=abc", "", customerID)
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data listResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(envelope.Data.Items))
	}
	if envelope.Data.NextCursor == nil || *envelope.Data.NextCursor != next {
		t.Fatalf("next cursor not forwarded")
	}
}
