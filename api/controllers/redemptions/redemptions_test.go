package redemptions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aurumly/bullion-backend/api/middleware"
	internalredemptions "github.com/aurumly/bullion-backend/internal/redemptions"
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	"github.com/aurumly/bullion-backend/pkg/pagination"
)

type stubRedemptionsService struct {
	create       func(ctx context.Context, input internalredemptions.CreateInput) (*models.Redemption, error)
	adminApprove func(ctx context.Context, redeemID, vendorID uuid.UUID) (*models.Redemption, error)
	adminReject  func(ctx context.Context, redeemID uuid.UUID) (*models.Redemption, error)
	vendorAccept func(ctx context.Context, redeemID, vendorID, riderID uuid.UUID) (*models.Redemption, error)
	vendorReject func(ctx context.Context, redeemID, vendorID uuid.UUID) (*models.Redemption, error)
	cancel       func(ctx context.Context, redeemID, customerID uuid.UUID) (*models.Redemption, error)
	list         func(ctx context.Context, actorID uuid.UUID, role enums.UserRole, params pagination.Params) ([]models.Redemption, *string, error)
}

func (s *stubRedemptionsService) Create(ctx context.Context, input internalredemptions.CreateInput) (*models.Redemption, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) AdminApprove(ctx context.Context, redeemID, vendorID uuid.UUID) (*models.Redemption, error) {
	if s.adminApprove != nil {
		return s.adminApprove(ctx, redeemID, vendorID)
	}
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) AdminReject(ctx context.Context, redeemID uuid.UUID) (*models.Redemption, error) {
	if s.adminReject != nil {
		return s.adminReject(ctx, redeemID)
	}
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) VendorAccept(ctx context.Context, redeemID, vendorID, riderID uuid.UUID) (*models.Redemption, error) {
	if s.vendorAccept != nil {
		return s.vendorAccept(ctx, redeemID, vendorID, riderID)
	}
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) VendorReject(ctx context.Context, redeemID, vendorID uuid.UUID) (*models.Redemption, error) {
	if s.vendorReject != nil {
		return s.vendorReject(ctx, redeemID, vendorID)
	}
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) RiderAccept(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error) {
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) RiderReject(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error) {
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) MarkOutForDelivery(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error) {
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) MarkDelivered(ctx context.Context, redeemID, riderID uuid.UUID) (*models.Redemption, error) {
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) Cancel(ctx context.Context, redeemID, customerID uuid.UUID) (*models.Redemption, error) {
	if s.cancel != nil {
		return s.cancel(ctx, redeemID, customerID)
	}
	return &models.Redemption{}, nil
}

func (s *stubRedemptionsService) Get(ctx context.Context, redeemID uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.Redemption, error) {
	return &models.Redemption{ID: redeemID}, nil
}

func (s *stubRedemptionsService) List(ctx context.Context, actorID uuid.UUID, role enums.UserRole, params pagination.Params) ([]models.Redemption, *string, error) {
	if s.list != nil {
		return s.list(ctx, actorID, role, params)
	}
	return nil, nil, nil
}

func routedRequest(t *testing.T, handler http.HandlerFunc, pattern, method, target, body string, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateParsesSelections(t *testing.T) {
	customerID := uuid.New()
	materialID := uuid.New()
	addressID := uuid.New()
	productID := uuid.New()

	svc := &stubRedemptionsService{
		create: func(ctx context.Context, input internalredemptions.CreateInput) (*models.Redemption, error) {
			if input.CustomerID != customerID {
				t.Fatalf("unexpected customer id %s", input.CustomerID)
			}
			if input.OtpCode != "123456" {
				t.Fatalf("unexpected otp code %q", input.OtpCode)
			}
			if len(input.Products) != 1 || input.Products[0].ProductID != productID || input.Products[0].Quantity != 2 {
				t.Fatalf("selections not parsed: %+v", input.Products)
			}
			return &models.Redemption{ID: uuid.New(), CustomerID: customerID, FlowStatus: enums.FlowStatusRequested}, nil
		},
	}

	body := `{"material_id":"` + materialID.String() + `","address_id":"` + addressID.String() + `",` +
		`"otp_code":"123456","products":[{"product_id":"` + productID.String() + `","quantity":2}]}`
	resp := routedRequest(t, Create(svc, nil), "/redemptions", http.MethodPost, "/redemptions", body, customerID)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data redemptionView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.FlowStatus != enums.FlowStatusRequested {
		t.Fatalf("unexpected flow status %s", envelope.Data.FlowStatus)
	}
}

func TestCreateRequiresProducts(t *testing.T) {
	body := `{"material_id":"` + uuid.NewString() + `","address_id":"` + uuid.NewString() + `",` +
		`"otp_code":"123456","products":[]}`
	resp := routedRequest(t, Create(&stubRedemptionsService{}, nil), "/redemptions", http.MethodPost, "/redemptions", body, uuid.New())

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestVendorDecisionAcceptNeedsRider(t *testing.T) {
	redemptionID := uuid.New()
	resp := routedRequest(t, VendorDecision(&stubRedemptionsService{}, nil),
		"/vendor/redemptions/{redemptionID}/decision", http.MethodPost,
		"/vendor/redemptions/"+redemptionID.String()+"/decision",
		`{"decision":"accept"}`, uuid.New())

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVendorDecisionAcceptForwardsRider(t *testing.T) {
	redemptionID := uuid.New()
	vendorID := uuid.New()
	riderID := uuid.New()

	svc := &stubRedemptionsService{
		vendorAccept: func(ctx context.Context, gotRedeemID, gotVendorID, gotRiderID uuid.UUID) (*models.Redemption, error) {
			if gotRedeemID != redemptionID || gotVendorID != vendorID || gotRiderID != riderID {
				t.Fatalf("ids not forwarded")
			}
			return &models.Redemption{ID: redemptionID, FlowStatus: enums.FlowStatusRiderAssigned}, nil
		},
	}

	resp := routedRequest(t, VendorDecision(svc, nil),
		"/vendor/redemptions/{redemptionID}/decision", http.MethodPost,
		"/vendor/redemptions/"+redemptionID.String()+"/decision",
		`{"decision":"accept","rider_id":"`+riderID.String()+`"}`, vendorID)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminDecisionApproveNeedsVendor(t *testing.T) {
	redemptionID := uuid.New()
	resp := routedRequest(t, AdminDecision(&stubRedemptionsService{}, nil),
		"/admin/redemptions/{redemptionID}/decision", http.MethodPost,
		"/admin/redemptions/"+redemptionID.String()+"/decision",
		`{"decision":"approve"}`, uuid.New())

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminDecisionReject(t *testing.T) {
	redemptionID := uuid.New()
	called := false

	svc := &stubRedemptionsService{
		adminReject: func(ctx context.Context, gotRedeemID uuid.UUID) (*models.Redemption, error) {
			called = true
			if gotRedeemID != redemptionID {
				t.Fatalf("unexpected redemption id %s", gotRedeemID)
			}
			return &models.Redemption{ID: redemptionID, FlowStatus: enums.FlowStatusAdminRejected, Refunded: true}, nil
		},
	}

	resp := routedRequest(t, AdminDecision(svc, nil),
		"/admin/redemptions/{redemptionID}/decision", http.MethodPost,
		"/admin/redemptions/"+redemptionID.String()+"/decision",
		`{"decision":"reject"}`, uuid.New())

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("reject not forwarded to service")
	}
}

func TestRiderDecisionRejectsUnknownValue(t *testing.T) {
	redemptionID := uuid.New()
	resp := routedRequest(t, RiderDecision(&stubRedemptionsService{}, nil),
		"/rider/redemptions/{redemptionID}/decision", http.MethodPost,
		"/rider/redemptions/"+redemptionID.String()+"/decision",
		`{"decision":"maybe"}`, uuid.New())

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListScopesByRole(t *testing.T) {
	actorID := uuid.New()

	svc := &stubRedemptionsService{
		list: func(ctx context.Context, gotActorID uuid.UUID, role enums.UserRole, params pagination.Params) ([]models.Redemption, *string, error) {
			if gotActorID != actorID {
				t.Fatalf("unexpected actor id %s", gotActorID)
			}
			if role != enums.UserRoleVendor {
				t.Fatalf("unexpected role %s", role)
			}
			return []models.Redemption{{ID: uuid.New()}}, nil, nil
		},
	}

	resp := routedRequest(t, List(svc, enums.UserRoleVendor, nil),
		"/vendor/redemptions", http.MethodGet, "/vendor/redemptions", "", actorID)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
