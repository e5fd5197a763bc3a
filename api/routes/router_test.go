package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/internal/credits"
	"github.com/rahulbagri/phonelot-backend/internal/lifecycle"
	"github.com/rahulbagri/phonelot-backend/internal/marketplace"
	pkgauth "github.com/rahulbagri/phonelot-backend/pkg/auth"
	"github.com/rahulbagri/phonelot-backend/pkg/config"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	"github.com/rahulbagri/phonelot-backend/pkg/pagination"
	pkgredis "github.com/rahulbagri/phonelot-backend/pkg/redis"
	"github.com/rahulbagri/phonelot-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubMarketplaceService struct{}

func (stubMarketplaceService) CreateOrder(context.Context, marketplace.CreateOrderInput) (*marketplace.CreateOrderResult, error) {
	return &marketplace.CreateOrderResult{}, nil
}

func (stubMarketplaceService) GetOrder(context.Context, lifecycle.Actor, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) Timeline(context.Context, lifecycle.Actor, uuid.UUID) ([]models.OrderStatusHistory, error) {
	return nil, nil
}

func (stubMarketplaceService) CancelOrder(context.Context, lifecycle.Actor, uuid.UUID, string) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) ListAvailableLeads(context.Context, uuid.UUID, pagination.Params) (*marketplace.LeadList, error) {
	return &marketplace.LeadList{}, nil
}

func (stubMarketplaceService) GetLeadForPartner(context.Context, uuid.UUID, uuid.UUID) (*marketplace.LeadDetail, error) {
	return &marketplace.LeadDetail{}, nil
}

func (stubMarketplaceService) AcquireLock(context.Context, uuid.UUID, uuid.UUID) (*marketplace.LockResult, error) {
	return &marketplace.LockResult{}, nil
}

func (stubMarketplaceService) ReleaseLock(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) PurchaseLead(context.Context, uuid.UUID, uuid.UUID) (*marketplace.PurchaseResult, error) {
	return &marketplace.PurchaseResult{}, nil
}

func (stubMarketplaceService) AssignAgent(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) ReassignAgent(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) AcceptAssignment(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) SchedulePickup(context.Context, uuid.UUID, uuid.UUID, marketplace.SchedulePickupInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) CompletePickup(context.Context, uuid.UUID, uuid.UUID, marketplace.CompletePickupInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) ProcessPayment(context.Context, uuid.UUID, uuid.UUID, marketplace.ProcessPaymentInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubMarketplaceService) ListCustomerOrders(context.Context, uuid.UUID, pagination.Params) (*marketplace.OrderList, error) {
	return &marketplace.OrderList{}, nil
}

func (stubMarketplaceService) ListPartnerOrders(context.Context, uuid.UUID, *enums.OrderStatus, pagination.Params) (*marketplace.OrderList, error) {
	return &marketplace.OrderList{}, nil
}

func (stubMarketplaceService) ListAgentOrders(context.Context, uuid.UUID, *enums.OrderStatus, pagination.Params) (*marketplace.OrderList, error) {
	return &marketplace.OrderList{}, nil
}

type stubCreditsService struct{}

func (stubCreditsService) ListPlans(context.Context) ([]models.CreditPlan, error) {
	return nil, nil
}

func (stubCreditsService) PurchaseCredits(context.Context, uuid.UUID, uuid.UUID) (*credits.PurchaseResult, error) {
	return &credits.PurchaseResult{}, nil
}

func (stubCreditsService) Balance(context.Context, uuid.UUID) (*credits.BalanceResult, error) {
	return &credits.BalanceResult{}, nil
}

func (stubCreditsService) ListTransactions(context.Context, uuid.UUID, pagination.Params) (*credits.TransactionList, error) {
	return &credits.TransactionList{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "phonelot-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, (*pkgredis.Client)(nil), stubMarketplaceService{}, stubCreditsService{})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorType, partnerID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		SubjectID: uuid.New(),
		Role:      role,
		PartnerID: partnerID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
	if resp.Header().Get("X-Phonelot-Env") != "test" {
		t.Fatalf("expected env header, got %q", resp.Header().Get("X-Phonelot-Env"))
	}
}

func TestPartnerRoutesRequirePartnerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/partner/leads", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/partner/leads", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorCustomer, nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	pid := uuid.New()
	partner := httptest.NewRequest(http.MethodGet, "/api/v1/partner/leads", nil)
	partner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorPartner, &pid))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, partner)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for partner got %d", resp.Code)
	}
}

func TestPartnerLeadsRequirePartnerContext(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	// A partner-role token without a partner scope must be rejected.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/partner/leads", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorPartner, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without partner context got %d", resp.Code)
	}
}

func TestAgentRoutesRequireAgentRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	pid := uuid.New()
	partner := httptest.NewRequest(http.MethodGet, "/api/v1/agent/orders", nil)
	partner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorPartner, &pid))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, partner)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for partner got %d", resp.Code)
	}

	agent := httptest.NewRequest(http.MethodGet, "/api/v1/agent/orders", nil)
	agent.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorAgent, &pid))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, agent)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for agent got %d", resp.Code)
	}

	accept := httptest.NewRequest(http.MethodPost, "/api/v1/agent/orders/"+uuid.NewString()+"/accept", nil)
	accept.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorAgent, &pid))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, accept)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for agent accept got %d", resp.Code)
	}
}

func TestCreateOrderRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := `{"phone_name":"iPhone 13"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorCustomer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Message != "Idempotency-Key header required" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestCustomerListingRejectsOtherRoles(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	pid := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorPartner, &pid))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for partner on customer listing got %d", resp.Code)
	}

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorCustomer, nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for customer listing got %d", resp.Code)
	}
}
