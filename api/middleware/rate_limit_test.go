package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aurumly/bullion-backend/pkg/logger"
	"github.com/aurumly/bullion-backend/pkg/types"
)

type fakeRateLimiter struct {
	counts map[string]int64
}

func newFakeRateLimiter() *fakeRateLimiter {
	return &fakeRateLimiter{counts: map[string]int64{}}
}

func (f *fakeRateLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func rateLimitedHandler(t *testing.T, policy RateLimitPolicy, store *fakeRateLimiter) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	return RateLimit(policy, store, logg)(next)
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	store := newFakeRateLimiter()
	handler := rateLimitedHandler(t, NewRateLimitPolicy("otp_request", time.Minute, 2), store)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/otp/request", nil)
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("request %d: expected 202, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/otp/request", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %s", envelope.Error.Code)
	}
}

func TestRateLimitScopesByUser(t *testing.T) {
	store := newFakeRateLimiter()
	handler := rateLimitedHandler(t, NewRateLimitPolicy("otp_request", time.Minute, 1), store)

	for _, userID := range []string{"user-1", "user-2"} {
		req := httptest.NewRequest(http.MethodPost, "/otp/request", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("user %s: expected 202, got %d", userID, rec.Code)
		}
	}
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	store := newFakeRateLimiter()
	handler := rateLimitedHandler(t, NewRateLimitPolicy("otp_request", time.Minute, 1), store)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/otp/request", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 && rec.Code != http.StatusAccepted {
			t.Fatalf("first request: expected 202, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("second request: expected 429, got %d", rec.Code)
		}
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateLimiter()
	handler := rateLimitedHandler(t, NewRateLimitPolicy("otp_request", 0, 0), store)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/otp/request", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("request %d: expected 202, got %d", i+1, rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("expected store untouched, saw %d scopes", len(store.counts))
	}
}
