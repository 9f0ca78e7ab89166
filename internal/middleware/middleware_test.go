package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
)

type mockRequest struct {
	Value string `json:"value"`
}

func (m *mockRequest) Validate() error {
	switch m.Value {
	case "error_response":
		return &models.ErrorResponse{Code: "invalid", Message: "invalid"}
	case "generic_error":
		return errors.New("failed")
	default:
		return nil
	}
}

func TestValidateRequestSuccess(t *testing.T) {
	called := false
	handler := ValidateRequest[*mockRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if req := GetValidatedRequest[*mockRequest](r); req.Value != "ok" {
			t.Fatalf("expected value ok, got %s", req.Value)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"value":"ok"}`)))

	if !called {
		t.Fatal("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestValidateRequestRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{`, "invalid_json"},
		{"error response", `{"value":"error_response"}`, "invalid"},
		{"generic error", `{"value":"generic_error"}`, "validation_error"},
		{"oversized", `{"value":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "invalid_json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := ValidateRequest[*mockRequest]()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not be called")
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `"code":"`+tt.code+`"`) {
				t.Fatalf("expected code %s, got %s", tt.code, rec.Body.String())
			}
		})
	}
}

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	var gotUser, gotName string
	handler := Auth(secret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserIDFromContext(r.Context())
		gotName = DisplayNameFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := utils.SignToken(secret, "user-7", map[string]any{"name": "Kai"})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUser != "user-7" || gotName != "Kai" {
		t.Fatalf("unexpected identity %q %q", gotUser, gotName)
	}
}

func TestUserIDFromContext(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user id")
	}
	if id, ok := UserIDFromContext(WithUserID(context.Background(), "u1")); !ok || id != "u1" {
		t.Fatalf("expected u1, got %q", id)
	}
}

type fakeLimiter struct {
	keys    []string
	allowed int
	err     error
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	if f.allowed > 0 {
		f.allowed--
		return &redis_rate.Result{Limit: limit, Allowed: 1, Remaining: f.allowed}, nil
	}
	return &redis_rate.Result{Limit: limit, Allowed: 0, RetryAfter: 1500 * time.Millisecond}, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{allowed: 1}
	handler := RateLimit("bounty", limiter, NewLimit(5, 24*time.Hour), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/bounty/claim", nil)
	req.RemoteAddr = "203.0.113.9:4000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request through, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	if limiter.keys[0] != "rl:bounty:203.0.113.9" {
		t.Fatalf("unexpected limiter key %s", limiter.keys[0])
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	handler := RateLimit("global", limiter, NewLimit(1, time.Minute), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected request through when limiter fails, got %d", rec.Code)
	}
}

func TestRateLimitKeyIgnoresForwardedHeadersByDefault(t *testing.T) {
	tests := []struct {
		name  string
		trust bool
		want  []string
	}{
		{"untrusted", false, []string{"rl:global:203.0.113.9", "rl:global:203.0.113.9"}},
		{"trusted proxy", true, []string{"rl:global:198.51.100.1", "rl:global:198.51.100.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := &fakeLimiter{allowed: 10}
			handler := ClientAddress(tt.trust)(RateLimit("global", limiter, NewLimit(10, time.Minute), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			for _, forwarded := range []string{"198.51.100.1", "198.51.100.2"} {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.RemoteAddr = "203.0.113.9:4000"
				req.Header.Set("X-Forwarded-For", forwarded)
				handler.ServeHTTP(httptest.NewRecorder(), req)
			}
			if strings.Join(limiter.keys, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("expected keys %v, got %v", tt.want, limiter.keys)
			}
		})
	}
}
