package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-workflow/internal/auth"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	"github.com/lorrc/ticket-workflow/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	manager := domain.Principal{ID: uuid.New(), Role: domain.RoleManager, Email: "m@example.com"}

	var seen domain.Principal
	var seenUserID string
	handler := JWTMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetPrincipal(r.Context())
		seenUserID = logging.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		token, err := tm.GenerateToken(manager)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := serve(handler, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, manager, seen)
		assert.Equal(t, manager.ID.String(), seenUserID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		rec := serve(handler, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid or expired token","code":"UNAUTHORIZED"}`, rec.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(domain.RoleManager)(http.HandlerFunc(okHandler))

	withRole := func(role domain.Role) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		return req.WithContext(WithPrincipal(req.Context(), domain.Principal{ID: uuid.New(), Role: role}))
	}

	assert.Equal(t, http.StatusOK, serve(handler, withRole(domain.RoleManager)).Code)
	forbidden := serve(handler, withRole(domain.RoleAssociate))
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.JSONEq(t, `{"error":"You do not have permission to perform this action","code":"FORBIDDEN"}`, forbidden.Body.String())
	assert.Equal(t, http.StatusUnauthorized, serve(handler, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
}

func TestCronSecret(t *testing.T) {
	handler := CronSecret("nightly-secret")(http.HandlerFunc(okHandler))

	tests := []struct {
		name    string
		headers map[string]string
		want    int
		message string
	}{
		{name: "header", headers: map[string]string{"X-Cron-Secret": "nightly-secret"}, want: http.StatusOK},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer nightly-secret"}, want: http.StatusOK},
		{name: "wrong header", headers: map[string]string{"X-Cron-Secret": "guess"}, want: http.StatusUnauthorized, message: "Invalid cron secret"},
		{name: "missing", want: http.StatusUnauthorized, message: "Invalid cron secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/automation/nightly", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := serve(handler, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.message != "" {
				assert.Contains(t, rec.Body.String(), tt.message)
			}
		})
	}

	t.Run("not configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/automation/nightly", nil)
		req.Header.Set("X-Cron-Secret", "")

		rec := serve(CronSecret("")(http.HandlerFunc(okHandler)), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "CRON_SECRET not configured")
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = serve(handler, req)
	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
		TTL:               time.Minute,
	})
	handler := rl.Middleware(http.HandlerFunc(okHandler))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		return serve(handler, req)
	}
	request := func(ip string) int { return send(ip).Code }

	assert.Equal(t, http.StatusOK, request("203.0.113.7"))
	assert.Equal(t, http.StatusOK, request("203.0.113.7"))
	limited := send("203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.JSONEq(t, `{"error":"Too many requests. Please try again later.","code":"RATE_LIMITED"}`, limited.Body.String())
	assert.Equal(t, http.StatusOK, request("198.51.100.4"), "limits are per client")
}

func TestRateLimiterConfig_WithRate(t *testing.T) {
	general := DefaultRateLimiterConfig().WithRate(25, 50)
	assert.Equal(t, 25.0, general.RequestsPerSecond)
	assert.Equal(t, 50, general.BurstSize)
	assert.Equal(t, 3*time.Minute, general.TTL)

	automation := AutomationRateLimiterConfig().WithRate(0, -1)
	assert.Equal(t, AutomationRateLimiterConfig(), automation)
}

func TestRecoveryLogger(t *testing.T) {
	logger := logging.NewLogger(logging.Config{Output: io.Discard})
	handler := RecoveryLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
