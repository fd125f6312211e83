package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lorrc/ticket-workflow/internal/auth"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// PrincipalKey is the key used to store the acting user in the request context.
const PrincipalKey contextKey = "principal"

// JWTMiddleware validates the JWT token from the Authorization header and
// stores the resulting principal in the request context.
func JWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeError(w, apperrors.NewUnauthorizedError("Authorization header format must be Bearer {token}"))
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				writeError(w, apperrors.NewUnauthorizedError("Invalid or expired token"))
				return
			}

			principal, err := claims.Principal()
			if err != nil {
				writeError(w, apperrors.NewUnauthorizedError("Invalid or expired token"))
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = logging.WithUserID(ctx, principal.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects principals whose role is not among roles. It must run
// after JWTMiddleware.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				writeError(w, apperrors.NewUnauthorizedError("Authentication required"))
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, apperrors.NewForbiddenError(nil, "You do not have permission to perform this action"))
		})
	}
}

// CronSecret guards the scheduled trigger. The secret may arrive in the
// X-Cron-Secret header or as a bearer token.
func CronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, apperrors.NewUnauthorizedError("CRON_SECRET not configured"))
				return
			}

			presented := r.Header.Get("X-Cron-Secret")
			if presented == "" {
				presented, _ = bearerToken(r)
			}

			if !auth.SecretMatches(secret, presented) {
				writeError(w, apperrors.NewUnauthorizedError("Invalid cron secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal stores the acting user in ctx.
func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// GetPrincipal retrieves the acting user from the context.
func GetPrincipal(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(domain.Principal)
	return principal, ok
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": appErr.Message, "code": appErr.Code})
}
