package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/servilocal/backend/internal/models"
)

type contextKey string

const (
	ctxProviderKey contextKey = "provider"
	ctxRoleKey     contextKey = "role"
)

// TokenValidator resolves a bearer token to a provider id and role.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// ProviderLookup confirms the token's subject still exists and loads it for
// downstream handlers.
type ProviderLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
}

// BearerAuth authenticates requests by validating the Authorization bearer
// token as a JWT and loading the provider it names. A token whose provider
// no longer exists is rejected the same way as a bad token.
func BearerAuth(tokens TokenValidator, providers ProviderLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"status":"fail","message":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, role, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"status":"fail","message":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			provider, err := providers.GetByID(r.Context(), id)
			if err != nil {
				http.Error(w, `{"status":"fail","message":"the provider belonging to this token no longer exists"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxProviderKey, provider)
			ctx = context.WithValue(ctx, ctxRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProviderFromCtx returns the authenticated provider or nil.
func ProviderFromCtx(ctx context.Context) *models.Provider {
	p, _ := ctx.Value(ctxProviderKey).(*models.Provider)
	return p
}

// WithProvider returns a context carrying the given provider.
func WithProvider(ctx context.Context, p *models.Provider) context.Context {
	return context.WithValue(ctx, ctxProviderKey, p)
}

// RoleFromCtx returns the authenticated role, or "" when unauthenticated.
func RoleFromCtx(ctx context.Context) string {
	role, _ := ctx.Value(ctxRoleKey).(string)
	return role
}

// WithRole returns a context carrying the given role.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRoleKey, role)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
