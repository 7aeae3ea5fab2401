package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nhle/todolist/internal/model"
)

type identityKey struct{}

// WithIdentity returns a context carrying u.
func WithIdentity(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, identityKey{}, u)
}

// IdentityFrom returns the authenticated user attached by Middleware.
func IdentityFrom(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(identityKey{}).(model.User)
	return u, ok
}

// Middleware rejects requests without a valid bearer token and attaches the
// token's identity to the request context.
func Middleware(issuer *Issuer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeUnauthorized(w, "Missing token")
			return
		}

		u, err := issuer.Verify(token)
		if err != nil {
			slog.Debug("rejecting token", "path", r.URL.Path, "error", err)
			writeUnauthorized(w, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), u)))
	})
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
