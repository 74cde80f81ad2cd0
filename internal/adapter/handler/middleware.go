package handler

import (
	"context"
	"net/http"
	"strings"

	"sweetshop/internal/core/domain"
)

type contextKey int

const identityKey contextKey = iota

// IdentityFrom returns the authenticated identity attached by Authenticated,
// or nil when the request was not authenticated.
func IdentityFrom(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(identityKey).(*domain.Identity)
	return identity
}

// Authenticated rejects requests without a valid bearer token and attaches
// the decoded identity to the request context.
func (h *HTTPHandler) Authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		identity, err := h.auth.ValidateToken(raw)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	}
}

// AdminOnly rejects authenticated requests whose identity is not an admin.
// It must run inside Authenticated.
func (h *HTTPHandler) AdminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFrom(r.Context())
		if identity == nil || !identity.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "Admin access required")
			return
		}

		next(w, r)
	}
}

// CORS applies an origin allowlist and answers preflight requests.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
