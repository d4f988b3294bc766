// Package auth resolves the bearer token on a request into a caller identity.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "ringside/pkg/domain"
	"ringside/pkg/requestcontext"
)

// IdentityVerifier verifies a bearer token and returns the identity it asserts.
type IdentityVerifier interface {
	Verify(tokenString string) (*id.Identity, error)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// Authenticate attaches the verified identity to the request context. Requests
// without an Authorization header pass through anonymous; services decide
// whether an operation needs a caller. A header that is present but does not
// verify is rejected with 401.
func Authenticate(verifier IdentityVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthenticated - malformed authorization header",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Missing or invalid Authorization header")
				return
			}

			identity, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthenticated - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, identity)))
		})
	}
}
