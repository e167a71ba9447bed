package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// EmailKey carries the verified payer email through the request context.
const EmailKey contextKey = "verified_email"

// ClaimMiddleware rejects requests without a valid verification claim
// and stashes the verified email in the context.
func ClaimMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "authorization header missing", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := ParseEmailClaim(parts[1], secret)
			if err != nil {
				http.Error(w, "invalid verification claim", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), EmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VerifiedEmail extracts the claim email placed by ClaimMiddleware.
func VerifiedEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}
