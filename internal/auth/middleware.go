package auth

import (
	"context"
	"net/http"
	"strings"

	"libretto/internal/apierror"
)

type ctxKey struct{}

// Authenticate validates the bearer access token when present and stores
// the claims in the request context. Requests without an Authorization
// header pass through unauthenticated; Require decides whether that is
// acceptable for the route.
func Authenticate(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				apierror.Write(w, apierror.Authentication("malformed Authorization header"))
				return
			}

			claims, err := tm.VerifyAccess(parts[1])
			if err != nil {
				apierror.Write(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the claims stored by Authenticate, or nil for an
// anonymous request.
func FromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ctxKey{}).(*Claims)
	return claims
}

// Require gates a route on the capability table: 401 without a valid
// token, 403 when the caller's role lacks the operation.
func Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := FromContext(r.Context())
			if claims == nil {
				apierror.Write(w, apierror.Authentication("authentication required"))
				return
			}
			if !Allowed(claims.Role, op) {
				apierror.Write(w, apierror.Authorization("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth gates a route on any authenticated caller, with no role check.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			apierror.Write(w, apierror.Authentication("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
