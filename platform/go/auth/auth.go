package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const ctxUserCredentials ctxKey = "OPTOPLUS_USER_CREDENTIALS"

// Staff roles carried in session claims. RoleAdmin is a platform-level
// principal stored in the master registry; the rest are clinic staff.
const (
	RoleAdmin       = "ADMIN"
	RoleManager     = "MANAGER"
	RoleOptometrist = "OPTOMETRIST"
	RoleSeller      = "SELLER"
)

// UserCredentials carries the authenticated principal resolved from a
// session token. ClinicKey is empty for platform admins.
type UserCredentials struct {
	UserID    int64
	Username  string
	Role      string
	ClinicKey string
}

// IsPlatformAdmin reports whether the principal is a master-registry admin.
func (c UserCredentials) IsPlatformAdmin() bool {
	return c.Role == RoleAdmin
}

// WithUser stores the credentials on the context.
func WithUser(ctx context.Context, creds *UserCredentials) context.Context {
	return context.WithValue(ctx, ctxUserCredentials, creds)
}

// UserFromContext extracts credentials set by the JWT middleware.
func UserFromContext(ctx context.Context) (*UserCredentials, bool) {
	v := ctx.Value(ctxUserCredentials)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*UserCredentials)
	return u, ok
}

// ExtractJWTToken pulls the bearer token from the Authorization header.
func ExtractJWTToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const prefix = "Bearer "
	// Case-insensitive prefix match.
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}

	return strings.TrimSpace(authHeader[len(prefix):]), true
}

// JWT parses the request token and sets the context credentials. Requests
// without a token pass through untouched; RequireUser gates protected routes.
func JWT(signer *Signer) func(http.Handler) http.Handler {
	if signer == nil {
		panic("auth.JWT: signer must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractJWTToken(r)
			if !found {
				next.ServeHTTP(w, r)
				return
			}

			creds, err := signer.Parse(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				http.Error(w, "invalid session token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), creds)))
		})
	}
}

// RequireUser rejects requests that carry no authenticated principal.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePlatformAdmin rejects principals that are not master-registry admins.
func RequirePlatformAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, ok := UserFromContext(r.Context())
		if !ok || !creds.IsPlatformAdmin() {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
