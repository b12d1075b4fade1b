// Package middleware provides HTTP middleware for the cortex server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey ContextKey = "user_id"
	// IdentityKey is the context key for the rate-limit identity.
	IdentityKey ContextKey = "identity"
)

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scope"`
}

// Identity resolves the caller's rate-limit identity without requiring
// authentication. A valid bearer token yields a stable user identity; an
// anonymous caller is keyed by its session token so concurrent anonymous
// sessions never share a bucket; with neither, the remote address is used.
func Identity(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if claims, ok := parseBearer(r, jwtSecret); ok {
				ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
				ctx = context.WithValue(ctx, IdentityKey, "user:"+claims.Subject)
			} else if token := r.Header.Get("X-Session-Token"); token != "" {
				ctx = context.WithValue(ctx, IdentityKey, "anon:"+token)
			} else {
				ctx = context.WithValue(ctx, IdentityKey, "ip:"+r.RemoteAddr)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Auth creates JWT authentication middleware that rejects requests without a
// valid bearer token.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := parseBearer(r, jwtSecret)
			if !ok {
				http.Error(w, `{"error":"invalid or missing bearer token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, IdentityKey, "user:"+claims.Subject)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(r *http.Request, jwtSecret string) (*Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, false
	}

	return claims, true
}

// GetUserID gets the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetIdentity gets the rate-limit identity from context.
func GetIdentity(ctx context.Context) string {
	if v := ctx.Value(IdentityKey); v != nil {
		return v.(string)
	}
	return ""
}
