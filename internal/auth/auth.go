// Package auth resolves callers to user ids from HS256 bearer tokens.
// The ledger core never sees credentials; handlers read the user id from
// the request context this package populates.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stockpulse/paper-engine/internal/model"
)

type ctxKey struct{}

// Resolver validates bearer tokens and extracts the subject user id.
type Resolver struct {
	issuer string
	secret []byte
}

// NewResolver creates a resolver for tokens signed with the given secret.
func NewResolver(issuer string, secret []byte) *Resolver {
	return &Resolver{issuer: issuer, secret: secret}
}

// SignToken issues a token for a user id. Used by tests and tooling; token
// issuance for real users lives in the identity service.
func (r *Resolver) SignToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    r.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// ResolveCaller extracts and validates the bearer token from a request,
// returning the authenticated user id.
func (r *Resolver) ResolveCaller(req *http.Request) (string, error) {
	header := req.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", model.ErrUnauthenticated
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return r.secret, nil
	})
	if err != nil {
		return "", model.ErrUnauthenticated
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Issuer != r.issuer || claims.Subject == "" {
		return "", model.ErrUnauthenticated
	}
	return claims.Subject, nil
}

// Middleware rejects unauthenticated requests and stores the resolved user
// id in the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		userID, err := r.ResolveCaller(req)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": model.ErrUnauthenticated.Error()})
			return
		}
		next.ServeHTTP(w, req.WithContext(WithUser(req.Context(), userID)))
	})
}

// WithUser returns a context carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id from the context, if present.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
