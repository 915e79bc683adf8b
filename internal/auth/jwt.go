package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Principal represents the authenticated caller from JWT. The core trusts
// nothing beyond the id and role; ownership checks happen per operation.
type Principal struct {
	UserID   int64
	Username string
	Role     string // "admin" | "customer"
}

// IsAdmin reports whether the caller carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == "admin"
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

// ParseFromRequest extracts and validates a Bearer JWT from the Authorization
// header and returns a Principal.
func ParseFromRequest(r *http.Request, secret string) (*Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("invalid authorization header")
	}
	return ParseToken(strings.TrimSpace(parts[1]), secret)
}

// ParseToken validates and extracts claims from a JWT token.
func ParseToken(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	type claims struct {
		UserID   int64  `json:"uid"`
		Username string `json:"name"`
		Role     string `json:"role"`
		jwt.RegisteredClaims
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.UserID == 0 {
		return nil, errors.New("invalid claims")
	}
	role := strings.ToLower(c.Role)
	if role == "" {
		role = "customer"
	}
	return &Principal{UserID: c.UserID, Username: c.Username, Role: role}, nil
}

// Middleware authenticates every request and stores the Principal in the
// request context. Requests without a valid token are rejected with 401.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := ParseFromRequest(r, secret)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
