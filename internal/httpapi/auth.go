package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

// Claims is the bearer token payload. The subject is the user id.
type Claims struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	jwt.RegisteredClaims
}

type callerKey struct{}

// CallerFrom returns the identity the auth middleware attached to ctx.
func CallerFrom(ctx context.Context) (domain.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(domain.Caller)
	return c, ok
}

// IssueToken signs an HS256 token for c valid for ttl.
func IssueToken(secret []byte, c domain.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:    string(c.Role),
		Name:    c.Name,
		Address: c.Address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, raw string) (domain.Caller, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Caller{}, err
	}
	if claims.Subject == "" {
		return domain.Caller{}, errors.New("token has no subject")
	}
	return domain.Caller{
		ID:      claims.Subject,
		Name:    claims.Name,
		Role:    domain.Role(claims.Role),
		Address: claims.Address,
	}, nil
}

// authenticate rejects requests without a valid bearer token.
func authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "No token, authorization denied"})
				return
			}
			c, err := parseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Token is not valid"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, c)))
		})
	}
}
