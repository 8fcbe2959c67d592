// Package identity resolves who is calling: a Caller is produced once at the HTTP
// boundary and passed explicitly into the services.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Caller is the validated identity of a request. The zero value is anonymous.
type Caller struct {
	UserID string
}

func Anonymous() Caller {
	return Caller{}
}

// NewCaller trims id; a blank id yields an anonymous caller.
func NewCaller(id string) Caller {
	return Caller{UserID: strings.TrimSpace(id)}
}

func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

var ErrInvalidToken = errors.New("invalid token")

// Claims are issued by the external OAuth provider; Subject is the user id.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses an HS256 token and returns its claims.
func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue signs claims for the given subject. Used by tooling and tests; production tokens
// come from the identity provider.
func (v *TokenVerifier) Issue(subject string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.Subject = subject
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
