// Package token gates entity Control() calls behind JWT verification, per
// spec_full §5's control.require_token. It adapts the teacher's
// internal/controlplane/api/auth JWTService generate/validate pair. The
// gateway only verifies tokens; IssueForTesting mints them for operator
// tooling and tests.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by Verifier.Verify.
var (
	ErrInvalidToken        = errors.New("control token: invalid token")
	ErrExpiredToken        = errors.New("control token: token has expired")
	ErrInvalidSecretLength = errors.New("control token: signing key must be at least 32 characters")
	ErrMissingScope        = errors.New("control token: missing required scope")
)

// ScopeControl is the claim value a token must carry to authorize
// gateway.Service.Control calls.
const ScopeControl = "gateway:control"

// Claims is the JWT claim set a control command's bearer token must
// satisfy: a subject identifying the caller, and a scope list.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes"`
}

// HasScope reports whether scope is present in the claims.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Verifier validates bearer tokens presented alongside control commands.
type Verifier struct {
	signingKey []byte
}

// NewVerifier constructs a Verifier using signingKey for HMAC verification.
func NewVerifier(signingKey string) (*Verifier, error) {
	if len(signingKey) < 32 {
		return nil, ErrInvalidSecretLength
	}
	return &Verifier{signingKey: []byte(signingKey)}, nil
}

// Verify parses and validates tokenString, requiring the ScopeControl
// scope, and returns the validated claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.HasScope(ScopeControl) {
		return nil, ErrMissingScope
	}

	return claims, nil
}

// IssueForTesting mints a short-lived control-scoped token, for use by
// operator tooling and tests that need a token without a full issuing
// service. subject identifies the caller in audit logs.
func (v *Verifier) IssueForTesting(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: []string{ScopeControl},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.signingKey)
}
