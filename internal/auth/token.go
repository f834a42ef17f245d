package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

// DefaultSessionTTL is the token lifetime when none is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// ErrInvalidToken covers every non-valid token state: bad signature,
// malformed payload, or expiry. Call sites collapse them into a single
// unauthorized outcome, so no finer distinction is exposed.
var ErrInvalidToken = errors.New("invalid session token")

// sessionClaims embeds the registered claims plus the authenticated user.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// TokenIssuer creates and verifies stateless signed session tokens.
// Tokens are HS256 JWTs carrying the user ID, issued-at, and expiry.
// There is no revocation list; logout is client-side cookie deletion.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds a TokenIssuer with the given signing secret.
// A non-positive ttl falls back to DefaultSessionTTL.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue produces a signed token embedding the user ID with an absolute
// expiry relative to now.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Verify checks signature and expiry and returns the embedded user ID.
// All failures map to ErrInvalidToken; this method never panics and
// never propagates parser internals to the caller.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &sessionClaims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
