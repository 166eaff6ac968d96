// Package auth validates the session tokens that authenticate API requests.
//
// AUTHENTICATION FLOW:
// The identity provider owns sign-up and sign-in entirely. When a user is
// created it notifies us via the identity webhook (which inserts the User
// row), and when a signed-in user calls our API the client attaches the
// provider's HS256 session token. We verify the token with the shared
// AUTH_SECRET and trust its "sub" claim as the user's external identity.
//
// The server never issues tokens in production — Mint exists so tests and
// local tooling can produce tokens the middleware accepts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService verifies HS256 session tokens against the shared secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret must match the one configured at the identity provider;
// a short secret is rejected as a configuration mistake.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; the provider puts the user's external
// identity in the standard "sub" claim.
type claims struct {
	jwt.RegisteredClaims
}

// Validate parses and verifies a token string, returning the external user
// ID from its Subject claim.
//
// VALIDATION CHECKS:
//   - signature is valid under the shared secret
//   - token is not expired (expiry claim is required, not optional)
//   - algorithm is HS256 — restricting methods up front closes the
//     algorithm-confusion hole where a token claims alg "none"
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}

// Mint creates a signed token for the given external user ID, valid for d.
// Test and tooling helper — the server does not issue tokens to clients.
func (s *TokenService) Mint(externalID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}
