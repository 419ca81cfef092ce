package auth

import (
	"fmt"

	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
)

var errNoVerifier = fmt.Errorf("no token verifier configured: %w", domain.ErrUnauthorized)

// TokenVerifier defines the interface for token verification.
// The middleware only sees this abstraction, so session tokens and
// identity provider tokens are interchangeable.
type TokenVerifier interface {
	// VerifyToken validates a token string and returns the parsed claims.
	// Returns domain.ErrUnauthorized if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.SessionClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []TokenVerifier

// VerifyToken implements TokenVerifier
func (c ChainVerifier) VerifyToken(tokenString string) (*models.SessionClaims, error) {
	var lastErr error
	for _, v := range c {
		claims, err := v.VerifyToken(tokenString)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errNoVerifier
	}
	return nil, lastErr
}

// Close closes every verifier in the chain
func (c ChainVerifier) Close() error {
	var firstErr error
	for _, v := range c {
		if err := v.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
