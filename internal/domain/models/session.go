package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the payload of a session token.
// The subject claim carries the user ID.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// GetUserID returns the user ID, falling back to the subject claim.
func (c *SessionClaims) GetUserID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
