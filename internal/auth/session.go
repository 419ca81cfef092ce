package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
)

// SessionCookieName is the cookie that carries the session token
const SessionCookieName = "session"

// SessionManager issues and verifies HS256 session tokens
type SessionManager struct {
	secret        []byte
	ttl           time.Duration
	refreshWindow time.Duration
	secure        bool
	logger        *slog.Logger
	now           func() time.Time
}

// SessionOption configures a SessionManager
type SessionOption func(*SessionManager)

// WithSessionTTL overrides the session lifetime
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) { m.ttl = ttl }
}

// WithRefreshWindow sets how close to expiry a session must be before NeedsRefresh reports true
func WithRefreshWindow(d time.Duration) SessionOption {
	return func(m *SessionManager) { m.refreshWindow = d }
}

// WithSecureCookies marks cookies Secure (production)
func WithSecureCookies(secure bool) SessionOption {
	return func(m *SessionManager) { m.secure = secure }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager creates a session manager. The secret must not be empty.
func NewSessionManager(secret string, logger *slog.Logger, opts ...SessionOption) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}

	m := &SessionManager{
		secret:        []byte(secret),
		ttl:           7 * 24 * time.Hour,
		refreshWindow: 24 * time.Hour,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a new session token for the user
func (m *SessionManager) Issue(userID, email string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := &models.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Email:  email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}

	return token, expiresAt, nil
}

// VerifyToken implements TokenVerifier for HS256 session tokens
func (m *SessionManager) VerifyToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		m.logger.Debug("session token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}

	if claims.GetUserID() == "" {
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Refresh re-issues the session carried by claims with a fresh expiry
func (m *SessionManager) Refresh(claims *models.SessionClaims) (string, time.Time, error) {
	return m.Issue(claims.GetUserID(), claims.Email)
}

// NeedsRefresh reports whether claims expire within the refresh window
func (m *SessionManager) NeedsRefresh(claims *models.SessionClaims) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(m.now()) < m.refreshWindow
}

// SetCookie writes the session cookie
func (m *SessionManager) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Close implements TokenVerifier
func (m *SessionManager) Close() error {
	return nil
}
