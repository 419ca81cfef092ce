package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, now time.Time, opts ...SessionOption) *SessionManager {
	t.Helper()
	opts = append([]SessionOption{WithClock(func() time.Time { return now })}, opts...)
	m, err := NewSessionManager("test-secret", testLogger(), opts...)
	require.NoError(t, err)
	return m
}

func TestNewSessionManager_EmptySecret(t *testing.T) {
	_, err := NewSessionManager("", testLogger())
	assert.Error(t, err)
}

func TestSessionManager_IssueAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, now)

	token, expiresAt, err := m.Issue("user-1", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), expiresAt)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.GetUserID())
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestSessionManager_VerifyRejects(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, now)
	valid, _, err := m.Issue("user-1", "a@example.com")
	require.NoError(t, err)

	expired := newTestManager(t, now.Add(-8*24*time.Hour))
	expiredToken, _, err := expired.Issue("user-1", "a@example.com")
	require.NoError(t, err)

	otherSecret, err := NewSessionManager("other-secret", testLogger(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	foreignToken, _, err := otherSecret.Issue("user-1", "a@example.com")
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"tampered", valid + "x"},
		{"expired", expiredToken},
		{"wrong secret", foreignToken},
		{"wrong algorithm", hs512},
		{"missing expiry", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := m.VerifyToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestSessionManager_Refresh(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	m, err := NewSessionManager("test-secret", testLogger(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	token, _, err := m.Issue("user-1", "a@example.com")
	require.NoError(t, err)
	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.False(t, m.NeedsRefresh(claims))

	now = start.Add(6*24*time.Hour + 12*time.Hour)
	assert.True(t, m.NeedsRefresh(claims))

	_, expiresAt, err := m.Refresh(claims)
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), expiresAt)
}

func TestSessionManager_Cookies(t *testing.T) {
	m := newTestManager(t, time.Now(), WithSecureCookies(true))
	expiresAt := time.Now().Add(time.Hour)

	rec := httptest.NewRecorder()
	m.SetCookie(rec, "tok", expiresAt)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

type stubVerifier struct {
	claims *models.SessionClaims
	closed bool
}

func (s *stubVerifier) VerifyToken(string) (*models.SessionClaims, error) {
	if s.claims == nil {
		return nil, domain.ErrUnauthorized
	}
	return s.claims, nil
}

func (s *stubVerifier) Close() error {
	s.closed = true
	return nil
}

func TestChainVerifier(t *testing.T) {
	first := &stubVerifier{}
	second := &stubVerifier{claims: &models.SessionClaims{UserID: "u"}}

	claims, err := ChainVerifier{first, second}.VerifyToken("t")
	require.NoError(t, err)
	assert.Equal(t, "u", claims.GetUserID())

	_, err = ChainVerifier{first}.VerifyToken("t")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = ChainVerifier{}.VerifyToken("t")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, ChainVerifier{first, second}.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	ok, err := CheckPassword(hash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "secret1")
	assert.Error(t, err)
}
