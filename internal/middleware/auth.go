package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storyboard/internal/auth"
	"storyboard/internal/domain/models"
	"storyboard/internal/httputil"
)

// SessionRefresher re-issues session cookies that are close to expiry
type SessionRefresher interface {
	NeedsRefresh(claims *models.SessionClaims) bool
	Refresh(claims *models.SessionClaims) (string, time.Time, error)
	SetCookie(w http.ResponseWriter, token string, expiresAt time.Time)
}

// publicPaths are served without a session
var publicPaths = map[string]bool{
	"/health":          true,
	"/metrics":         true,
	"/api/auth/signup": true,
	"/api/auth/login":  true,
	"/api/auth/logout": true,
}

// AuthMiddleware verifies the session cookie or bearer token and stores the
// claims in the request context. Requests without a valid token get a 401.
// Cookie sessions near expiry are refreshed in place; bearer tokens are not.
func AuthMiddleware(verifier auth.TokenVerifier, refresher SessionRefresher, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || publicPaths[r.URL.Path] || !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			token, fromCookie := sessionToken(r)
			if token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("token verification failed", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			if fromCookie && refresher != nil && refresher.NeedsRefresh(claims) {
				fresh, expiresAt, err := refresher.Refresh(claims)
				if err != nil {
					logger.Warn("session refresh failed", "user_id", claims.GetUserID(), "error", err)
				} else {
					refresher.SetCookie(w, fresh, expiresAt)
				}
			}

			next.ServeHTTP(w, httputil.WithClaims(r, claims))
		})
	}
}

// sessionToken prefers the session cookie over the Authorization header
func sessionToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return httputil.BearerToken(r), false
}
