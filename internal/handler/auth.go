package handler

import (
	"log/slog"
	"net/http"
	"time"

	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
	"storyboard/internal/httputil"
)

// SessionIssuer issues and clears session cookies
type SessionIssuer interface {
	Issue(userID, email string) (string, time.Time, error)
	Refresh(claims *models.SessionClaims) (string, time.Time, error)
	SetCookie(w http.ResponseWriter, token string, expiresAt time.Time)
	ClearCookie(w http.ResponseWriter)
}

// AuthHandler handles account and session HTTP requests
type AuthHandler struct {
	authService services.AuthService
	sessions    SessionIssuer
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService, sessions SessionIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
	}
}

// SessionResponse is returned by signup, login and refresh. The token is
// also set as the session cookie; non-browser clients send it as a bearer token.
type SessionResponse struct {
	User      *models.User `json:"user,omitempty"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Signup creates an account and opens a session
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if !parseBody(w, r, &req) {
		return
	}

	user, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	h.startSession(w, http.StatusCreated, user)
}

// Login opens a session for valid credentials
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !parseBody(w, r, &req) {
		return
	}

	user, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	h.startSession(w, http.StatusOK, user)
}

// Logout expires the session cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	httputil.RespondNoContent(w)
}

// Refresh re-issues the current session with a fresh expiry
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := httputil.GetClaims(r)
	if claims == nil {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	token, expiresAt, err := h.sessions.Refresh(claims)
	if err != nil {
		h.logger.Error("session refresh failed", "user_id", claims.GetUserID(), "error", err)
		handleError(w, err)
		return
	}
	h.sessions.SetCookie(w, token, expiresAt)

	httputil.RespondJSON(w, http.StatusOK, SessionResponse{Token: token, ExpiresAt: expiresAt})
}

// Me returns the authenticated user's profile
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUser(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, status int, user *models.User) {
	token, expiresAt, err := h.sessions.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error("session issue failed", "user_id", user.ID, "error", err)
		handleError(w, err)
		return
	}
	h.sessions.SetCookie(w, token, expiresAt)

	httputil.RespondJSON(w, status, SessionResponse{User: user, Token: token, ExpiresAt: expiresAt})
}
