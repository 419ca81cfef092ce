package services

import (
	"context"

	"storyboard/internal/domain/models"
)

// SignupRequest represents a request to create an account
type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name"`
}

// LoginRequest represents a request to open a session
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService handles account creation and credential checks.
// Session issuing lives in the auth package.
type AuthService interface {
	Signup(ctx context.Context, req *SignupRequest) (*models.User, error)

	// Login returns ErrUnauthorized for both an unknown email and a bad password.
	Login(ctx context.Context, req *LoginRequest) (*models.User, error)

	GetUser(ctx context.Context, id string) (*models.User, error)
}

// ResourceAuthorizer checks that a user may act on a resource.
// The only rule is ownership: a user owns a project and everything in it.
type ResourceAuthorizer interface {
	// CanAccessProject checks if user owns a non-deleted project
	CanAccessProject(ctx context.Context, userID, projectID string) error

	// CanAccessScene checks if user owns the scene's project
	CanAccessScene(ctx context.Context, userID, sceneID string) error
}
