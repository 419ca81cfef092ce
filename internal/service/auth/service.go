package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	sessionauth "storyboard/internal/auth"
	"storyboard/internal/config"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/repositories"
	"storyboard/internal/domain/services"
)

// ErrInvalidCredentials is returned by Login for any credential mismatch
var ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)

// authService implements the AuthService interface
type authService struct {
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, logger *slog.Logger) services.AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Signup creates an account with a bcrypt-hashed password
func (s *authService) Signup(ctx context.Context, req *services.SignupRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.validateSignup(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hash, err := sessionauth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = &name
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "id", user.ID)

	return user, nil
}

// Login checks credentials
func (s *authService) Login(ctx context.Context, req *services.LoginRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := sessionauth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Debug("login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("user logged in", "id", user.ID)

	return user, nil
}

// GetUser returns the profile of the current user
func (s *authService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// validateSignup validates a signup request
func (s *authService) validateSignup(req *services.SignupRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Email,
			validation.Required,
			validation.Length(1, config.MaxEmailLength),
			is.EmailFormat,
		),
		validation.Field(&req.Password,
			validation.Required,
			validation.RuneLength(config.MinPasswordLength, 0),
		),
		validation.Field(&req.ConfirmPassword,
			validation.When(req.ConfirmPassword != "",
				validation.In(req.Password).Error("passwords do not match"),
			),
		),
	)
}
