package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*models.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return &domain.ConflictError{Message: "email already registered", ResourceType: "user"}
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func newTestAuthService() (services.AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	return NewAuthService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  services.SignupRequest
	}{
		{"missing email", services.SignupRequest{Password: "secret1"}},
		{"missing password", services.SignupRequest{Email: "a@example.com"}},
		{"short password", services.SignupRequest{Email: "a@example.com", Password: "12345"}},
		{"bad email", services.SignupRequest{Email: "not-an-email", Password: "secret1"}},
		{"confirm mismatch", services.SignupRequest{Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestAuthService()
			req := tt.req
			_, err := svc.Signup(context.Background(), &req)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, repo.byEmail)
		})
	}
}

func TestSignup_CreatesUserWithHashedPassword(t *testing.T) {
	svc, repo := newTestAuthService()

	user, err := svc.Signup(context.Background(), &services.SignupRequest{
		Email:           "  Alice@Example.com ",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Name:            "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	require.NotNil(t, user.Name)
	assert.Equal(t, "Alice", *user.Name)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.Contains(t, repo.byEmail, "alice@example.com")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &services.SignupRequest{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, &services.SignupRequest{Email: "A@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()
	created, err := svc.Signup(ctx, &services.SignupRequest{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := svc.Login(ctx, &services.LoginRequest{Email: "A@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Login(ctx, &services.LoginRequest{Email: "a@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.EqualError(t, err, ErrInvalidCredentials.Error())

	_, err = svc.Login(ctx, &services.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.EqualError(t, err, ErrInvalidCredentials.Error())

	_, err = svc.Login(ctx, &services.LoginRequest{Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
