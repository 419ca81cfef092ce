package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
	"storyboard/internal/httputil"
)

const (
	testUser    = "user-1"
	projectID   = "11111111-1111-4111-8111-111111111111"
	sceneID     = "22222222-2222-4222-8222-222222222222"
	missingUUID = "33333333-3333-4333-8333-333333333333"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withUser plays the part of the auth middleware
func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, httputil.WithClaims(r, &models.SessionClaims{UserID: testUser, Email: "a@b.c"}))
	})
}

type fakeProjectService struct {
	services.ProjectService
	project     *models.Project
	lastUpdate  *services.UpdateProjectRequest
	lastCreate  *services.CreateProjectRequest
	deletedHard []string
}

func (f *fakeProjectService) lookup(id, userID string) (*models.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, domain.ErrNotFound
	}
	if f.project.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return f.project, nil
}

func (f *fakeProjectService) CreateProject(_ context.Context, req *services.CreateProjectRequest) (*models.Project, error) {
	f.lastCreate = req
	if req.Title == "" {
		return nil, errors.Join(domain.ErrValidation, errors.New("title: cannot be blank"))
	}
	return &models.Project{ID: projectID, UserID: req.UserID, Title: req.Title, ImageSize: models.DefaultProjectImageSize}, nil
}

func (f *fakeProjectService) GetProject(_ context.Context, id, userID string) (*models.Project, error) {
	return f.lookup(id, userID)
}

func (f *fakeProjectService) ListProjects(context.Context, string) ([]models.Project, error) {
	return []models.Project{*f.project}, nil
}

func (f *fakeProjectService) UpdateProject(_ context.Context, id, userID string, req *services.UpdateProjectRequest) (*models.Project, error) {
	p, err := f.lookup(id, userID)
	if err != nil {
		return nil, err
	}
	f.lastUpdate = req
	return p, nil
}

func (f *fakeProjectService) PermanentlyDeleteProject(_ context.Context, id, userID string) error {
	if _, err := f.lookup(id, userID); err != nil {
		return err
	}
	f.deletedHard = append(f.deletedHard, id)
	return nil
}

type fakeSceneService struct {
	services.SceneService
	lastUpdate  *models.SceneUpdate
	lastCreate  *services.CreateSceneRequest
	lastReorder []string
	deleted     []string
}

func (f *fakeSceneService) CreateScene(_ context.Context, _ string, req *services.CreateSceneRequest) (*models.Scene, error) {
	f.lastCreate = req
	return &models.Scene{ID: sceneID, ProjectID: req.ProjectID, OrderIndex: req.OrderIndex}, nil
}

func (f *fakeSceneService) UpdateScene(_ context.Context, id, _ string, update *models.SceneUpdate) (*models.Scene, error) {
	if id != sceneID {
		return nil, domain.ErrNotFound
	}
	f.lastUpdate = update
	return &models.Scene{ID: id, ProjectID: projectID}, nil
}

func (f *fakeSceneService) DeleteScene(_ context.Context, id, _ string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSceneService) ReorderScenes(_ context.Context, pid, _ string, req *services.ReorderScenesRequest) ([]models.Scene, error) {
	f.lastReorder = req.SceneIDs
	out := make([]models.Scene, len(req.SceneIDs))
	for i, id := range req.SceneIDs {
		out[i] = models.Scene{ID: id, ProjectID: pid, OrderIndex: i}
	}
	return out, nil
}

type fakeAuthService struct {
	users map[string]*models.User
}

func (f *fakeAuthService) Signup(_ context.Context, req *services.SignupRequest) (*models.User, error) {
	if _, ok := f.users[req.Email]; ok {
		return nil, &domain.ConflictError{Message: "email already registered", ResourceType: "user"}
	}
	u := &models.User{ID: "user-new", Email: req.Email}
	f.users[req.Email] = u
	return u, nil
}

func (f *fakeAuthService) Login(_ context.Context, req *services.LoginRequest) (*models.User, error) {
	u, ok := f.users[req.Email]
	if !ok || req.Password != "secret1" {
		return nil, domain.ErrUnauthorized
	}
	return u, nil
}

func (f *fakeAuthService) GetUser(_ context.Context, id string) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeSessions struct {
	cleared int
}

func (f *fakeSessions) Issue(userID, _ string) (string, time.Time, error) {
	return "token-" + userID, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func (f *fakeSessions) Refresh(claims *models.SessionClaims) (string, time.Time, error) {
	return f.Issue(claims.GetUserID(), claims.Email)
}

func (f *fakeSessions) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{Name: "session", Value: token, Expires: expiresAt})
}

func (f *fakeSessions) ClearCookie(w http.ResponseWriter) {
	f.cleared++
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "", MaxAge: -1})
}

type fakeChatService struct {
	events []services.ChatEvent
	err    error
	got    *services.ChatRequest
}

func (f *fakeChatService) StreamTurn(_ context.Context, req *services.ChatRequest, sink services.ChatEventSink) error {
	f.got = req
	for _, ev := range f.events {
		if err := sink(ev); err != nil {
			return err
		}
	}
	return f.err
}

type fakeExportService struct {
	err error
}

func (f *fakeExportService) Filename(title string) string {
	return title + "_Storyboard.xlsx"
}

func (f *fakeExportService) WriteWorkbook(_ context.Context, req *services.ExportRequest, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	if req.Project == nil || len(req.Scenes) == 0 {
		return domain.ErrValidation
	}
	_, err := w.Write([]byte("PK-workbook"))
	return err
}

type fakeArchive struct {
	stored map[string][]byte
	err    error
}

func (f *fakeArchive) Store(_ context.Context, userID, filename string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.stored[userID+"/"+filename] = data
	return "https://archive.local/" + filename, nil
}
