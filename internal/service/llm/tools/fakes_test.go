package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
)

const (
	testUser    = "user-1"
	testProject = "11111111-1111-4111-8111-111111111111"
	otherUser   = "user-2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSceneService is an in-memory SceneService with ownership checks.
type fakeSceneService struct {
	mu      sync.Mutex
	owners  map[string]string // project id -> user id
	scenes  map[string]*models.Scene
	seq     int
	updates int
}

func newFakeSceneService() *fakeSceneService {
	return &fakeSceneService{
		owners: map[string]string{testProject: testUser},
		scenes: map[string]*models.Scene{},
	}
}

func (f *fakeSceneService) add(content string, order int) *models.Scene {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	sc := &models.Scene{
		ID:         fmt.Sprintf("22222222-2222-4222-8222-%012d", f.seq),
		ProjectID:  testProject,
		OrderIndex: order,
		Content:    content,
	}
	f.scenes[sc.ID] = sc
	return sc
}

func (f *fakeSceneService) get(id string) *models.Scene {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scenes[id]
}

func (f *fakeSceneService) checkProject(userID, projectID string) error {
	owner, ok := f.owners[projectID]
	if !ok || owner != userID {
		return fmt.Errorf("access denied to project %s: %w", projectID, domain.ErrForbidden)
	}
	return nil
}

func (f *fakeSceneService) checkScene(userID, id string) (*models.Scene, error) {
	sc, ok := f.scenes[id]
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
	}
	return sc, f.checkProject(userID, sc.ProjectID)
}

func (f *fakeSceneService) ListScenes(_ context.Context, projectID, userID string) ([]models.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkProject(userID, projectID); err != nil {
		return nil, err
	}
	out := []models.Scene{}
	for _, sc := range f.scenes {
		if sc.ProjectID == projectID {
			out = append(out, *sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (f *fakeSceneService) GetScene(_ context.Context, id, userID string) (*models.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, err := f.checkScene(userID, id)
	if err != nil {
		return nil, err
	}
	cp := *sc
	return &cp, nil
}

func (f *fakeSceneService) CreateScene(_ context.Context, userID string, req *services.CreateSceneRequest) (*models.Scene, error) {
	f.mu.Lock()
	if err := f.checkProject(userID, req.ProjectID); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()
	return f.add(req.Content, req.OrderIndex), nil
}

func (f *fakeSceneService) UpdateScene(_ context.Context, id, userID string, u *models.SceneUpdate) (*models.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, err := f.checkScene(userID, id)
	if err != nil {
		return nil, err
	}
	f.updates++
	if u.Content != nil {
		sc.Content = *u.Content
	}
	if u.ImageURL != nil {
		sc.ImageURL = u.ImageURL
	}
	if u.AINotes != nil {
		sc.AINotes = u.AINotes
	}
	if u.ShotNumber != nil {
		sc.ShotNumber = u.ShotNumber
	}
	if u.Frame != nil {
		sc.Frame = u.Frame
	}
	if u.ShotType != nil {
		sc.ShotType = u.ShotType
	}
	if u.DurationSeconds != nil {
		sc.DurationSeconds = u.DurationSeconds
	}
	if u.Notes != nil {
		sc.Notes = u.Notes
	}
	cp := *sc
	return &cp, nil
}

func (f *fakeSceneService) DeleteScene(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.checkScene(userID, id); err != nil {
		return err
	}
	delete(f.scenes, id)
	return nil
}

func (f *fakeSceneService) ReorderScenes(context.Context, string, string, *services.ReorderScenesRequest) ([]models.Scene, error) {
	return nil, fmt.Errorf("not used")
}
