package scenestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
)

const testProject = "11111111-1111-4111-8111-111111111111"

var errBoom = errors.New("server unavailable")

// fakeBackend is an in-memory server. Failures are injected per method or
// per scene id; gate, when set, blocks calls until it is closed.
type fakeBackend struct {
	mu      sync.Mutex
	project *models.Project
	scenes  map[string]models.Scene
	seq     int

	failCreate bool
	failDelete bool
	failList   bool
	failUpdate map[string]bool

	updates []string
	gate    chan struct{}

	inFlight    int
	maxInFlight int
}

func newFakeBackend(contents ...string) *fakeBackend {
	b := &fakeBackend{
		project:    &models.Project{ID: testProject, UserID: "user-1", Title: "Night Market"},
		scenes:     make(map[string]models.Scene),
		failUpdate: make(map[string]bool),
	}
	for i, c := range contents {
		b.seq++
		id := fmt.Sprintf("scene-%d", b.seq)
		b.scenes[id] = models.Scene{ID: id, ProjectID: testProject, OrderIndex: i, Content: c}
	}
	return b
}

func (b *fakeBackend) wait(ctx context.Context) error {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *fakeBackend) GetProject(ctx context.Context, id string) (*models.Project, error) {
	if id != b.project.ID {
		return nil, domain.ErrNotFound
	}
	p := *b.project
	return &p, nil
}

func (b *fakeBackend) ListScenes(ctx context.Context, projectID string) ([]models.Scene, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failList {
		return nil, errBoom
	}
	out := make([]models.Scene, 0, len(b.scenes))
	for _, sc := range b.scenes {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (b *fakeBackend) CreateScene(ctx context.Context, projectID string, orderIndex int) (*models.Scene, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failCreate {
		return nil, errBoom
	}
	b.seq++
	sc := models.Scene{ID: fmt.Sprintf("scene-%d", b.seq), ProjectID: projectID, OrderIndex: orderIndex, CreatedAt: time.Now()}
	b.scenes[sc.ID] = sc
	return &sc, nil
}

func (b *fakeBackend) UpdateScene(ctx context.Context, id string, u *models.SceneUpdate) (*models.Scene, error) {
	b.mu.Lock()
	b.inFlight++
	b.maxInFlight = max(b.maxInFlight, b.inFlight)
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	time.Sleep(time.Millisecond)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, id)
	if b.failUpdate[id] {
		return nil, errBoom
	}
	sc, ok := b.scenes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.Content != nil {
		sc.Content = *u.Content
	}
	if u.OrderIndex != nil {
		sc.OrderIndex = *u.OrderIndex
	}
	if u.ImageURL != nil {
		sc.ImageURL = nilIfEmpty(*u.ImageURL)
	}
	if u.AINotes != nil {
		sc.AINotes = nilIfEmpty(*u.AINotes)
	}
	if u.ShotType != nil {
		sc.ShotType = nilIfEmpty(*u.ShotType)
	}
	sc.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b.scenes[id] = sc
	return &sc, nil
}

func (b *fakeBackend) DeleteScene(ctx context.Context, id string) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete {
		return errBoom
	}
	if _, ok := b.scenes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(b.scenes, id)
	return nil
}

func (b *fakeBackend) scene(id string) models.Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scenes[id]
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ids(scenes []models.Scene) []string {
	out := make([]string, len(scenes))
	for i, sc := range scenes {
		out[i] = sc.ID
	}
	return out
}

func orders(scenes []models.Scene) []int {
	out := make([]int, len(scenes))
	for i, sc := range scenes {
		out[i] = sc.OrderIndex
	}
	return out
}
