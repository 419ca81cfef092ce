package storyboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu       sync.Mutex
	projects map[string]*models.Project
	scenes   map[string]*models.Scene
	seq      int
	clock    time.Time
	touched  map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		projects: map[string]*models.Project{},
		scenes:   map[string]*models.Scene{},
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		touched:  map[string]int{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) id() string {
	m.seq++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
}

type memProjectRepo struct{ *memStore }

func (r memProjectRepo) Create(_ context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	if p.ImageSize == "" {
		p.ImageSize = models.DefaultProjectImageSize
	}
	p.CreatedAt = r.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r memProjectRepo) get(id, userID string, includeDeleted bool) (*models.Project, error) {
	p, ok := r.projects[id]
	if !ok || p.UserID != userID || (p.IsDeleted && !includeDeleted) {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r memProjectRepo) GetByID(_ context.Context, id, userID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id, userID, false)
}

func (r memProjectRepo) GetOwnerID(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.IsDeleted {
		return "", fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return p.UserID, nil
}

func (r memProjectRepo) GetByIDIncludingDeleted(_ context.Context, id, userID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id, userID, true)
}

func (r memProjectRepo) list(userID string, deleted bool) []models.Project {
	out := []models.Project{}
	for _, p := range r.projects {
		if p.UserID == userID && p.IsDeleted == deleted {
			out = append(out, *p)
		}
	}
	return out
}

func (r memProjectRepo) List(_ context.Context, userID string) ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.list(userID, false)
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r memProjectRepo) ListDeleted(_ context.Context, userID string) ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.list(userID, true)
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.After(*out[j].DeletedAt) })
	return out, nil
}

func (r memProjectRepo) Update(_ context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.get(p.ID, p.UserID, false)
	if err != nil {
		return err
	}
	stored.Title, stored.Description, stored.ImageSize = p.Title, p.Description, p.ImageSize
	stored.UpdatedAt = r.tick()
	p.UpdatedAt = stored.UpdatedAt
	r.projects[p.ID] = stored
	return nil
}

func (r memProjectRepo) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.UpdatedAt = r.tick()
		r.touched[id]++
	}
	return nil
}

func (r memProjectRepo) SoftDelete(_ context.Context, id, userID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(id, userID, false); err != nil {
		return nil, err
	}
	now := r.tick()
	p := r.projects[id]
	p.IsDeleted, p.DeletedAt, p.UpdatedAt = true, &now, now
	cp := *p
	return &cp, nil
}

func (r memProjectRepo) Restore(_ context.Context, id, userID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.UserID != userID || !p.IsDeleted {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	p.IsDeleted, p.DeletedAt, p.UpdatedAt = false, nil, r.tick()
	cp := *p
	return &cp, nil
}

func (r memProjectRepo) HardDelete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(id, userID, true); err != nil {
		return err
	}
	delete(r.projects, id)
	for sid, sc := range r.scenes {
		if sc.ProjectID == id {
			delete(r.scenes, sid)
		}
	}
	return nil
}

type memSceneRepo struct{ *memStore }

func (r memSceneRepo) ListByProject(_ context.Context, projectID string) ([]models.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Scene{}
	for _, sc := range r.scenes {
		if sc.ProjectID == projectID {
			out = append(out, *sc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r memSceneRepo) GetByID(_ context.Context, id string) (*models.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.scenes[id]
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
	}
	cp := *sc
	return &cp, nil
}

func (r memSceneRepo) Create(_ context.Context, sc *models.Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[sc.ProjectID]; !ok {
		return fmt.Errorf("project %s: %w", sc.ProjectID, domain.ErrNotFound)
	}
	sc.ID = r.id()
	sc.CreatedAt = r.tick()
	sc.UpdatedAt = sc.CreatedAt
	cp := *sc
	r.scenes[sc.ID] = &cp
	return nil
}

func (r memSceneRepo) Update(_ context.Context, id string, u *models.SceneUpdate) (*models.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.scenes[id]
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
	}
	if u.Content != nil {
		sc.Content = *u.Content
	}
	if u.OrderIndex != nil {
		sc.OrderIndex = *u.OrderIndex
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
	sc.UpdatedAt = r.tick()
	cp := *sc
	return &cp, nil
}

func (r memSceneRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenes[id]; !ok {
		return fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
	}
	delete(r.scenes, id)
	return nil
}

func (r memSceneRepo) SetOrder(_ context.Context, projectID string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, id := range ids {
		if sc, ok := r.scenes[id]; ok && sc.ProjectID == projectID {
			sc.OrderIndex = i
		}
	}
	return nil
}

// memTxManager records how many transactions ran
type memTxManager struct{ runs int }

func (m *memTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	m.runs++
	return fn(ctx)
}
