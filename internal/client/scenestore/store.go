// Package scenestore holds the client-side state of one open storyboard
// project. Edits are applied to local state first and confirmed against the
// server in the background; a failed confirmation restores state according
// to the operation's rollback policy.
package scenestore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storyboard/internal/domain/models"
)

const tempPrefix = "temp-"

var (
	ErrClosed        = errors.New("scene store is closed")
	ErrNoProject     = errors.New("no project is open")
	ErrSceneNotFound = errors.New("scene not found")
	ErrPending       = errors.New("scene is still being created")
	ErrStale         = errors.New("store was reopened while the request was in flight")
)

// Backend is the server API the store confirms operations against
type Backend interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListScenes(ctx context.Context, projectID string) ([]models.Scene, error)
	CreateScene(ctx context.Context, projectID string, orderIndex int) (*models.Scene, error)
	UpdateScene(ctx context.Context, id string, update *models.SceneUpdate) (*models.Scene, error)
	DeleteScene(ctx context.Context, id string) error
}

// State is a copy of the store's state. Scenes are in display order.
type State struct {
	Project                 *models.Project
	Scenes                  []models.Scene
	SelectedSceneID         string
	IsLoading               bool
	GeneratingImageForScene string
}

// Listener is called after every state transition, in transition order.
// It must not call mutating Store methods.
type Listener func(State)

// Store is the single writer of one project's scene state. A mutex
// serializes transitions; network calls run outside it.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	backend     Backend
	logger      *slog.Logger
	now         func() time.Time
	rollback    map[OpKind]Rollback
	concurrency int
	listeners   []Listener

	state     State
	confirmed map[string]models.Scene // last server copy per scene id
	closed    bool
	epoch     uint64
	lastTemp  int64
	log       txLog
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRollback sets the rollback granularity of one operation kind
func WithRollback(op OpKind, rb Rollback) Option {
	return func(s *Store) { s.rollback[op] = rb }
}

// WithListener registers a change listener
func WithListener(l Listener) Option {
	return func(s *Store) { s.listeners = append(s.listeners, l) }
}

// WithReorderConcurrency bounds the per-scene updates a reorder runs at once
func WithReorderConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogSize keeps only the n most recent log entries (0 keeps all)
func WithLogSize(n int) Option {
	return func(s *Store) { s.log.max = n }
}

// New creates an empty, open store
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
		rollback:    DefaultRollback(),
		concurrency: 4,
		confirmed:   make(map[string]models.Scene),
		log:         txLog{max: 200},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsTempID reports whether id names a scene that is not yet created on the server
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyStateLocked()
}

// Log returns a copy of the transaction log, oldest first
func (s *Store) Log() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.snapshot()
}

// Open loads a project and its scenes, replacing any previous state.
// Requests still in flight for the previous project are discarded.
func (s *Store) Open(ctx context.Context, projectID string) error {
	s.mu.Lock()
	s.closed = false
	s.epoch++
	epoch := s.epoch
	s.state = State{IsLoading: true}
	s.confirmed = make(map[string]models.Scene)
	s.unlockAndNotify()

	var project *models.Project
	var scenes []models.Scene
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.backend.GetProject(gctx, projectID)
		project = p
		return err
	})
	g.Go(func() error {
		list, err := s.backend.ListScenes(gctx, projectID)
		scenes = list
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	if s.epoch != epoch {
		stale := s.staleErrLocked()
		s.mu.Unlock()
		return stale
	}
	s.state.IsLoading = false
	if err != nil {
		s.unlockAndNotify()
		return fmt.Errorf("open project %s: %w", projectID, err)
	}
	s.state.Project = project
	s.setScenesLocked(scenes)
	s.unlockAndNotify()

	s.logger.Debug("project opened", "project_id", projectID, "scenes", len(scenes))
	return nil
}

// Close discards all state. Later operations fail with ErrClosed until Open.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.epoch++
	s.state = State{}
	s.confirmed = make(map[string]models.Scene)
	s.unlockAndNotify()
}

// SetProject replaces the project
func (s *Store) SetProject(project *models.Project) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if project != nil {
		p := *project
		project = &p
	}
	s.state.Project = project
	s.unlockAndNotify()
	return nil
}

// SetScenes replaces the scene list and treats it as server-confirmed
func (s *Store) SetScenes(scenes []models.Scene) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.setScenesLocked(scenes)
	s.unlockAndNotify()
	return nil
}

// SelectScene selects a scene; an empty id clears the selection
func (s *Store) SelectScene(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if id != "" && s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	s.state.SelectedSceneID = id
	s.unlockAndNotify()
	return nil
}

// SetGeneratingImage marks the scene an image is being generated for; "" clears it
func (s *Store) SetGeneratingImage(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state.GeneratingImageForScene = id
	s.unlockAndNotify()
	return nil
}

// UpdateField changes one field of a scene locally. Nothing is sent until
// PersistScene.
func (s *Store) UpdateField(id string, field Field, value interface{}) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	if err := setField(&s.state.Scenes[i], field, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.unlockAndNotify()
	return nil
}

// AddScene appends an empty scene after the last one. A placeholder with a
// temporary id is shown at once and replaced by the server record.
func (s *Store) AddScene(ctx context.Context) (*models.Scene, error) {
	s.mu.Lock()
	if err := s.requireProjectLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	projectID := s.state.Project.ID
	order := nextOrderIndex(s.state.Scenes)
	tempID := s.tempIDLocked()
	now := s.now()

	before := cloneScenes(s.state.Scenes)
	s.state.Scenes = append(s.state.Scenes, models.Scene{
		ID:         tempID,
		ProjectID:  projectID,
		OrderIndex: order,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	entry := s.log.begin(OpAdd, []string{tempID}, s.rollback[OpAdd], now)
	epoch := s.epoch
	s.unlockAndNotify()

	created, err := s.backend.CreateScene(ctx, projectID, order)

	s.mu.Lock()
	if s.epoch != epoch {
		entry.finish(OutcomeDiscarded, err, s.now())
		stale := s.staleErrLocked()
		s.mu.Unlock()
		return nil, stale
	}
	if err != nil {
		outcome := s.rollbackLocked(entry, before, func() { s.removeLocked(tempID) })
		entry.finish(outcome, err, s.now())
		s.unlockAndNotify()
		s.logger.Warn("add scene failed", "project_id", projectID, "rollback", entry.Rollback.String(), "error", err)
		return nil, fmt.Errorf("add scene: %w", err)
	}

	if i := s.indexLocked(tempID); i >= 0 {
		s.state.Scenes[i] = *created
	} else if s.indexLocked(created.ID) < 0 {
		s.state.Scenes = append(s.state.Scenes, *created)
		sortScenes(s.state.Scenes)
	}
	if s.state.SelectedSceneID == tempID {
		s.state.SelectedSceneID = created.ID
	}
	s.confirmed[created.ID] = *created
	entry.SceneIDs = append(entry.SceneIDs, created.ID)
	entry.finish(OutcomeCommitted, nil, s.now())
	s.unlockAndNotify()

	out := *created
	return &out, nil
}

// PersistScene sends the given fields of a scene to the server. With no
// fields it sends content, image_url and ai_notes. On failure the error is
// logged and returned; local edits stay unless a rollback policy is set,
// in which case the scene returns to its last server copy.
func (s *Store) PersistScene(ctx context.Context, id string, fields ...Field) error {
	if len(fields) == 0 {
		fields = []Field{FieldContent, FieldImageURL, FieldAINotes}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if IsTempID(id) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPending, id)
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	update, err := buildUpdate(&s.state.Scenes[i], fields)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	entry := s.log.begin(OpPersist, []string{id}, s.rollback[OpPersist], s.now())
	epoch := s.epoch
	s.mu.Unlock()

	updated, err := s.backend.UpdateScene(ctx, id, update)

	s.mu.Lock()
	if s.epoch != epoch {
		entry.finish(OutcomeDiscarded, err, s.now())
		stale := s.staleErrLocked()
		s.mu.Unlock()
		return stale
	}
	if err != nil {
		outcome := OutcomeFailed
		if entry.Rollback != RollbackNone {
			if server, ok := s.confirmed[id]; ok {
				if j := s.indexLocked(id); j >= 0 {
					s.state.Scenes[j] = server
					outcome = OutcomeRolledBack
				}
			}
		}
		entry.finish(outcome, err, s.now())
		s.unlockAndNotify()
		s.logger.Error("persist scene failed", "scene_id", id, "rollback", entry.Rollback.String(), "error", err)
		return fmt.Errorf("persist scene %s: %w", id, err)
	}

	s.confirmed[id] = *updated
	if j := s.indexLocked(id); j >= 0 {
		s.state.Scenes[j].UpdatedAt = updated.UpdatedAt
	}
	entry.finish(OutcomeCommitted, nil, s.now())
	s.unlockAndNotify()
	return nil
}

// RemoveScene removes a scene locally, then deletes it on the server.
// On failure the scene reappears at its original position; edits made to
// other scenes meanwhile are kept. WithRollback(OpRemove, RollbackAll)
// restores the whole list captured before the removal instead.
func (s *Store) RemoveScene(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if IsTempID(id) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPending, id)
	}
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	removed := s.state.Scenes[idx]
	before := cloneScenes(s.state.Scenes)
	wasSelected := s.state.SelectedSceneID == id
	s.removeLocked(id)
	entry := s.log.begin(OpRemove, []string{id}, s.rollback[OpRemove], s.now())
	epoch := s.epoch
	s.unlockAndNotify()

	err := s.backend.DeleteScene(ctx, id)

	s.mu.Lock()
	if s.epoch != epoch {
		entry.finish(OutcomeDiscarded, err, s.now())
		stale := s.staleErrLocked()
		s.mu.Unlock()
		return stale
	}
	if err != nil {
		outcome := s.rollbackLocked(entry, before, func() {
			if s.indexLocked(id) >= 0 {
				return
			}
			at := min(idx, len(s.state.Scenes))
			s.state.Scenes = slices.Insert(s.state.Scenes, at, removed)
		})
		if outcome == OutcomeRolledBack && wasSelected {
			s.state.SelectedSceneID = id
		}
		entry.finish(outcome, err, s.now())
		s.unlockAndNotify()
		s.logger.Warn("remove scene failed", "scene_id", id, "rollback", entry.Rollback.String(), "error", err)
		return fmt.Errorf("remove scene %s: %w", id, err)
	}

	delete(s.confirmed, id)
	entry.finish(OutcomeCommitted, nil, s.now())
	s.mu.Unlock()
	return nil
}

// Refresh replaces the scene list with a fresh server read
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requireProjectLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	projectID := s.state.Project.ID
	s.state.IsLoading = true
	entry := s.log.begin(OpRefresh, nil, s.rollback[OpRefresh], s.now())
	epoch := s.epoch
	s.unlockAndNotify()

	scenes, err := s.backend.ListScenes(ctx, projectID)

	s.mu.Lock()
	if s.epoch != epoch {
		entry.finish(OutcomeDiscarded, err, s.now())
		stale := s.staleErrLocked()
		s.mu.Unlock()
		return stale
	}
	s.state.IsLoading = false
	if err != nil {
		entry.finish(OutcomeFailed, err, s.now())
		s.unlockAndNotify()
		return fmt.Errorf("refresh scenes: %w", err)
	}
	s.setScenesLocked(scenes)
	entry.finish(OutcomeCommitted, nil, s.now())
	s.unlockAndNotify()
	return nil
}

// Reorder puts the listed scenes first in the given order, followed by any
// unlisted scenes in their current order, and renumbers positions 0..n-1.
// Unknown ids are dropped. Changed positions are persisted as independent
// per-scene updates, a bounded number at a time; if any fails the whole
// reorder is rolled back locally per policy.
func (s *Store) Reorder(ctx context.Context, ids []string) error {
	s.mu.Lock()
	if err := s.requireProjectLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	for _, sc := range s.state.Scenes {
		if IsTempID(sc.ID) {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrPending, sc.ID)
		}
	}

	before := cloneScenes(s.state.Scenes)
	ordered := resolveOrder(s.state.Scenes, ids)
	previous := make(map[string]int, len(before))
	for _, sc := range before {
		previous[sc.ID] = sc.OrderIndex
	}
	var changed []models.Scene
	var changedIDs []string
	for _, sc := range ordered {
		if previous[sc.ID] != sc.OrderIndex {
			changed = append(changed, sc)
			changedIDs = append(changedIDs, sc.ID)
		}
	}

	s.state.Scenes = ordered
	entry := s.log.begin(OpReorder, changedIDs, s.rollback[OpReorder], s.now())
	epoch := s.epoch
	if len(changed) == 0 {
		entry.finish(OutcomeCommitted, nil, s.now())
		s.unlockAndNotify()
		return nil
	}
	s.unlockAndNotify()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, sc := range changed {
		id, order := sc.ID, sc.OrderIndex
		g.Go(func() error {
			_, err := s.backend.UpdateScene(gctx, id, &models.SceneUpdate{OrderIndex: &order})
			if err != nil {
				return fmt.Errorf("scene %s: %w", id, err)
			}
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	if s.epoch != epoch {
		entry.finish(OutcomeDiscarded, err, s.now())
		stale := s.staleErrLocked()
		s.mu.Unlock()
		return stale
	}
	if err != nil {
		outcome := s.rollbackLocked(entry, before, func() {
			for i := range s.state.Scenes {
				if order, ok := previous[s.state.Scenes[i].ID]; ok {
					s.state.Scenes[i].OrderIndex = order
				}
			}
			sortScenes(s.state.Scenes)
		})
		entry.finish(outcome, err, s.now())
		s.unlockAndNotify()
		s.logger.Warn("reorder failed", "scenes", len(changed), "rollback", entry.Rollback.String(), "error", err)
		return fmt.Errorf("reorder scenes: %w", err)
	}

	for _, sc := range changed {
		if server, ok := s.confirmed[sc.ID]; ok {
			server.OrderIndex = sc.OrderIndex
			s.confirmed[sc.ID] = server
		}
	}
	entry.finish(OutcomeCommitted, nil, s.now())
	s.mu.Unlock()
	return nil
}

// MoveUp swaps a scene with the one before it. The first scene stays put.
func (s *Store) MoveUp(ctx context.Context, id string) error {
	return s.move(ctx, id, -1)
}

// MoveDown swaps a scene with the one after it. The last scene stays put.
func (s *Store) MoveDown(ctx context.Context, id string) error {
	return s.move(ctx, id, 1)
}

func (s *Store) move(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	j := i + delta
	if j < 0 || j >= len(s.state.Scenes) {
		s.mu.Unlock()
		return nil
	}
	ids := make([]string, len(s.state.Scenes))
	for k, sc := range s.state.Scenes {
		ids[k] = sc.ID
	}
	ids[i], ids[j] = ids[j], ids[i]
	s.mu.Unlock()

	return s.Reorder(ctx, ids)
}

// unlockAndNotify releases mu and runs listeners with the new state.
// notifyMu is taken before mu is released so listeners see transitions in order.
func (s *Store) unlockAndNotify() {
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	st := s.copyStateLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, l := range s.listeners {
		l(st)
	}
}

func (s *Store) copyStateLocked() State {
	st := s.state
	if st.Project != nil {
		p := *st.Project
		st.Project = &p
	}
	st.Scenes = cloneScenes(s.state.Scenes)
	return st
}

func (s *Store) requireProjectLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.state.Project == nil {
		return ErrNoProject
	}
	return nil
}

func (s *Store) staleErrLocked() error {
	if s.closed {
		return ErrClosed
	}
	return ErrStale
}

// rollbackLocked applies the entry's policy and reports the outcome
func (s *Store) rollbackLocked(entry *Entry, before []models.Scene, affected func()) Outcome {
	switch entry.Rollback {
	case RollbackAll:
		s.state.Scenes = before
		if s.state.SelectedSceneID != "" && s.indexLocked(s.state.SelectedSceneID) < 0 {
			s.state.SelectedSceneID = ""
		}
		return OutcomeRolledBack
	case RollbackAffected:
		affected()
		return OutcomeRolledBack
	default:
		return OutcomeFailed
	}
}

func (s *Store) setScenesLocked(scenes []models.Scene) {
	s.state.Scenes = cloneScenes(scenes)
	sortScenes(s.state.Scenes)
	s.confirmed = make(map[string]models.Scene, len(scenes))
	for _, sc := range s.state.Scenes {
		s.confirmed[sc.ID] = sc
	}
	if s.state.SelectedSceneID != "" && s.indexLocked(s.state.SelectedSceneID) < 0 {
		s.state.SelectedSceneID = ""
	}
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.state.Scenes, func(sc models.Scene) bool { return sc.ID == id })
}

func (s *Store) removeLocked(id string) {
	if i := s.indexLocked(id); i >= 0 {
		s.state.Scenes = slices.Delete(s.state.Scenes, i, i+1)
	}
	if s.state.SelectedSceneID == id {
		s.state.SelectedSceneID = ""
	}
}

// tempIDLocked returns "temp-<unix nanos>", bumped when the clock repeats
func (s *Store) tempIDLocked() string {
	n := s.now().UnixNano()
	if n <= s.lastTemp {
		n = s.lastTemp + 1
	}
	s.lastTemp = n
	return tempPrefix + strconv.FormatInt(n, 10)
}

func nextOrderIndex(scenes []models.Scene) int {
	if len(scenes) == 0 {
		return 0
	}
	highest := scenes[0].OrderIndex
	for _, sc := range scenes[1:] {
		highest = max(highest, sc.OrderIndex)
	}
	return highest + 1
}

// resolveOrder returns the scenes in requested order (known ids, first
// occurrence), then the rest in current order, renumbered from 0
func resolveOrder(current []models.Scene, ids []string) []models.Scene {
	byID := make(map[string]models.Scene, len(current))
	for _, sc := range current {
		byID[sc.ID] = sc
	}

	out := make([]models.Scene, 0, len(current))
	seen := make(map[string]bool, len(current))
	for _, id := range ids {
		sc, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, sc)
	}
	for _, sc := range current {
		if !seen[sc.ID] {
			out = append(out, sc)
		}
	}
	for i := range out {
		out[i].OrderIndex = i
	}
	return out
}

func sortScenes(scenes []models.Scene) {
	slices.SortStableFunc(scenes, func(a, b models.Scene) int {
		return cmp.Compare(a.OrderIndex, b.OrderIndex)
	})
}

func cloneScenes(scenes []models.Scene) []models.Scene {
	out := make([]models.Scene, len(scenes))
	copy(out, scenes)
	return out
}
