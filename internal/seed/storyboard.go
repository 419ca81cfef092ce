package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
)

// DemoEmail and DemoPassword are the credentials of the seeded account
const (
	DemoEmail    = "demo@storyboard.local"
	DemoPassword = "storyboard"
)

// Scene is one seeded storyboard scene
type Scene struct {
	Content    string
	ShotNumber string
	ShotType   string
	Frame      string
	Duration   int
	Notes      string
}

// DemoScenes is the short film seeded into the demo project
var DemoScenes = []Scene{
	{
		Content:    "Dusk. Lanterns flicker on above the night market as stall owners lift their shutters.",
		ShotNumber: "1A",
		ShotType:   "Wide",
		Frame:      "Establishing",
		Duration:   6,
		Notes:      "Ambient crowd noise fades in",
	},
	{
		Content:    "Mei weaves through the crowd, clutching a folded paper map.",
		ShotNumber: "1B",
		ShotType:   "Medium",
		Frame:      "Tracking",
		Duration:   4,
	},
	{
		Content:    "Close on the map: a red circle around a stall that is no longer there.",
		ShotNumber: "2",
		ShotType:   "Close-up",
		Frame:      "Insert",
		Duration:   3,
		Notes:      "Mei (V.O.): It was here. It was always here.",
	},
	{
		Content:    "An old vendor watches her from behind a wall of steaming baskets.",
		ShotNumber: "3",
		ShotType:   "Over-the-shoulder",
		Duration:   5,
	},
}

// StoryboardSeeder creates the demo account, project and scenes through the
// service layer so the same validation applies as for API requests.
type StoryboardSeeder struct {
	auth     services.AuthService
	projects services.ProjectService
	scenes   services.SceneService
	logger   *slog.Logger
}

// NewStoryboardSeeder creates a new storyboard seeder
func NewStoryboardSeeder(
	auth services.AuthService,
	projects services.ProjectService,
	scenes services.SceneService,
	logger *slog.Logger,
) *StoryboardSeeder {
	return &StoryboardSeeder{
		auth:     auth,
		projects: projects,
		scenes:   scenes,
		logger:   logger,
	}
}

// EnsureDemoUser signs the demo user up, or logs in when the account exists.
func (s *StoryboardSeeder) EnsureDemoUser(ctx context.Context) (*models.User, error) {
	user, err := s.auth.Signup(ctx, &services.SignupRequest{
		Email:           DemoEmail,
		Password:        DemoPassword,
		ConfirmPassword: DemoPassword,
		Name:            "Demo",
	})
	if err == nil {
		s.logger.Info("demo user created", "user_id", user.ID)
		return user, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("create demo user: %w", err)
	}

	user, err = s.auth.Login(ctx, &services.LoginRequest{Email: DemoEmail, Password: DemoPassword})
	if err != nil {
		return nil, fmt.Errorf("demo user exists with another password: %w", err)
	}
	return user, nil
}

// SeedProject creates a project titled title for userID and fills it with scenes.
func (s *StoryboardSeeder) SeedProject(ctx context.Context, userID, title string, scenes []Scene) (*models.Project, error) {
	description := "Seeded demo storyboard"
	project, err := s.projects.CreateProject(ctx, &services.CreateProjectRequest{
		UserID:      userID,
		Title:       title,
		Description: &description,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	for i, sc := range scenes {
		created, err := s.scenes.CreateScene(ctx, userID, &services.CreateSceneRequest{
			ProjectID:  project.ID,
			OrderIndex: i,
			Content:    sc.Content,
		})
		if err != nil {
			return nil, fmt.Errorf("create scene %d: %w", i+1, err)
		}

		update := sc.update()
		if update.IsEmpty() {
			continue
		}
		if _, err := s.scenes.UpdateScene(ctx, created.ID, userID, update); err != nil {
			return nil, fmt.Errorf("update scene %d: %w", i+1, err)
		}
	}

	s.logger.Info("project seeded", "project_id", project.ID, "scenes", len(scenes))
	return project, nil
}

func (sc Scene) update() *models.SceneUpdate {
	u := &models.SceneUpdate{}
	if sc.ShotNumber != "" {
		u.ShotNumber = &sc.ShotNumber
	}
	if sc.ShotType != "" {
		u.ShotType = &sc.ShotType
	}
	if sc.Frame != "" {
		u.Frame = &sc.Frame
	}
	if sc.Duration > 0 {
		u.DurationSeconds = &sc.Duration
	}
	if sc.Notes != "" {
		u.Notes = &sc.Notes
	}
	return u
}
