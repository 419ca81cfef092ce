package storyboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/repositories"
	"storyboard/internal/repository/postgres"
)

// PostgresProjectRepository implements the ProjectRepository interface
type PostgresProjectRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(config *postgres.RepositoryConfig) repositories.ProjectRepository {
	return &PostgresProjectRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// is_deleted is stored as 0/1 and read back as a bool
const projectColumns = `id, user_id, title, description, image_size, is_deleted <> 0, deleted_at, created_at, updated_at`

func scanProject(row pgx.Row, project *models.Project) error {
	return row.Scan(
		&project.ID,
		&project.UserID,
		&project.Title,
		&project.Description,
		&project.ImageSize,
		&project.IsDeleted,
		&project.DeletedAt,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
}

// Create creates a new project. An empty ImageSize takes the column default.
func (r *PostgresProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, description, image_size, created_at, updated_at)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), '%s'), NOW(), NOW())
		RETURNING %s
	`, r.tables.Projects, models.DefaultProjectImageSize, projectColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := scanProject(executor.QueryRow(ctx, query,
		project.UserID,
		project.Title,
		project.Description,
		project.ImageSize,
	), project)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("user %s: %w", project.UserID, domain.ErrNotFound)
		}
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted project
func (r *PostgresProjectRepository) GetByID(ctx context.Context, id, userID string) (*models.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2 AND is_deleted = 0
	`, projectColumns, r.tables.Projects)

	return r.getOne(ctx, query, id, userID)
}

// GetOwnerID returns the user_id of an active project
func (r *PostgresProjectRepository) GetOwnerID(ctx context.Context, id string) (string, error) {
	query := fmt.Sprintf(`
		SELECT user_id
		FROM %s
		WHERE id = $1 AND is_deleted = 0
	`, r.tables.Projects)

	var ownerID string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&ownerID); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return "", fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get project owner: %w", err)
	}
	return ownerID, nil
}

// GetByIDIncludingDeleted retrieves a project whether or not it is in the trash
func (r *PostgresProjectRepository) GetByIDIncludingDeleted(ctx context.Context, id, userID string) (*models.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, projectColumns, r.tables.Projects)

	return r.getOne(ctx, query, id, userID)
}

// List retrieves active projects for a user, ordered by updated_at DESC
func (r *PostgresProjectRepository) List(ctx context.Context, userID string) ([]models.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND is_deleted = 0
		ORDER BY updated_at DESC
	`, projectColumns, r.tables.Projects)

	return r.list(ctx, query, userID)
}

// ListDeleted retrieves trashed projects for a user, ordered by deleted_at DESC
func (r *PostgresProjectRepository) ListDeleted(ctx context.Context, userID string) ([]models.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND is_deleted = 1
		ORDER BY deleted_at DESC
	`, projectColumns, r.tables.Projects)

	return r.list(ctx, query, userID)
}

// Update writes the editable fields and bumps updated_at
func (r *PostgresProjectRepository) Update(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, description = $2, image_size = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5 AND is_deleted = 0
		RETURNING updated_at
	`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		project.Title,
		project.Description,
		project.ImageSize,
		project.ID,
		project.UserID,
	).Scan(&project.UpdatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("project %s: %w", project.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update project: %w", err)
	}

	return nil
}

// Touch bumps updated_at so the project sorts first in the list
func (r *PostgresProjectRepository) Touch(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET updated_at = NOW() WHERE id = $1`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}

// SoftDelete moves a project to the trash
func (r *PostgresProjectRepository) SoftDelete(ctx context.Context, id, userID string) (*models.Project, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = 1, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_deleted = 0
		RETURNING %s
	`, r.tables.Projects, projectColumns)

	return r.getOne(ctx, query, id, userID)
}

// Restore takes a project out of the trash
func (r *PostgresProjectRepository) Restore(ctx context.Context, id, userID string) (*models.Project, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = 0, deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_deleted = 1
		RETURNING %s
	`, r.tables.Projects, projectColumns)

	return r.getOne(ctx, query, id, userID)
}

// HardDelete removes a project row. Scenes go with it (ON DELETE CASCADE).
func (r *PostgresProjectRepository) HardDelete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresProjectRepository) getOne(ctx context.Context, query, id, userID string) (*models.Project, error) {
	var project models.Project
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanProject(executor.QueryRow(ctx, query, id, userID), &project); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

func (r *PostgresProjectRepository) list(ctx context.Context, query, userID string) ([]models.Project, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var project models.Project
		if err := scanProject(rows, &project); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	// Return empty slice instead of nil if no projects
	if projects == nil {
		projects = []models.Project{}
	}

	return projects, nil
}
