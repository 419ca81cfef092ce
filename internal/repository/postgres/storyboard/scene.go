package storyboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/repositories"
	"storyboard/internal/repository/postgres"
)

// PostgresSceneRepository implements the SceneRepository interface
type PostgresSceneRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSceneRepository creates a new scene repository
func NewSceneRepository(config *postgres.RepositoryConfig) repositories.SceneRepository {
	return &PostgresSceneRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const sceneColumns = `id, project_id, order_index, content, image_url, ai_notes,
	shot_number, frame, shot_type, duration_seconds, notes, created_at, updated_at`

func scanScene(row pgx.Row, scene *models.Scene) error {
	return row.Scan(
		&scene.ID,
		&scene.ProjectID,
		&scene.OrderIndex,
		&scene.Content,
		&scene.ImageURL,
		&scene.AINotes,
		&scene.ShotNumber,
		&scene.Frame,
		&scene.ShotType,
		&scene.DurationSeconds,
		&scene.Notes,
		&scene.CreatedAt,
		&scene.UpdatedAt,
	)
}

// ListByProject retrieves scenes of a project in display order
func (r *PostgresSceneRepository) ListByProject(ctx context.Context, projectID string) ([]models.Scene, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE project_id = $1
		ORDER BY order_index ASC, created_at ASC
	`, sceneColumns, r.tables.Scenes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []models.Scene
	for rows.Next() {
		var scene models.Scene
		if err := scanScene(rows, &scene); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		scenes = append(scenes, scene)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}

	if scenes == nil {
		scenes = []models.Scene{}
	}

	return scenes, nil
}

// GetByID retrieves a scene by ID
func (r *PostgresSceneRepository) GetByID(ctx context.Context, id string) (*models.Scene, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, sceneColumns, r.tables.Scenes)

	var scene models.Scene
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanScene(executor.QueryRow(ctx, query, id), &scene); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get scene: %w", err)
	}

	return &scene, nil
}

// Create inserts a scene
func (r *PostgresSceneRepository) Create(ctx context.Context, scene *models.Scene) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, order_index, content, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING %s
	`, r.tables.Scenes, sceneColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := scanScene(executor.QueryRow(ctx, query,
		scene.ProjectID,
		scene.OrderIndex,
		scene.Content,
	), scene)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("project %s: %w", scene.ProjectID, domain.ErrNotFound)
		}
		return fmt.Errorf("create scene: %w", err)
	}

	return nil
}

// Update applies the non-nil fields of update. updated_at is always set.
// Empty strings clear nullable text columns; a zero duration clears the duration.
func (r *PostgresSceneRepository) Update(ctx context.Context, id string, update *models.SceneUpdate) (*models.Scene, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	paramIndex := 1

	set := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, paramIndex))
		args = append(args, value)
		paramIndex++
	}

	if update.Content != nil {
		set("content", *update.Content)
	}
	if update.OrderIndex != nil {
		set("order_index", *update.OrderIndex)
	}
	if update.ImageURL != nil {
		set("image_url", nullableString(*update.ImageURL))
	}
	if update.AINotes != nil {
		set("ai_notes", nullableString(*update.AINotes))
	}
	if update.ShotNumber != nil {
		set("shot_number", nullableString(*update.ShotNumber))
	}
	if update.Frame != nil {
		set("frame", nullableString(*update.Frame))
	}
	if update.ShotType != nil {
		set("shot_type", nullableString(*update.ShotType))
	}
	if update.DurationSeconds != nil {
		if *update.DurationSeconds <= 0 {
			set("duration_seconds", nil)
		} else {
			set("duration_seconds", *update.DurationSeconds)
		}
	}
	if update.Notes != nil {
		set("notes", nullableString(*update.Notes))
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, r.tables.Scenes, strings.Join(setClauses, ", "), paramIndex, sceneColumns)
	args = append(args, id)

	var scene models.Scene
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanScene(executor.QueryRow(ctx, query, args...), &scene); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update scene: %w", err)
	}

	return &scene, nil
}

// Delete removes a scene
func (r *PostgresSceneRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Scenes)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetOrder assigns order_index = position for every id, queued as one batch.
// Callers wanting atomicity run it inside ExecTx.
func (r *PostgresSceneRepository) SetOrder(ctx context.Context, projectID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET order_index = $1, updated_at = NOW()
		WHERE id = $2 AND project_id = $3
	`, r.tables.Scenes)

	batch := &pgx.Batch{}
	for i, id := range orderedIDs {
		batch.Queue(query, i, id, projectID)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	results := executor.SendBatch(ctx, batch)
	defer results.Close()

	for range orderedIDs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("reorder scenes: %w", err)
		}
	}

	return results.Close()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
