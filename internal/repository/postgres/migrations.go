package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// Migrations are Go functions rather than SQL files because every table
// name carries the environment prefix.
func migrations(t *TableNames) []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(1,
			&goose.GoFunc{RunTx: execAll(
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					email         VARCHAR(255) NOT NULL UNIQUE,
					password_hash TEXT NOT NULL,
					name          VARCHAR(255),
					created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
				)`, t.Users),
			)},
			&goose.GoFunc{RunTx: execAll(
				fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.Users),
			)},
		),
		goose.NewGoMigration(2,
			&goose.GoFunc{RunTx: execAll(
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id     UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
					title       VARCHAR(255) NOT NULL,
					description TEXT,
					image_size  VARCHAR(32) NOT NULL DEFAULT '1328*1328',
					is_deleted  INTEGER NOT NULL DEFAULT 0,
					deleted_at  TIMESTAMPTZ,
					created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
				)`, t.Projects, t.Users),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_active_idx ON %s (user_id, is_deleted, updated_at DESC)`,
					t.Projects, t.Projects),
			)},
			&goose.GoFunc{RunTx: execAll(
				fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.Projects),
			)},
		),
		goose.NewGoMigration(3,
			&goose.GoFunc{RunTx: execAll(
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					project_id       UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
					order_index      INTEGER NOT NULL DEFAULT 0,
					content          TEXT NOT NULL DEFAULT '',
					image_url        TEXT,
					ai_notes         TEXT,
					shot_number      VARCHAR(64),
					frame            TEXT,
					shot_type        VARCHAR(64),
					duration_seconds INTEGER,
					notes            TEXT,
					created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
				)`, t.Scenes, t.Projects),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_project_order_idx ON %s (project_id, order_index)`,
					t.Scenes, t.Scenes),
			)},
			&goose.GoFunc{RunTx: execAll(
				fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.Scenes),
			)},
		),
	}
}

func execAll(statements ...string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// Migrator applies the schema for one table prefix
type Migrator struct {
	provider *goose.Provider
	db       *sql.DB
	logger   *slog.Logger
}

// NewMigrator wraps the pool in a database/sql handle for goose.
// Close releases the handle but leaves the pool open.
func NewMigrator(pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) (*Migrator, error) {
	db := stdlib.OpenDBFromPool(pool)

	store, err := database.NewStore(database.DialectPostgres, tables.GooseVersions)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migration store: %w", err)
	}

	provider, err := goose.NewProvider("", db, nil,
		goose.WithStore(store),
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations(tables)...),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	return &Migrator{provider: provider, db: db, logger: logger}, nil
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		m.logger.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Reset rolls every migration back, dropping the tables
func (m *Migrator) Reset(ctx context.Context) error {
	results, err := m.provider.DownTo(ctx, 0)
	if err != nil {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	for _, r := range results {
		m.logger.Info("migration rolled back", "version", r.Source.Version)
	}
	return nil
}

// Version returns the current schema version
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

func (m *Migrator) Close() error {
	return m.db.Close()
}
