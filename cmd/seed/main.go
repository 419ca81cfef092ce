package main

import (
	"context"
	"flag"
	"log"

	"storyboard/internal/config"
	"storyboard/internal/repository/postgres"
	postgresStoryboard "storyboard/internal/repository/postgres/storyboard"
	"storyboard/internal/seed"
	serviceAuth "storyboard/internal/service/auth"
	serviceStoryboard "storyboard/internal/service/storyboard"

	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Roll back every migration before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only apply migrations, don't seed data")
	title := flag.String("title", "Night Market", "Title of the seeded project")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: --drop-tables is not allowed in production")
	}

	logger, syncLogs := config.NewLogger(cfg.Debug, nil)
	defer syncLogs()

	logger.Info("seeding database", "environment", cfg.Environment, "table_prefix", cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	migrator, err := postgres.NewMigrator(pool, tables, logger)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	defer migrator.Close()

	if *dropTables {
		logger.Warn("dropping all tables")
		if err := migrator.Reset(ctx); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	if err := migrator.Up(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	version, err := migrator.Version(ctx)
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	logger.Info("schema ready", "version", version)

	if *schemaOnly {
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	projectRepo := postgresStoryboard.NewProjectRepository(repoConfig)
	sceneRepo := postgresStoryboard.NewSceneRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	authorizer := serviceAuth.NewOwnerBasedAuthorizer(projectRepo, sceneRepo)
	seeder := seed.NewStoryboardSeeder(
		serviceAuth.NewAuthService(userRepo, logger),
		serviceStoryboard.NewProjectService(projectRepo, logger),
		serviceStoryboard.NewSceneService(sceneRepo, projectRepo, txManager, authorizer, logger),
		logger,
	)

	user, err := seeder.EnsureDemoUser(ctx)
	if err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}

	project, err := seeder.SeedProject(ctx, user.ID, *title, seed.DemoScenes)
	if err != nil {
		log.Fatalf("Failed to seed project: %v", err)
	}

	logger.Info("seeding complete",
		"email", seed.DemoEmail,
		"password", seed.DemoPassword,
		"project_id", project.ID,
	)
}
