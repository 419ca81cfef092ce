package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyboard/internal/auth"
	"storyboard/internal/capabilities"
	"storyboard/internal/config"
	"storyboard/internal/domain/services"
	"storyboard/internal/handler"
	"storyboard/internal/imagedata"
	"storyboard/internal/middleware"
	"storyboard/internal/repository/postgres"
	postgresStoryboard "storyboard/internal/repository/postgres/storyboard"
	serviceAuth "storyboard/internal/service/auth"
	"storyboard/internal/service/export"
	serviceLLM "storyboard/internal/service/llm"
	"storyboard/internal/service/llm/tools/external"
	serviceStoryboard "storyboard/internal/service/storyboard"
	"storyboard/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Optional log file next to stdout
	var logOut io.Writer
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}

	logger, syncLogs := config.NewLogger(cfg.Debug, logOut)
	defer syncLogs()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	migrator, err := postgres.NewMigrator(pool, tables, logger)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	if err := migrator.Up(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	_ = migrator.Close()
	logger.Info("database ready")

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	projectRepo := postgresStoryboard.NewProjectRepository(repoConfig)
	sceneRepo := postgresStoryboard.NewSceneRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Sessions: our own HS256 cookie, optionally an external identity provider
	sessions, err := auth.NewSessionManager(cfg.JWTSecret, logger,
		auth.WithSessionTTL(config.SessionTTL),
		auth.WithRefreshWindow(config.SessionRefreshWindow),
		auth.WithSecureCookies(cfg.IsProduction()),
	)
	if err != nil {
		log.Fatalf("Failed to create session manager: %v", err)
	}
	verifier := auth.ChainVerifier{sessions}
	if cfg.AuthJWKSURL != "" {
		jwks, err := auth.NewJWKSVerifier(cfg.AuthJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWKS verifier: %v", err)
		}
		verifier = append(verifier, jwks)
		logger.Info("external identity provider enabled", "jwks_url", cfg.AuthJWKSURL)
	}
	defer verifier.Close()

	// Domain services
	authorizer := serviceAuth.NewOwnerBasedAuthorizer(projectRepo, sceneRepo)
	authService := serviceAuth.NewAuthService(userRepo, logger)
	projectService := serviceStoryboard.NewProjectService(projectRepo, logger)
	sceneService := serviceStoryboard.NewSceneService(sceneRepo, projectRepo, txManager, authorizer, logger)

	// Chat
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	providers := serviceLLM.NewProviderFactory(cfg, capabilityRegistry, logger)

	fetcher := imagedata.NewFetcher()
	var images external.ImageGenerator
	if cfg.DashScopeAPIKey != "" {
		images = external.NewDashScopeClientWithConfig(
			cfg.DashScopeAPIKey,
			cfg.DashScopeBaseURL,
			cfg.ImageModel,
			external.DefaultPollConfig(),
			external.DefaultDashScopeTimeout,
			logger,
		)
	} else {
		logger.Warn("image generation disabled, set DASHSCOPE_API_KEY")
	}
	chatService := serviceLLM.NewChatService(
		providers,
		projectService,
		sceneService,
		images,
		fetcher,
		serviceLLM.DefaultChatConfig(),
		logger,
	)

	// Export
	exportService := export.NewService(fetcher, logger)
	var archive services.ExportArchive
	if cfg.ExportArchive.Enabled() {
		minioArchive, err := storage.NewMinIOArchive(ctx, cfg.ExportArchive, logger)
		if err != nil {
			log.Fatalf("Failed to connect export archive: %v", err)
		}
		archive = minioArchive
		logger.Info("export archive enabled", "bucket", cfg.ExportArchive.Bucket)
	}

	// Handlers
	healthHandler := handler.NewHealthHandler(pool)
	authHandler := handler.NewAuthHandler(authService, sessions, logger)
	projectHandler := handler.NewProjectHandler(projectService, logger)
	sceneHandler := handler.NewSceneHandler(sceneService, logger)
	chatHandler := handler.NewChatHandler(chatService, config.ChatKeepAliveInterval, logger)
	exportHandler := handler.NewExportHandler(exportService, archive, logger)
	modelsHandler := handler.NewModelsHandler(cfg, logger, capabilityRegistry)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth routes
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	mux.HandleFunc("GET /api/models", modelsHandler.ListModels)

	// Project routes
	mux.HandleFunc("GET /api/projects", projectHandler.ListProjects)
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/projects/trash", projectHandler.ListTrash) // More specific than {id}
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", projectHandler.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projectHandler.DeleteProject)
	mux.HandleFunc("POST /api/projects/{id}/restore", projectHandler.RestoreProject)
	mux.HandleFunc("DELETE /api/projects/{id}/permanent", projectHandler.PermanentlyDeleteProject)

	// Scene routes
	mux.HandleFunc("GET /api/projects/{id}/scenes", sceneHandler.ListScenes)
	mux.HandleFunc("POST /api/projects/{id}/scenes", sceneHandler.CreateScene)
	mux.HandleFunc("PUT /api/projects/{id}/scenes/order", sceneHandler.ReorderScenes)
	mux.HandleFunc("GET /api/scenes/{id}", sceneHandler.GetScene)
	mux.HandleFunc("PATCH /api/scenes/{id}", sceneHandler.UpdateScene)
	mux.HandleFunc("DELETE /api/scenes/{id}", sceneHandler.DeleteScene)

	// Assistant and export
	mux.HandleFunc("POST /api/chat", chatHandler.StreamChat) // SSE
	mux.HandleFunc("POST /api/export", exportHandler.Export)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → RequestLogger → Routes
	var h http.Handler = mux
	h = middleware.RequestLogger(logger, mux)(h)
	h = middleware.AuthMiddleware(verifier, sessions, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOriginList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", handler.ArchiveURLHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
