package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"docvault-backend/internal/extractions"
	"docvault-backend/internal/sessions"
	"docvault-backend/internal/shared/config"
	"docvault-backend/internal/shared/metrics"
	"docvault-backend/internal/shared/server"
	"docvault-backend/internal/shared/storage/db"
	"docvault-backend/internal/shared/storage/object"
	localstore "docvault-backend/internal/shared/storage/object/local"
	"docvault-backend/internal/users"
)

// App holds the fully wired application.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	UsersRepo       users.Repo
	ExtractionsRepo extractions.Repo

	UsersService       *users.Service
	ExtractionsService *extractions.Service
	Sessions           *sessions.Manager
	Metrics            *metrics.Metrics
}

// Build prepares all dependencies and the router. In dev-like environments a
// missing or unreachable database falls back to in-memory repositories.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		usersRepo       users.Repo
		extractionsRepo extractions.Repo
	)
	if sqlDB != nil {
		usersRepo = &users.PGRepo{DB: sqlDB}
		extractionsRepo = &extractions.PGRepo{DB: sqlDB}
	} else {
		usersRepo = users.NewMemoryRepo()
		extractionsRepo = extractions.NewMemoryRepo()
	}

	store := localstore.New(cfg.LocalStoreDir)
	m := metrics.New()

	usersSvc := users.NewService(usersRepo)
	if err := usersSvc.EnsureSuperadmin(ctx, cfg.SuperadminEmail, cfg.SuperadminPassword); err != nil {
		return nil, fmt.Errorf("seed superadmin: %w", err)
	}

	extractionsSvc := &extractions.Service{
		Repo:           extractionsRepo,
		Users:          usersRepo,
		Store:          store,
		Metrics:        m,
		ExtractTimeout: cfg.ExtractTimeout,
	}

	manager := sessions.NewManager(usersRepo, cfg.SessionTTL)
	sessionHandler := sessions.NewHandler(usersSvc, manager, cfg.Env == "production")
	extractionHandler := extractions.NewHandler(extractionsSvc, usersSvc)

	app := &App{
		Config:             cfg,
		DB:                 sqlDB,
		Store:              store,
		UsersRepo:          usersRepo,
		ExtractionsRepo:    extractionsRepo,
		UsersService:       usersSvc,
		ExtractionsService: extractionsSvc,
		Sessions:           manager,
		Metrics:            m,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		Sessions:          manager,
		SessionHandler:    sessionHandler,
		ExtractionHandler: extractionHandler,
		Metrics:           m,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
