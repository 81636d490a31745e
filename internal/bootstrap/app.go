package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"summarize-backend/internal/analyses"
	"summarize-backend/internal/contract"
	"summarize-backend/internal/extract"
	"summarize-backend/internal/llm"
	"summarize-backend/internal/llm/gemini"
	"summarize-backend/internal/llm/openai"
	"summarize-backend/internal/services/health"
	"summarize-backend/internal/shared/auth"
	"summarize-backend/internal/shared/config"
	"summarize-backend/internal/shared/server"
	"summarize-backend/internal/shared/storage/db"
	"summarize-backend/internal/shared/storage/object"
	localstore "summarize-backend/internal/shared/storage/object/local"
	s3store "summarize-backend/internal/shared/storage/object/s3"
	"summarize-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Archive  object.ObjectStore
	Tokens   *auth.Tokens
	Pipeline *analyses.Pipeline
	History  *analyses.History
	Handler  *analyses.Handler

	closers []io.Closer
}

// Build prepares every dependency and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}
	app.Tokens = tokens

	pipeline, err := app.buildPipeline(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	repo, err := buildRepo(ctx, cfg, app)
	if err != nil {
		app.Close()
		return nil, err
	}
	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	pipeline.Repo = repo
	pipeline.Archive = archive

	app.Archive = archive
	app.Pipeline = pipeline
	app.History = &analyses.History{
		Repo:              repo,
		Archive:           archive,
		DiscloseForbidden: cfg.HistoryDiscloseForbidden,
	}
	app.Handler = analyses.NewHandler(app.Pipeline, app.History)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Tokens:          tokens,
		AnalysisHandler: app.Handler,
		Health:          health.NewService(app.DB),
	})
	return app, nil
}

// BuildAnalyzer prepares an App that only runs the pipeline, without history or routes.
func BuildAnalyzer(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	pipeline, err := app.buildPipeline(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Pipeline = pipeline
	return app, nil
}

func (a *App) buildPipeline(ctx context.Context) (*analyses.Pipeline, error) {
	cfg := a.Config
	completer, err := a.buildCompleter(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := analyses.NewResultCache(cfg.ResultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	// LLM_TEMPERATURE=0 is a valid setting and must reach the provider.
	temperature := float64(cfg.LLMTemperature)
	return &analyses.Pipeline{
		Gateway:   analyses.Gateway{MaxBytes: cfg.MaxUploadBytes},
		Extractor: extract.PDFExtractor{MaxPages: cfg.MaxPages},
		Summarizer: &llm.Summarizer{
			Completer:      completer,
			Contract:       contract.Default(),
			Model:          cfg.LLMModel,
			Timeout:        cfg.LLMTimeout,
			Temperature:    &temperature,
			MaxTokens:      cfg.LLMMaxTokens,
			MaxPromptChars: cfg.MaxPromptChars,
		},
		Cache:     cache,
		RedactPII: cfg.RedactPII,
	}, nil
}

func (a *App) buildCompleter(ctx context.Context) (llm.Completer, error) {
	cfg := a.Config
	switch cfg.LLMProvider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.LLMAPIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		a.closers = append(a.closers, client)
		return client, nil
	case "groq":
		baseURL := cfg.LLMBaseURL
		if baseURL == "" {
			baseURL = openai.GroqURL
		}
		return newOpenAICompatible("groq", cfg.LLMAPIKey, baseURL)
	default:
		return newOpenAICompatible("openai", cfg.LLMAPIKey, cfg.LLMBaseURL)
	}
}

func newOpenAICompatible(name, apiKey, baseURL string) (llm.Completer, error) {
	client, err := openai.NewClient(openai.Options{Name: name, APIKey: apiKey, BaseURL: baseURL})
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", name, err)
	}
	return client, nil
}

func buildRepo(ctx context.Context, cfg config.Config, app *App) (analyses.Repo, error) {
	switch cfg.HistoryStore {
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, errors.New("HISTORY_STORE=postgres requires DATABASE_URL")
		}
		sqlDB, err := openDatabase(ctx, db.Postgres, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return nil, err
		}
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB)
		return analyses.NewPGRepo(sqlDB), nil
	case "sqlite":
		dsn, err := db.SQLiteDSN(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := openDatabase(ctx, db.SQLite, dsn, db.DefaultSQLiteOptions())
		if err != nil {
			return nil, err
		}
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB)
		return analyses.NewSQLiteRepo(sqlDB), nil
	case "memory":
		telemetry.Info("bootstrap.history_store", map[string]any{"store": "memory"})
		return analyses.NewMemoryRepo(), nil
	default:
		return nil, fmt.Errorf("unknown HISTORY_STORE %q", cfg.HistoryStore)
	}
}

func openDatabase(ctx context.Context, driver db.Driver, dsn string, opts db.Options) (*sql.DB, error) {
	sqlDB, err := db.Connect(ctx, driver, dsn, opts)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB, driver); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

func buildArchive(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ArchiveStore {
	case "", "none":
		return nil, nil
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("ARCHIVE_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Config{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Endpoint: cfg.S3Endpoint,
			KMSKeyID: cfg.SSEKMSKeyID,
		})
	default:
		return nil, fmt.Errorf("unknown ARCHIVE_STORE %q", cfg.ArchiveStore)
	}
}

// Close releases the database pool and provider clients.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			telemetry.Warn("bootstrap.close_failed", map[string]any{"error": err})
		}
	}
	a.closers = nil
}
