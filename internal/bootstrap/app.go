package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/catalog"
	"content-analyzer/internal/llm"
	"content-analyzer/internal/llm/bedrock"
	openai "content-analyzer/internal/llm/openai"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/queue"
	"content-analyzer/internal/results"
	"content-analyzer/internal/runs"
	"content-analyzer/internal/services/health"
	"content-analyzer/internal/shared/auth"
	"content-analyzer/internal/shared/config"
	"content-analyzer/internal/shared/server"
	"content-analyzer/internal/shared/storage/db"
	"content-analyzer/internal/shared/storage/object"
	localstore "content-analyzer/internal/shared/storage/object/local"
	miniostore "content-analyzer/internal/shared/storage/object/minio"
	s3store "content-analyzer/internal/shared/storage/object/s3"
	"content-analyzer/internal/transcribe"
	"content-analyzer/internal/transcribe/awstranscribe"
	"content-analyzer/internal/transcribe/groq"
	"content-analyzer/internal/workerproc"
)

// App holds shared dependencies for every entry point.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.Store
	Queue          queue.Client
	Verifier       *auth.Verifier
	CatalogRepo    catalog.Repo
	ResultsRepo    results.Repo
	CatalogService *catalog.Service
	ResultsService *results.Service
	Pipeline       *pipeline.Pipeline
	Runs           *runs.Manager
	Worker         *workerproc.Processor
	Health         *health.Service
	CatalogHandler *catalog.Handler
	ResultsHandler *results.Handler
	RunsHandler    *runs.Handler
}

// Build prepares shared dependencies and the router. Outside dev, missing
// configuration is an error; in dev the affected components are left unset
// and runs that need them fail with configuration_missing.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if err := cfg.Validate(); err != nil {
		if !isDevLike(cfg.Env) {
			return nil, err
		}
		log.Printf("bootstrap: %v; continuing with those components disabled", err)
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	sqlDB, dialect, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Queue:    queueClient,
		Verifier: verifier,
	}

	buildRepos(app, dialect)

	transcriber, err := buildTranscriber(ctx, cfg, store)
	if err != nil {
		return nil, err
	}
	completer, err := buildCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app.Pipeline = &pipeline.Pipeline{Store: store, Transcriber: transcriber}
	if completer != nil {
		app.Pipeline.Analyzer = analysis.NewAnalyzer(completer, analysis.Options{
			MaxTokens:      cfg.MaxTokens,
			Temperature:    &cfg.Temperature,
			IdentifyClient: cfg.IdentifyClient,
		})
	}

	app.CatalogService = catalog.NewService(app.CatalogRepo)
	app.ResultsService = results.NewService(app.ResultsRepo)
	app.Runs = runs.NewManager(app.Pipeline, app.ResultsService, cfg.RunTimeout)
	app.Worker = &workerproc.Processor{
		Store:   store,
		Runner:  app.Pipeline,
		Sets:    app.CatalogService,
		Results: app.ResultsService,
	}
	app.Health = health.NewService(sqlDB, map[string]string{
		"transcription": cfg.TranscriptionProvider,
		"inference":     cfg.InferenceProvider,
		"objectStore":   cfg.ObjectStoreType,
		"questionStore": cfg.QuestionStore,
	})

	app.CatalogHandler = catalog.NewHandler(app.CatalogService)
	app.ResultsHandler = results.NewHandler(app.ResultsService)
	app.RunsHandler = runs.NewHandler(app.Runs, app.CatalogService)
	app.RunsHandler.MaxUploadBytes = cfg.MaxUploadBytes

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		Verifier:       verifier,
		Health:         app.Health,
		CatalogHandler: app.CatalogHandler,
		ResultsHandler: app.ResultsHandler,
		RunsHandler:    app.RunsHandler,
	})

	return app, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, db.Dialect, error) {
	switch cfg.QuestionStore {
	case "postgres":
		var (
			sqlDB *sql.DB
			err   error
		)
		if db.IsLambdaRuntime() {
			sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFor(db.ProfileLambda))
		} else {
			sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFor(db.ProfileServer))
		}
		if err != nil {
			if isDevLike(cfg.Env) {
				log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
				return nil, "", nil
			}
			return nil, "", err
		}
		if err := db.RunMigrations(ctx, sqlDB, db.Postgres); err != nil {
			return nil, "", fmt.Errorf("run migrations: %w", err)
		}
		return sqlDB, db.Postgres, nil
	case "sqlite":
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, "", err
		}
		if err := db.RunMigrations(ctx, sqlDB, db.SQLite); err != nil {
			return nil, "", fmt.Errorf("run migrations: %w", err)
		}
		return sqlDB, db.SQLite, nil
	default:
		log.Printf("bootstrap: QUESTION_STORE=memory; using in-memory repositories")
		return nil, "", nil
	}
}

func buildRepos(app *App, dialect db.Dialect) {
	switch {
	case app.DB != nil && dialect == db.Postgres:
		app.CatalogRepo = &catalog.PGRepo{DB: app.DB}
		app.ResultsRepo = &results.PGRepo{DB: app.DB}
	case app.DB != nil && dialect == db.SQLite:
		app.CatalogRepo = &catalog.SQLiteRepo{DB: app.DB}
		app.ResultsRepo = &results.SQLiteRepo{DB: app.DB}
	default:
		app.CatalogRepo = catalog.NewMemoryRepo()
		app.ResultsRepo = results.NewMemoryRepo()
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			Prefix:    cfg.S3Prefix,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
}

// buildTranscriber returns nil when the selected provider cannot be built
// in a dev environment.
func buildTranscriber(ctx context.Context, cfg config.Config, store object.Store) (pipeline.Transcriber, error) {
	var provider transcribe.Provider
	switch cfg.TranscriptionProvider {
	case "groq":
		p, err := groq.New(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
		if err != nil {
			return nil, devTolerant(cfg, "transcription", err)
		}
		provider = p
	default:
		locator, ok := store.(object.Locator)
		if !ok || strings.TrimSpace(cfg.AWSRegion) == "" {
			return nil, devTolerant(cfg, "transcription", errors.New("AWS Transcribe needs OBJECT_STORE=s3 and AWS_REGION"))
		}
		p, err := awstranscribe.New(ctx, cfg.AWSRegion, locator)
		if err != nil {
			return nil, devTolerant(cfg, "transcription", err)
		}
		provider = p
	}

	return &transcribe.Adapter{
		Provider:     provider,
		Normalizer:   transcribe.NewNormalizer(cfg.FFmpegPath),
		MaxFileBytes: cfg.MaxUploadBytes,
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
		Language:     cfg.TranscribeLanguage,
	}, nil
}

func buildCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	switch cfg.InferenceProvider {
	case "placeholder":
		return llm.PlaceholderClient{}, nil
	case "openai":
		c, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, devTolerant(cfg, "inference", err)
		}
		return c, nil
	default:
		if strings.TrimSpace(cfg.AWSRegion) == "" {
			return nil, devTolerant(cfg, "inference", errors.New("Bedrock needs AWS_REGION"))
		}
		c, err := bedrock.New(ctx, cfg.AWSRegion, cfg.BedrockModelID)
		if err != nil {
			return nil, devTolerant(cfg, "inference", err)
		}
		return c, nil
	}
}

func devTolerant(cfg config.Config, component string, err error) error {
	if isDevLike(cfg.Env) {
		log.Printf("bootstrap: %s disabled: %v", component, err)
		return nil
	}
	return fmt.Errorf("%s: %w", component, err)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
