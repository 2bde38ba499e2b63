package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"roofing-backend/internal/agent"
	"roofing-backend/internal/conversations"
	"roofing-backend/internal/documents"
	"roofing-backend/internal/intake"
	"roofing-backend/internal/llm"
	"roofing-backend/internal/llm/bedrock"
	"roofing-backend/internal/mailpoll"
	"roofing-backend/internal/projects"
	"roofing-backend/internal/queue"
	"roofing-backend/internal/secrets"
	"roofing-backend/internal/shared/config"
	"roofing-backend/internal/shared/server"
	"roofing-backend/internal/shared/storage/db"
	"roofing-backend/internal/shared/storage/object"
	localstore "roofing-backend/internal/shared/storage/object/local"
	s3store "roofing-backend/internal/shared/storage/object/s3"
	"roofing-backend/internal/uploads"
	"roofing-backend/internal/usage"
	"roofing-backend/internal/users"
	"roofing-backend/internal/webhook"
	"roofing-backend/internal/whatsapp"
	"roofing-backend/internal/workerproc"
)

// App holds shared dependencies for the api, worker and lambda binaries.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Queue  queue.Client

	Secrets   *secrets.Cache
	WhatsApp  *whatsapp.Client
	Extractor llm.Extractor

	UsersRepo         users.Repo
	ProjectsRepo      projects.Repo
	DocumentsRepo     documents.Repo
	ConversationsRepo conversations.Repo
	MailAccounts      mailpoll.AccountSource

	UsageService *usage.Service
	Processor    *intake.Processor
	MailPoller   *mailpoll.Poller

	WebhookHandler  *webhook.Handler
	UploadHandler   *uploads.Handler
	DocumentHandler *documents.Handler
	ProjectHandler  *projects.Handler
	UsageHandler    *usage.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
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
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildSecrets(ctx, app); err != nil {
		return nil, err
	}
	if err := buildExtractor(ctx, app); err != nil {
		return nil, err
	}
	buildRepos(app)
	buildPipeline(app)
	buildHandlers(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		WebhookHandler:  app.WebhookHandler,
		UploadHandler:   app.UploadHandler,
		DocumentHandler: app.DocumentHandler,
		ProjectHandler:  app.ProjectHandler,
		UsageHandler:    app.UsageHandler,
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

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.DocumentsBucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires DOCUMENTS_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.DocumentsBucket)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.DocumentQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.DocumentQueueURL)
}

func buildSecrets(ctx context.Context, app *App) error {
	cfg := app.Config
	if cfg.WhatsAppSecretARN == "" && cfg.MailSecretARN == "" {
		return nil
	}
	cache, err := secrets.NewCache(ctx, cfg.AWSRegion, cfg.WhatsAppSecretARN, cfg.MailSecretARN)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: secrets cache unavailable: %v", err)
			return nil
		}
		return err
	}
	app.Secrets = cache
	if cfg.WhatsAppSecretARN != "" {
		app.WhatsApp = whatsapp.NewClient(cache, cfg.GraphAPIBaseURL)
	}
	return nil
}

func buildExtractor(ctx context.Context, app *App) error {
	cfg := app.Config
	if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.BedrockModelID) == "" {
		log.Printf("bootstrap: no model backend configured; extractions will degrade")
		app.Extractor = llm.PlaceholderExtractor{}
		return nil
	}
	client, err := bedrock.NewClient(ctx, cfg.AWSRegion, cfg.BedrockModelID)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: model backend unavailable; extractions will degrade: %v", err)
			app.Extractor = llm.PlaceholderExtractor{}
			return nil
		}
		return err
	}
	app.Extractor = client
	return nil
}

func buildRepos(app *App) {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.ProjectsRepo = &projects.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.ConversationsRepo = &conversations.PGRepo{DB: app.DB}
		app.MailAccounts = &mailpoll.PGAccountSource{DB: app.DB}
		app.UsageService = usage.NewService(&usage.PGStore{DB: app.DB})
		return
	}
	app.UsersRepo = users.NewMemoryRepo()
	app.ProjectsRepo = projects.NewMemoryRepo()
	app.DocumentsRepo = documents.NewMemoryRepo()
	app.ConversationsRepo = conversations.NewMemoryRepo()
	app.MailAccounts = mailpoll.NewMemoryAccountSource()
	app.UsageService = usage.NewService(usage.NewMemoryStore())
}

func buildPipeline(app *App) {
	cfg := app.Config

	fetcher := &intake.Fetcher{Store: app.Store}
	if app.WhatsApp != nil {
		fetcher.Media = app.WhatsApp
	}
	engine := &intake.Engine{Extractor: app.Extractor}
	writer := intake.NewWriter(app.Store, cfg.DocumentsBucket, app.DocumentsRepo)
	resolver := &projects.Resolver{Repo: app.ProjectsRepo}
	notifier := &intake.Notifier{Users: app.UsersRepo}
	if app.WhatsApp != nil {
		notifier.Sender = app.WhatsApp
	}

	app.Processor = intake.NewProcessor(fetcher, engine, writer, resolver, app.ProjectsRepo, notifier, app.UsageService)
	app.Processor.Parse = workerproc.ParseRecord

	if app.Secrets != nil && cfg.MailSecretARN != "" {
		app.MailPoller = mailpoll.NewPoller(
			app.MailAccounts,
			app.Secrets,
			app.Store,
			cfg.DocumentsBucket,
			cfg.InboxPrefix,
			app.Queue,
			app.UsageService,
			cfg.MailPollQuery,
		)
	}
}

func buildHandlers(app *App) {
	cfg := app.Config

	var sender webhook.TextSender
	if app.WhatsApp != nil {
		sender = app.WhatsApp
	}
	app.WebhookHandler = webhook.NewHandler(
		cfg.WhatsAppVerifyToken,
		app.UsersRepo,
		app.ConversationsRepo,
		app.Queue,
		sender,
		agent.EchoAgent{},
		app.UsageService,
	)
	app.UploadHandler = uploads.NewHandler(app.Store, cfg.DocumentsBucket, cfg.InboxPrefix, app.Queue)
	app.DocumentHandler = documents.NewHandler(app.DocumentsRepo)
	app.ProjectHandler = projects.NewHandler(app.ProjectsRepo)
	app.UsageHandler = usage.NewHandler(app.UsageService)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
