package bootstrap

import (
	"context"

	"analyzer_server/adapter/out/llm"
	"analyzer_server/adapter/out/mongodb"
	"analyzer_server/adapter/out/persistence"
	"analyzer_server/adapter/out/provider/gmail"
	"analyzer_server/adapter/out/statefile"
	"analyzer_server/config"
	"analyzer_server/core/port/out"
	"analyzer_server/core/service/analyze"
	"analyzer_server/core/service/auth"
	"analyzer_server/core/service/extract"
	"analyzer_server/core/service/fetch"
	"analyzer_server/core/service/sync"
	"analyzer_server/infra/database"
	"analyzer_server/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependencies wires the storage context, providers and services. Storage
// handles stay nil when their backend is unreachable; the services treat nil
// repositories as persistence disabled and keep working.
type Dependencies struct {
	Config  *config.Config
	MongoDB *mongo.Client
	Redis   *redis.Client

	// Repositories (nil when storage is disabled)
	TokenRepo     out.TokenRepository
	PendingRepo   out.PendingAuthRepository
	WatermarkRepo out.WatermarkRepository
	AccountRepo   out.AccountRepository
	ItemRepo      out.ItemRepository

	// Adapters
	GmailFactory *gmail.Factory
	LLMClient    *llm.Client
	StateFile    *statefile.Store

	// Services
	TokenStore     *auth.TokenStore
	OAuthService   *auth.OAuthService
	Fetcher        *fetch.Fetcher
	Engine         *extract.Engine
	Syncer         *sync.Syncer
	AnalyzeService *analyze.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// MongoDB
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed, persistence disabled: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			db := mongoClient.Database(cfg.MongoDBName)
			tokenRepo := mongodb.NewTokenAdapter(db)
			pendingRepo := mongodb.NewPendingAuthAdapter(db)
			watermarkRepo := mongodb.NewWatermarkAdapter(db)
			accountRepo := mongodb.NewAccountAdapter(db)
			itemRepo := mongodb.NewItemAdapter(db)

			ensureIndexes(tokenRepo, pendingRepo, watermarkRepo, accountRepo, itemRepo)

			deps.TokenRepo = tokenRepo
			deps.PendingRepo = pendingRepo
			deps.WatermarkRepo = watermarkRepo
			deps.AccountRepo = accountRepo
			deps.ItemRepo = itemRepo
			logger.Info("MongoDB connected (database %s)", cfg.MongoDBName)
		}
	} else {
		logger.Warn("MONGODB_URL not set, persistence disabled")
	}

	// Redis (optional; takes over the pending-auth store when configured)
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			deps.PendingRepo = persistence.NewRedisPendingAuthStore(redisClient)
			logger.Info("Redis connected, pending-auth store moved to Redis")
		}
	}

	// OAuth + token store
	oauthConfig := auth.NewGoogleConfig(auth.OAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	deps.TokenStore = auth.NewTokenStore(deps.TokenRepo, oauthConfig)
	deps.OAuthService = auth.NewOAuthService(oauthConfig, deps.TokenStore, deps.PendingRepo, deps.AccountRepo)

	// Mail provider
	deps.GmailFactory = gmail.NewFactory(oauthConfig)

	// LLM
	deps.LLMClient = llm.NewClient(llm.ClientConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: cfg.LLMMaxTokens,
	})

	// State file (legacy view)
	deps.StateFile = statefile.NewStore(cfg.StateFilePath)

	// Services
	deps.Fetcher = fetch.NewFetcher(
		deps.TokenStore,
		deps.GmailFactory,
		deps.WatermarkRepo,
		deps.AccountRepo,
		cfg.BlockedSenders,
	)
	deps.Engine = extract.NewEngine(deps.LLMClient, cfg.LLMMaxRetries, cfg.LLMThrottle)
	deps.Syncer = sync.NewSyncer(deps.ItemRepo, deps.AccountRepo)
	deps.AnalyzeService = analyze.NewService(deps.Fetcher, deps.Engine, deps.Syncer, cfg.FetchMaxResults)

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return deps, cleanup, nil
}

type indexEnsurer interface {
	EnsureIndexes(ctx context.Context) error
}

// ensureIndexes creates collection indexes best-effort; a failure never
// blocks startup.
func ensureIndexes(ensurers ...indexEnsurer) {
	ctx := context.Background()
	for _, e := range ensurers {
		if err := e.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("failed to ensure indexes")
		}
	}
}
