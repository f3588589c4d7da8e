package bootstrap

import (
	"os"
	"strings"

	"analyzer_server/adapter/in/http"
	"analyzer_server/config"
	"analyzer_server/infra/middleware"
	"analyzer_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	// Initialize logger
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "analyzer",
	})

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "api").Logger()

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		Prefork:               false,
		StrictRouting:         false,
		CaseSensitive:         false,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json is noticeably faster than encoding/json for response bodies
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 10 * 1024 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())       // 1. Panic recovery
	app.Use(middleware.RequestID())     // 2. Request ID
	app.Use(middleware.RequestLogger()) // 3. Request logging

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// CORS
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
		MaxAge:        86400,
	}))

	// Health and date endpoints (no rate limiting)
	healthHandler := http.NewHealthHandler(deps.MongoDB, deps.Redis)
	healthHandler.Register(app)

	// OAuth handshake (Google redirects to the callback)
	authHandler := http.NewAuthHandler(deps.OAuthService, cfg.FrontendURL)
	authHandler.Register(app)

	// Analyze endpoint, rate-limited since each run fans out to Gmail and
	// the completion service
	analyzeHandler := http.NewAnalyzeHandler(deps.AnalyzeService, deps.StateFile)
	limited := app.Group("", middleware.SensitiveEndpointLimiter(cfg.AnalyzeRateLimit, cfg.AnalyzeRateWindow))
	analyzeHandler.Register(limited)

	// Legacy state-file view
	stateHandler := http.NewStateHandler(deps.StateFile)
	stateHandler.Register(app)

	zlog.Info().Str("port", cfg.Port).Msg("API server initialized")

	return app, cleanup, nil
}
