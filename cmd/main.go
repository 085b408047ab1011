package main

import (
	"context"
	"voiceorder-service/internal/blob"
	"voiceorder-service/internal/catalog"
	"voiceorder-service/internal/gemini"
	"voiceorder-service/internal/handler"
	"voiceorder-service/internal/middleware"
	"voiceorder-service/internal/model"
	"voiceorder-service/internal/order"
	"voiceorder-service/internal/prompt"
	"voiceorder-service/pkg/config"
	"voiceorder-service/pkg/database"
	"voiceorder-service/pkg/jwtutil"
	"voiceorder-service/pkg/logger"
	"voiceorder-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting voiceorder-service", appConfig.LogConfig()...)

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if _, err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(
		&model.User{},
		&model.Order{},
		&model.OrderItem{},
		&model.UnmatchedItem{},
		&model.PromptVersion{},
		&model.Correction{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Blob store backend
	var blobStore blob.Store
	switch appConfig.Blob.Backend {
	case "gcs":
		blobStore, err = blob.NewGCSStore(context.Background(), appConfig.Blob.GCSBucket, appConfig.Blob.PublicBaseURL)
		if err != nil {
			log.Fatal("Failed to initialize GCS blob store", zap.Error(err))
		}
	default:
		blobStore, err = blob.NewLocalStore(appConfig.Blob.LocalDir, appConfig.Blob.PublicBaseURL)
		if err != nil {
			log.Fatal("Failed to initialize local blob store", zap.Error(err))
		}
	}
	log.Info("Blob store initialized", zap.String("backend", appConfig.Blob.Backend))

	// External clients and domain services
	catalogClient := catalog.NewClient(&appConfig.Sanity)
	llmClient := gemini.NewClient(&appConfig.Gemini)
	promptStore := prompt.NewStore(database.GetDB())
	promptImprover := prompt.NewImprover(promptStore, llmClient)
	pipeline := order.NewProcessor(database.GetDB(), promptStore, catalogClient, llmClient, blobStore, appConfig.Pipeline.Timeout)

	handler.Init(pipeline, blobStore, catalogClient, promptStore, promptImprover)

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(middleware.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.Health)

	// Public routes
	e.POST("/api/auth/login", handler.Login)
	e.POST("/api/auth/seed-admin", handler.SeedAdmin)
	e.GET("/api/audio/:id", handler.ServeAudio)

	// Authenticated API
	api := e.Group("/api", middleware.AuthMiddleware)

	api.GET("/companies", handler.ListCompanies)
	api.GET("/companies/:id/products", handler.ListCompanyProducts)

	api.POST("/orders/upload", handler.UploadAudio)
	api.POST("/orders", handler.CreateOrder)
	api.GET("/orders", handler.ListOrders)
	api.GET("/orders/details", handler.ListOrdersWithDetails)
	api.GET("/orders/:id", handler.GetOrder)
	api.GET("/orders/:id/corrections", handler.ListOrderCorrections)

	api.POST("/corrections", handler.AddCorrection)
	api.GET("/corrections", handler.ListCorrections)
	api.GET("/corrections/pending", handler.ListPendingCorrections)

	api.GET("/prompts/active", handler.GetActivePrompt)
	api.GET("/prompts/history", handler.PromptHistory)

	// Admin-only prompt management
	admin := api.Group("", middleware.AdminOnly)
	admin.POST("/prompts/seed", handler.SeedPrompt)
	admin.POST("/prompts/rollback", handler.RollbackPrompt)
	admin.POST("/prompts/apply-corrections", handler.ApplyCorrections)
	admin.POST("/corrections/:id/reject", handler.RejectCorrection)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
