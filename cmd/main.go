package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/coverbridge/coverbridge-backend/internal/db"
	"github.com/coverbridge/coverbridge-backend/internal/extraction"
	"github.com/coverbridge/coverbridge-backend/internal/handlers"
	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/middleware"
	"github.com/coverbridge/coverbridge-backend/internal/observability"
	"github.com/coverbridge/coverbridge-backend/internal/repos"
	"github.com/coverbridge/coverbridge-backend/internal/server"
	"github.com/coverbridge/coverbridge-backend/internal/services"
	"github.com/coverbridge/coverbridge-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "", log)
	if jwtSecretKey == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	maxUploadBytes := utils.GetEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20, log)
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)

	if aliasPath := utils.GetEnv("EXTRACTION_ALIAS_PATH", "", log); aliasPath != "" {
		if err := extraction.MergeAliasFile(aliasPath); err != nil {
			log.Warn("Could not load extraction alias overrides", "path", aliasPath, "error", err)
		}
	}

	// Tracing
	shutdownTracing, err := observability.InitTracing(context.Background(), log)
	if err != nil {
		log.Warn("Tracing init failed", "error", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	customerRepo := repos.NewCustomerRepo(thePG, log)
	contactRepo := repos.NewContactRepo(thePG, log)
	policyRepo := repos.NewPolicyRepo(thePG, log)
	coverageRepo := repos.NewPolicyCoverageRepo(thePG, log)
	beneficiaryRepo := repos.NewPolicyBeneficiaryRepo(thePG, log)
	documentRepo := repos.NewPolicyDocumentRepo(thePG, log)
	timelineRepo := repos.NewTimelineRepo(thePG, log)
	aiCallLogRepo := repos.NewAICallLogRepo(thePG, log)

	// Services
	documentStore, err := services.NewDocumentStore(log)
	if err != nil {
		log.Fatal("Could not init document store", "error", err)
	}
	avatarService, err := services.NewAvatarService(log, documentStore)
	if err != nil {
		log.Warn("Could not init AvatarService, avatars disabled", "error", err)
		avatarService = nil
	}
	aiClient, err := services.NewAIClient(log)
	if err != nil {
		log.Fatal("Could not init AIClient", "error", err)
	}
	extractionCache, err := services.NewExtractionCache(log)
	if err != nil {
		log.Warn("Could not init extraction cache, continuing without it", "error", err)
		extractionCache = nil
	}
	if extractionCache != nil {
		defer extractionCache.Close()
	}

	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, avatarService, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	extractionService := services.NewPolicyExtractionService(thePG, log, aiClient, aiCallLogRepo, extractionCache)
	syncService := services.NewPolicySyncService(thePG, log, customerRepo, policyRepo, coverageRepo,
		contactRepo, beneficiaryRepo, documentRepo, timelineRepo)
	customerService := services.NewCustomerService(thePG, log, customerRepo, policyRepo, beneficiaryRepo, timelineRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(log, authService)
	policyHandler := handlers.NewPolicyHandler(log, extractionService, syncService, customerService, documentStore, maxUploadBytes)
	customerHandler := handlers.NewCustomerHandler(log, customerService)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		PolicyHandler:   policyHandler,
		CustomerHandler: customerHandler,
	})

	log.Info("Starting server", "addr", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
