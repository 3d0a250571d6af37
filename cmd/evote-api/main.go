package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-evote-api/api/swagger"
	"github.com/noah-isme/sma-evote-api/internal/handler"
	"github.com/noah-isme/sma-evote-api/internal/middleware"
	"github.com/noah-isme/sma-evote-api/internal/repository"
	"github.com/noah-isme/sma-evote-api/internal/service"
	"github.com/noah-isme/sma-evote-api/pkg/cache"
	"github.com/noah-isme/sma-evote-api/pkg/config"
	"github.com/noah-isme/sma-evote-api/pkg/database"
	"github.com/noah-isme/sma-evote-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-evote-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-evote-api/pkg/middleware/requestid"
)

// @title SMA E-Vote API
// @version 1.0.0
// @description Ballot casting engine for student council elections
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// The draft store and tally cache degrade gracefully without Redis;
	// a voter just loses draft recovery and results hit the database.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, drafts and tally cache disabled", "error", err)
		redisClient = nil
	}

	clock := func() time.Time { return time.Now().UTC() }
	validate := validator.New()

	electionRepo := repository.NewElectionRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	voterRepo := repository.NewVoterRepository(db)
	ballotRepo := repository.NewBallotRepository(db)
	tallyRepo := repository.NewTallyRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	draftRepo := repository.NewDraftRepository(redisClient, cfg.Voting.DraftTTL)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(voterRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		CSRFSecret:        cfg.Voting.CSRFSecret,
	})
	registrySvc := service.NewRegistryService(electionRepo, positionRepo, clock, logr)
	draftSvc := service.NewDraftService(draftRepo, registrySvc, clock, logr)
	tallySvc := service.NewTallyService(tallyRepo, electionRepo, registrySvc, cacheRepo, metricsSvc, service.TallyConfig{
		LiveResults: cfg.Results.LiveResults,
		CacheTTL:    cfg.Results.CacheTTL,
	}, clock, logr)
	ballotSvc := service.NewBallotService(ballotRepo, electionRepo, voterRepo, auditRepo, authSvc, draftSvc, tallySvc, metricsSvc, clock, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	electionHandler := handler.NewElectionHandler(registrySvc, ballotSvc)
	draftHandler := handler.NewDraftHandler(draftSvc)
	ballotHandler := handler.NewBallotHandler(ballotSvc)
	tallyHandler := handler.NewTallyHandler(tallySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	voting := api.Group("", middleware.JWT(authSvc))
	voting.GET("/elections", electionHandler.List)
	voting.GET("/elections/:id/ballot", electionHandler.BallotPaper)
	voting.GET("/elections/:id/status", electionHandler.Status)
	voting.GET("/elections/:id/positions/:positionId/constraints", electionHandler.Constraints)
	voting.GET("/elections/:id/draft", draftHandler.Get)
	voting.POST("/elections/:id/draft/selections", draftHandler.Select)
	voting.DELETE("/elections/:id/draft/selections", draftHandler.Deselect)
	voting.PUT("/elections/:id/draft/page", draftHandler.SetPage)
	voting.POST("/elections/:id/ballot", ballotHandler.Commit)
	voting.GET("/elections/:id/results", tallyHandler.Results)
	voting.GET("/elections/:id/positions/:positionId/tally", tallyHandler.PositionTally)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
