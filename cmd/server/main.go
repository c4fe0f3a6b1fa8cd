// Package main runs the Doogybook HTTP API with the organization WebSocket feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/doogybook/backend/config"
	"github.com/doogybook/backend/internal/auth"
	"github.com/doogybook/backend/internal/dogs"
	"github.com/doogybook/backend/internal/fosters"
	"github.com/doogybook/backend/internal/metrics"
	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/notifications"
	"github.com/doogybook/backend/internal/organizations"
	"github.com/doogybook/backend/internal/placements"
	"github.com/doogybook/backend/internal/realtime"
	"github.com/doogybook/backend/internal/session"
	"github.com/doogybook/backend/pkg/database"
	"github.com/doogybook/backend/pkg/queue"
	"github.com/doogybook/backend/pkg/redis"
	"github.com/doogybook/backend/pkg/response"
	"github.com/doogybook/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	applied, err := database.Migrate(ctx, pool)
	if err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("files", applied))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Photos are optional; without a region the photo endpoints answer 503.
	var photos dogs.PhotoStore
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			PhotosBucket:         cfg.AWS.PhotosBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			photos = s3Client
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	placementMetrics := metrics.NewPlacement(registry)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	sessions := session.NewStore(rdb.Client, cfg.Session.TransferTTL, cfg.Session.CurrentDogTTL)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo, logger)
	orgAccess := organizations.RequireOrgAccess(orgRepo)

	// Dogs
	dogRepo := dogs.NewRepository(pool)
	dogHandler := dogs.NewHandler(dogRepo, photos, logger)
	staffOnly := dogs.RequireDogAccess(dogRepo, orgRepo, dogs.StaffOnly)
	staffOrOwner := dogs.RequireDogAccess(dogRepo, orgRepo, dogs.StaffOrOwner)

	// Foster contacts
	fosterRepo := fosters.NewRepository(pool)
	fosterHandler := fosters.NewHandler(fosterRepo, orgRepo, logger)

	// Placement workflow
	dispatcher := notifications.NewDispatcher(hub, jobQueue, logger)
	placementService := placements.NewService(placements.NewPGStore(pool), authRepo, dispatcher, placementMetrics, logger)
	placementHandler := placements.NewHandler(placementService, fosterRepo, sessions, logger)

	// Session context and inbox
	currentDogHandler := session.NewHandler(sessions, dogRepo, orgRepo, logger)
	notificationHandler := notifications.NewHandler(notifications.NewRepository(pool), logger)

	wsValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins()))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Organizations and their rosters
		api.GET("/organizations", orgHandler.ListMyOrganizations)
		api.POST("/organizations", orgHandler.CreateOrganization)
		api.POST("/organizations/join", orgHandler.JoinOrganization)
		api.GET("/organizations/:id/members", orgAccess, orgHandler.ListMembers)
		api.POST("/organizations/:id/dogs", orgAccess, dogHandler.Create)
		api.GET("/organizations/:id/dogs", orgAccess, dogHandler.ListRoster)
		api.POST("/organizations/:id/foster-contacts", orgAccess, fosterHandler.Create)
		api.GET("/organizations/:id/foster-contacts", orgAccess, fosterHandler.List)
		api.GET("/organizations/:id/foster-contacts/eligible", orgAccess, fosterHandler.Eligible)
		api.PATCH("/foster-contacts/:id", fosterHandler.Update)

		// Dogs
		api.GET("/me/dogs", dogHandler.ListMine)
		api.GET("/dogs/:id", staffOrOwner, dogHandler.Get)
		api.PATCH("/dogs/:id", staffOnly, dogHandler.Update)
		api.POST("/dogs/:id/photo/upload-url", staffOnly, dogHandler.PhotoUploadURL)
		api.PUT("/dogs/:id/photo", staffOnly, dogHandler.ConfirmPhoto)
		api.POST("/dogs/:id/photo", staffOnly, dogHandler.UploadPhoto)
		api.GET("/dogs/:id/photo/url", staffOrOwner, dogHandler.PhotoURL)

		// Placement workflow
		api.GET("/dogs/:id/placements", staffOnly, placementHandler.History)
		api.POST("/dogs/:id/foster", staffOnly, placementHandler.Place)
		api.POST("/dogs/:id/foster/return", staffOnly, placementHandler.Return)
		api.GET("/dogs/:id/transfer", staffOnly, placementHandler.Transfer)
		api.POST("/dogs/:id/transfer/lookup", staffOnly, placementHandler.Lookup)
		api.POST("/dogs/:id/transfer/cancel", staffOnly, placementHandler.Cancel)
		api.POST("/dogs/:id/transfer/confirm", staffOnly, placementHandler.ConfirmTransfer)

		// Session context
		api.PUT("/me/current-dog", currentDogHandler.Set)
		api.GET("/me/current-dog", currentDogHandler.Get)
		api.DELETE("/me/current-dog", currentDogHandler.Clear)

		// Notifications
		api.GET("/me/notifications", notificationHandler.List)
		api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, realtime.NewUpgrader(cfg.Server.CORSOrigins()), wsValidate, orgRepo, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
