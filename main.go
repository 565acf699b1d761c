package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pracsphere/backend/internal/cache"
	"pracsphere/backend/internal/config"
	"pracsphere/backend/internal/database"
	"pracsphere/backend/internal/handlers"
	"pracsphere/backend/internal/logger"
	"pracsphere/backend/internal/middleware"
	"pracsphere/backend/internal/models"
	"pracsphere/backend/internal/monitoring"
	"pracsphere/backend/internal/services"
	"pracsphere/backend/internal/storage"
	"pracsphere/backend/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logger.Init("pracsphere-backend")

	poolCfg := database.DefaultPoolConfig()
	poolCfg.DSN = cfg.GetDatabaseDSN()
	poolCfg.MaxOpenConns = cfg.Database.MaxOpenConns
	poolCfg.MaxIdleConns = cfg.Database.MaxIdleConns
	poolCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	poolCfg.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	if cfg.IsProduction() {
		poolCfg.LogLevel = gormlogger.Warn
	}

	db, err := database.NewDatabasePool(poolCfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	if err := db.AutoMigrate(&models.User{}, &models.Task{}); err != nil {
		log.WithError(err).Fatal("failed to migrate schema")
	}

	redisCache := cache.NewRedisCache(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisCache.Close()

	objectStore, err := storage.NewJetStreamStore(cfg.Storage.NATSURL, cfg.Storage.Bucket)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to object store")
	}
	defer objectStore.Close()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	if err := objectStore.Init(initCtx); err != nil {
		cancelInit()
		log.WithError(err).Fatal("failed to initialize object bucket")
	}
	cancelInit()

	cleanupQueue := worker.NewJobQueue(redisCache.Client())
	pipeline := storage.NewImagePipeline(objectStore, cfg.Storage.Folder, cfg.Storage.PublicBaseURL, cleanupQueue)

	cleanupWorker := worker.NewWorker(worker.WorkerConfig{
		RedisClient: redisCache.Client(),
		Logger:      log,
	})
	cleanupWorker.RegisterHandler(worker.JobTypeImageCleanup, func(ctx context.Context, job *worker.Job) error {
		for _, name := range job.Names {
			if err := objectStore.Delete(ctx, name); err != nil {
				return err
			}
		}
		return nil
	})
	cleanupWorker.Start(cfg.Worker.Concurrency)
	defer cleanupWorker.Stop()

	taskService := services.NewCachedTaskService(services.NewTaskService(pipeline), redisCache)
	profileService := services.NewProfileService()

	taskHandler := handlers.NewTaskHandler(db, taskService)
	profileHandler := handlers.NewProfileHandler(db, profileService)
	mediaHandler := handlers.NewMediaHandler(objectStore)

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.Register("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	healthChecker.Register("redis", func(ctx context.Context) error {
		return redisCache.Health()
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstSize,
			cfg.RateLimit.CleanupInterval,
		)
		defer limiter.Stop()
		router.Use(limiter.Middleware())
	}

	router.GET("/health", healthChecker.Handler)
	router.GET("/metrics", monitoring.MetricsHandler)
	router.GET("/media/*name", mediaHandler.GetObject)

	api := router.Group("/api")
	api.Use(middleware.AuthRequired(cfg.Auth.JWTSecret))
	{
		api.POST("/tasks", taskHandler.CreateTask)
		api.GET("/tasks", taskHandler.GetTasks)
		api.PUT("/tasks/:id", taskHandler.UpdateTask)
		api.PATCH("/tasks/:id", taskHandler.PatchTaskStatus)
		api.DELETE("/tasks/:id", taskHandler.DeleteTask)
		api.GET("/dashboard/stats", taskHandler.GetDashboardStats)
		api.GET("/user/profile-picture", profileHandler.GetProfilePicture)
		api.POST("/user/profile-picture", profileHandler.SetProfilePicture)
		api.DELETE("/user/profile-picture", profileHandler.RemoveProfilePicture)
	}

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}
