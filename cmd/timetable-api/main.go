package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/uni-timetable-api/api/swagger"
	"github.com/noah-isme/uni-timetable-api/internal/feed"
	"github.com/noah-isme/uni-timetable-api/internal/handler"
	"github.com/noah-isme/uni-timetable-api/internal/middleware"
	"github.com/noah-isme/uni-timetable-api/internal/repository"
	"github.com/noah-isme/uni-timetable-api/internal/scheduler"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	"github.com/noah-isme/uni-timetable-api/pkg/cache"
	"github.com/noah-isme/uni-timetable-api/pkg/config"
	"github.com/noah-isme/uni-timetable-api/pkg/database"
	"github.com/noah-isme/uni-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/uni-timetable-api/pkg/storage"
)

// @title Uni Timetable API
// @version 1.0.0
// @description Cached weekly class timetable with intake, room and free-room queries
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

	loc, err := time.LoadLocation(cfg.Timetable.Timezone)
	if err != nil {
		logr.Sugar().Warnw("unknown timezone, using UTC", "timezone", cfg.Timetable.Timezone)
		loc = time.UTC
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	cacheSvc := service.NewCacheService(nil, metrics, cfg.Timetable.QueryCacheTTL, logr, false)
	if cfg.Timetable.QueryCacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, query cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Timetable.QueryCacheTTL, logr, true)
		}
	}

	genRepo := repository.NewGenerationRepository(db)
	recRepo := repository.NewClassRecordRepository(db, cfg.Timetable.ChunkTimeout)
	fetcher := feed.NewFetcher(cfg.Timetable.FeedURL, cfg.Timetable.FeedTimeout, logr)

	refreshSvc := service.NewRefreshService(fetcher, genRepo, recRepo, cacheSvc, metrics, logr, loc, cfg.Timetable.CacheTTL, cfg.Timetable.ChunkSize)
	timetableSvc := service.NewTimetableService(genRepo, recRepo, refreshSvc, cacheSvc, logr, loc)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewExportStore(cfg.Exports.Dir)
		if err != nil {
			logr.Sugar().Fatalw("export store init failed", "error", err)
		}
		if cfg.Exports.SigningSecret == "" {
			logr.Sugar().Fatalw("EXPORTS_SIGNING_SECRET is required when exports are enabled")
		}
		signer := storage.NewDownloadSigner(cfg.Exports.SigningSecret, cfg.Exports.ResultTTL)
		exportSvc = service.NewExportService(timetableSvc, store, signer, logr, cfg.Exports.ResultTTL)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if exportSvc != nil {
		handler.NewTimetableHandler(timetableSvc, refreshSvc, exportSvc, loc).Register(api)
	} else {
		handler.NewTimetableHandler(timetableSvc, refreshSvc, nil, loc).Register(api)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(refreshSvc, exportSvc, cfg.Scheduler, logr)
		if err := sched.Start(ctx); err != nil {
			logr.Sugar().Fatalw("scheduler start failed", "error", err)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
