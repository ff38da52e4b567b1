package main

import (
	"context"
	"errors"
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
	"go.uber.org/zap"

	_ "github.com/noah-isme/canvas-assignment-manager/api/swagger"
	"github.com/noah-isme/canvas-assignment-manager/internal/handler"
	"github.com/noah-isme/canvas-assignment-manager/internal/middleware"
	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	"github.com/noah-isme/canvas-assignment-manager/internal/service"
	"github.com/noah-isme/canvas-assignment-manager/pkg/canvas"
	"github.com/noah-isme/canvas-assignment-manager/pkg/config"
	"github.com/noah-isme/canvas-assignment-manager/pkg/jobs"
	"github.com/noah-isme/canvas-assignment-manager/pkg/logger"
	corsmiddleware "github.com/noah-isme/canvas-assignment-manager/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/canvas-assignment-manager/pkg/middleware/requestid"
	"github.com/noah-isme/canvas-assignment-manager/pkg/secret"
)

// @title Canvas Assignment Manager
// @version 1.0.0
// @description Aggregates, classifies and triages Canvas assignments
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "triage")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeBackend, err := openBackend(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store backend", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer closeBackend()

	metrics := service.NewMetricsService()
	clientOpts := canvas.Options{
		Mode:        cfg.Canvas.Mode,
		RelayURL:    cfg.Canvas.RelayURL,
		RelayPrefix: cfg.Relay.Prefix,
		PerPage:     cfg.Canvas.PerPage,
		MaxPages:    cfg.Canvas.MaxPages,
		Timeout:     cfg.Canvas.HTTPTimeout,
		Observer:    metrics,
	}
	newClient := func(apiCfg models.APIConfig) service.UpstreamClient {
		return canvas.NewClient(apiCfg, clientOpts)
	}
	aggregator := service.NewAggregatorService(newClient, metrics, logr, service.AggregatorConfig{Timeout: cfg.Canvas.FetchTimeout})

	store := service.NewAssignmentStore(kv, aggregator, service.StoreOptions{
		Verifier: service.NewCanvasVerifier(newClient, cfg.Canvas.HTTPTimeout),
		Box:      secret.NewBox(cfg.Store.Secret),
		Metrics:  metrics,
		Logger:   logr,
	})
	if err := store.Load(ctx); err != nil {
		logr.Fatal("failed to load persisted state", zap.Error(err))
	}
	if cfg.Canvas.BaseURL != "" && cfg.Canvas.APIKey != "" {
		if err := store.SetConfig(ctx, models.APIConfig{BaseURL: cfg.Canvas.BaseURL, APIKey: cfg.Canvas.APIKey}); err != nil {
			logr.Warn("ignoring CANVAS_BASE_URL/CANVAS_API_KEY", zap.Error(err))
		}
	}

	var queue *jobs.Queue
	if cfg.Refresh.Async {
		queue = jobs.NewQueue(handler.JobTypeRefresh, handler.RefreshJob(store, logr), jobs.QueueConfig{
			Workers: cfg.Refresh.Workers,
			Logger:  logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
	}

	exporter := service.NewExportService(store, logr, nil, nil)
	var assignmentHandler *handler.AssignmentHandler
	if queue != nil {
		assignmentHandler = handler.NewAssignmentHandler(store, exporter, queue, logr)
	} else {
		assignmentHandler = handler.NewAssignmentHandler(store, exporter, nil, logr)
	}
	assignmentHandler.EnableAutoRefresh()
	if assignmentHandler.StartInitialRefresh(ctx) {
		logr.Info("configured store is empty, fetching assignments")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterTriageRoutes(r, assignmentHandler)
	handler.RegisterObservabilityRoutes(r, handler.NewMetricsHandler(metrics, "triage"), true)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logr.Info("triage server starting",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.Env),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("canvas_mode", cfg.Canvas.Mode),
		zap.Bool("async_refresh", cfg.Refresh.Async),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Error("triage server failed", zap.Error(err))
	}
}
