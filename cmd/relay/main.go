package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/canvas-assignment-manager/api/swagger"
	"github.com/noah-isme/canvas-assignment-manager/internal/handler"
	"github.com/noah-isme/canvas-assignment-manager/internal/middleware"
	"github.com/noah-isme/canvas-assignment-manager/internal/service"
	"github.com/noah-isme/canvas-assignment-manager/pkg/config"
	"github.com/noah-isme/canvas-assignment-manager/pkg/logger"
	corsmiddleware "github.com/noah-isme/canvas-assignment-manager/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/canvas-assignment-manager/pkg/middleware/requestid"
)

// @title Canvas Relay
// @version 1.0.0
// @description Forwards browser requests to a Canvas instance using per-request credentials
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "relay")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	relaySvc := service.NewRelayService(service.RelayConfig{
		UserAgent: cfg.Relay.UserAgent,
		Timeout:   cfg.Relay.UpstreamTimeout,
	}, metrics, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRelayRoutes(r, cfg.Relay.Prefix, handler.NewRelayHandler(relaySvc, logr))
	handler.RegisterObservabilityRoutes(r, handler.NewMetricsHandler(metrics, "relay"), false)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.RelayPort)
	logr.Info("relay starting",
		zap.String("addr", addr),
		zap.String("env", cfg.Env),
		zap.String("prefix", cfg.Relay.Prefix),
	)
	if err := r.Run(addr); err != nil {
		logr.Fatal("relay failed", zap.Error(err))
	}
}
