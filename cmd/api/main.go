package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/dafibh/tablero/tablero-backend/docs"
	"github.com/dafibh/tablero/tablero-backend/internal/config"
	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/handler"
	"github.com/dafibh/tablero/tablero-backend/internal/ledger"
	"github.com/dafibh/tablero/tablero-backend/internal/middleware"
	"github.com/dafibh/tablero/tablero-backend/internal/repository/storage"
	"github.com/dafibh/tablero/tablero-backend/internal/repository/webhook"
	"github.com/dafibh/tablero/tablero-backend/internal/service"
	"github.com/dafibh/tablero/tablero-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// @title Tablero API
// @version 1.0
// @description Budget versus actual spend dashboard
// @BasePath /api/v1
func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize record source
	source, err := newRecordSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create record source")
	}

	// WebSocket hub for dataset events
	hub := websocket.NewHub()

	// Initialize services
	dashboardService := service.NewDashboardService(source, ledger.Normalizer{StrictMonths: cfg.StrictMonthNames})
	dashboardService.SetEventPublisher(hub)
	exportService := service.NewExportService()

	var assistantClient domain.AssistantClient
	if cfg.AssistantURL != "" {
		assistantClient = webhook.NewAssistantClient(cfg.AssistantURL, cfg.AssistantTimeout)
	} else {
		log.Warn().Msg("ASSISTANT_URL not set, assistant disabled")
	}
	assistantService := service.NewAssistantService(assistantClient)

	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.AssistantRateLimit, cfg.AssistantRateBurst)

	// Initialize handlers
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	recordHandler := handler.NewRecordHandler(dashboardService, exportService)
	assistantHandler := handler.NewAssistantHandler(assistantService)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, middleware.SessionIDHeader},
		ExposeHeaders: []string{middleware.SessionIDHeader, echo.HeaderContentDisposition},
		MaxAge:        86400,
	}))

	// Security headers middleware (helmet-like); the swagger UI needs its inline scripts
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/swagger")
		},
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"dataset": string(dashboardService.Current().Status),
		})
	})

	// API docs
	if !cfg.IsProduction() {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}
	e.GET("/openapi.json", handler.ServeOpenAPI3Spec)

	// Register API routes
	handler.RegisterRoutes(e, rateLimiter, dashboardHandler, recordHandler, assistantHandler, wsHandler)

	// Dataset loads in the background; requests see the loading snapshot until it lands
	refreshWorker := service.NewRefreshWorker(dashboardService, log.Logger, cfg.RefreshInterval)
	refreshWorker.Start(context.Background())

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	refreshWorker.Stop()
	hub.CloseAll()
	rateLimiter.Stop()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// newRecordSource reads the records from S3 when a bucket is configured,
// otherwise from the data source webhook
func newRecordSource(cfg *config.Config) (domain.RecordSource, error) {
	if cfg.S3.Enabled() {
		log.Info().
			Str("bucket", cfg.S3.Bucket).
			Str("key", cfg.S3.RecordsKey).
			Msg("Reading records from S3")
		s3Source, err := storage.NewS3RecordSource(context.Background(), cfg.S3)
		if err != nil {
			return nil, err
		}
		return s3Source, nil
	}

	log.Info().Str("url", cfg.DataSourceURL).Msg("Reading records from webhook")
	return webhook.NewRecordSource(cfg.DataSourceURL, cfg.DataSourceTimeout), nil
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID))
			if sessionID := req.Header.Get(middleware.SessionIDHeader); sessionID != "" {
				event = event.Str("session_id", sessionID)
			}
			event.Msg("request")

			return nil
		}
	}
}
