package handler

import (
	"github.com/dafibh/tablero/tablero-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, rateLimiter *middleware.RateLimiter, dashboardHandler *DashboardHandler, recordHandler *RecordHandler, assistantHandler *AssistantHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.GET("/summary", dashboardHandler.GetSummary)
	dashboard.GET("/options", dashboardHandler.GetOptions)
	dashboard.GET("/status", dashboardHandler.GetStatus)
	dashboard.POST("/refresh", dashboardHandler.Refresh)

	// Record table routes
	records := api.Group("/records")
	records.GET("", recordHandler.GetRecords)
	records.GET("/export", recordHandler.ExportRecords)

	// Assistant routes (rate limited per session)
	assistant := api.Group("/assistant")
	assistant.POST("/sessions", assistantHandler.NewSession)
	assistant.GET("/messages", assistantHandler.GetMessages)
	assistant.POST("/messages", assistantHandler.SendMessage, middleware.RateLimitMiddleware(rateLimiter))

	// Realtime dataset events
	e.GET("/ws", wsHandler.HandleWS)
}
