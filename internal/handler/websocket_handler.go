package handler

import (
	"net/http"
	"slices"

	"github.com/dafibh/tablero/tablero-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler subscribes dashboards to dataset events
type WebSocketHandler struct {
	hub      *websocket.Hub
	origins  []string
	anyOrig  bool
	upgrader ws.Upgrader
}

// NewWebSocketHandler creates a WebSocketHandler accepting the same origins as
// the CORS config. "*" accepts any origin.
func NewWebSocketHandler(hub *websocket.Hub, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:     hub,
		origins: allowedOrigins,
		anyOrig: slices.Contains(allowedOrigins, "*"),
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  512,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts requests without an Origin header (non-browser clients)
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.anyOrig || slices.Contains(h.origins, origin) {
		return true
	}

	log.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS handles WebSocket connection requests at GET /ws
// @Summary Subscribe to dataset events
// @Description Upgrades to a WebSocket that receives dataset.loading, dataset.refreshed and dataset.failed events. The latest event is replayed on connect.
// @Tags realtime
// @Success 101
// @Failure 403 {string} string "Origin not allowed"
// @Router /ws [get]
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	req := c.Request()

	// The upgrader writes its own 403/400 response on failure
	conn, err := h.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		log.Debug().Err(err).Str("remote_ip", c.RealIP()).Msg("WebSocket upgrade failed")
		return nil
	}

	client := websocket.NewClient(conn, req.Header.Get("Origin"), h.hub)
	h.hub.Register(client)
	go client.Serve()

	log.Info().
		Str("client_id", client.ID()).
		Str("origin", client.Origin()).
		Int("client_count", h.hub.ClientCount()).
		Msg("Dashboard subscribed")
	return nil
}
