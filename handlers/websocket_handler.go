package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prostaff/match-ingest/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Лента событий read-only, ограничение Origin не требуется.
		return true
	},
}

type WebSocketHandler struct {
	hub    *live.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeWs подключает клиента к live-ленте событий конвейера.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту HTTP-ошибкой.
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn)
	client.Serve()
}
