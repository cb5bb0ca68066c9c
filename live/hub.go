package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Типы событий пайплайна, транслируемых подписчикам.
const (
	EventSyncCompleted   = "SYNC_COMPLETED"
	EventEnrichCompleted = "ENRICH_COMPLETED"
	EventGameEnriched    = "GAME_ENRICHED"
)

// Event — сообщение для подписчиков live-ленты.
type Event struct {
	Type    string      `json:"type"`
	League  string      `json:"league,omitempty"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// Hub раздаёт события пайплайна подключённым websocket-клиентам.
// Медленный клиент (переполненный канал отправки) отключается, чтобы
// не тормозить свипы.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *slog.Logger
	mu         sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run обслуживает регистрацию клиентов и рассылку до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("live client connected", slog.Int("clients", h.clientCount()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Info("live client disconnected", slog.Int("clients", h.clientCount()))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать — отключаем.
					delete(h.clients, client)
					client.close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish сериализует событие и рассылает его всем подписчикам.
// Ошибка сериализации только логируется: лента не должна ронять свип.
func (h *Hub) Publish(eventType, league string, payload interface{}) {
	event := Event{
		Type:    eventType,
		League:  league,
		Payload: payload,
		At:      time.Now().UTC(),
	}

	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal live event", slog.Any("error", err))
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("live broadcast buffer full, event dropped", slog.String("type", eventType))
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
