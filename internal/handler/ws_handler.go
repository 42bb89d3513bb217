package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/service"
	"github.com/yourusername/marketplace-api/internal/websocket"
)

// TicketConsumer validates one-time websocket tickets.
type TicketConsumer interface {
	ConsumeWSTicket(ctx context.Context, ticket string) (*service.Identity, error)
}

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	hub      *websocket.Hub
	manager  *websocket.Manager
	tickets  TicketConsumer
	upgrader gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket. Origins are the same list the CORS middleware allows.
func NewWSHandler(hub *websocket.Hub, manager *websocket.Manager, tickets TicketConsumer, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	_, allowAll := allowed["*"]

	return &WSHandler{
		hub:     hub,
		manager: manager,
		tickets: tickets,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Пустой Origin - не браузерный клиент (мобильное приложение, curl)
				if origin == "" || allowAll {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				log.Warn().Str("origin", origin).Msg("[WSHandler] Rejected websocket origin")
				return false
			},
			EnableCompression: true,
		},
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение (?ticket=...)
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// НЕ логируем тикет - это секретные данные аутентификации
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter", "error_type": "token_missing"})
		return
	}

	identity, err := h.tickets.ConsumeWSTicket(c.Request.Context(), ticket)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("[WSHandler] Upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, identity.Subject)
	log.Ctx(c.Request.Context()).Info().Str("subject", identity.Subject).Str("connection_id", client.ConnectionID).
		Msg("[WSHandler] Connection established")
	client.Start(h.manager.HandleMessage)
}
