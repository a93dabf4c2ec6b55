package websocket

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/hub"
	"github.com/eventhall/eventhall/internal/service"
)

// WebSocketHandler upgrades incoming connections and hands them to the hub.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	worlds   *service.WorldService
}

func NewWebSocketHandler(h *hub.Hub, worlds *service.WorldService) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if worlds == nil {
		panic("WorldService cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the reverse proxy in this deployment.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub:    h,
		worlds: worlds,
	}
}

// Handle serves GET /ws/world/:world. An unknown world is rejected with 404
// before the upgrade; after the upgrade the connection belongs to the hub.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	worldID := c.Param("world")
	world, config, err := h.worlds.Get(c.Request.Context(), worldID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "world not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "world lookup failed"})
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).WithField("world_id", worldID).Warn("WebSocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, world, config)
	client.Run()
}
