package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/repository"
	"github.com/eventhall/eventhall/internal/service"
)

// ControlHandler serves the administrative HTTP API. Every route is scoped
// to one world and guarded by the API key middleware.
type ControlHandler struct {
	worlds    *service.WorldService
	stateRepo repository.StateRepository
	bus       bus.Bus
}

func NewControlHandler(worlds *service.WorldService, stateRepo repository.StateRepository, b bus.Bus) *ControlHandler {
	if worlds == nil || stateRepo == nil || b == nil {
		panic("dependencies cannot be nil for ControlHandler")
	}
	return &ControlHandler{worlds: worlds, stateRepo: stateRepo, bus: b}
}

// Summary serves GET /control/worlds/:world.
func (h *ControlHandler) Summary(c *gin.Context) {
	worldID := c.Param("world")
	world, config, err := h.worlds.Get(c.Request.Context(), worldID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	rooms, err := h.worlds.Rooms(c.Request.Context(), worldID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	counts, err := h.stateRepo.ConnectionCounts(c.Request.Context())
	if err != nil {
		// Connection counts are advisory; the summary is still useful.
		counts = nil
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"world": gin.H{
			"id":     world.ID,
			"title":  world.Title,
			"domain": world.Domain,
		},
		"modules":     config.Modules,
		"rooms":       len(rooms),
		"connections": counts,
	})
}

// Reload serves POST /control/worlds/:world/reload. It invalidates the
// cached config on every process through the control channel.
func (h *ControlHandler) Reload(c *gin.Context) {
	worldID := c.Param("world")
	if _, _, err := h.worlds.Get(c.Request.Context(), worldID); err != nil {
		HandleServiceError(c, err)
		return
	}
	h.worlds.Invalidate(worldID)
	err := bus.PublishControl(c.Request.Context(), h.bus, bus.ControlFrame{
		Op:      bus.ControlWorldReload,
		WorldID: worldID,
	})
	if err != nil {
		HandleServiceError(c, service.ErrBrokerUnavailable)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"reloaded": worldID})
}
