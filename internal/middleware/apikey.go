package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/service"
)

// APIKeyAuth guards world-scoped control routes. The bearer key must match
// one of the bcrypt hashes stored in the world's config.
func APIKeyAuth(worlds *service.WorldService) gin.HandlerFunc {
	return func(c *gin.Context) {
		worldID := c.Param("world")
		header := c.GetHeader("Authorization")
		key := strings.TrimPrefix(header, "Bearer ")
		if key == "" || key == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}
		if !worlds.CheckAPIKey(c.Request.Context(), worldID, key) {
			logrus.WithField("world_id", worldID).Warn("Rejected control API request with bad key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}
