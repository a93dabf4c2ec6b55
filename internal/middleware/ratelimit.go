package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/repository"
)

// RateLimit throttles HTTP requests per client address using the shared
// Redis counter. On a broker error the request is allowed through; rate
// limiting is protection, not a gate.
func RateLimit(stateRepo repository.StateRepository, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:http:" + c.ClientIP()
		limited, err := stateRepo.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logrus.WithError(err).Warn("Rate limit check failed, allowing request")
			c.Next()
			return
		}
		if limited {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
