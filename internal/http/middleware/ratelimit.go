package middleware

import (
	"math"
	"strconv"

	"liveauction/internal/apperr"
	"liveauction/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit refuses callers that exceed l. It runs after RequireActor and
// keys on the actor, falling back to the client IP.
func RateLimit(l ratelimit.Limiter, key func(actorID string) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ActorID(c)
		if !ok {
			id = c.ClientIP()
		}
		err := ratelimit.Check(c.Request.Context(), l, key(id))
		if err == nil {
			c.Next()
			return
		}
		details := apperr.DetailsOf(err)
		if ms, ok := details["retryAfterMs"].(int64); ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(float64(ms)/1000))))
		}
		c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{
			"error":   err.Error(),
			"code":    apperr.KindOf(err).String(),
			"details": details,
		})
	}
}
