package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/followup/pkg/telemetry/correlation"
)

const actorKey = "actor_id"

// ActorRequired rejects requests without an X-Actor-ID header. Identity is
// established by the host's auth layer; this service only reads it.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(correlation.ActorFromContext(c.Request.Context()))
		if actor == "" {
			actor = strings.TrimSpace(c.GetHeader(correlation.HeaderActorID))
		}
		if actor == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(correlation.ContextWithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func actorFrom(c *gin.Context) string {
	return c.GetString(actorKey)
}
