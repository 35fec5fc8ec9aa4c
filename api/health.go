package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary		Health check
// @Description	Reports whether the service and its database/redis dependencies are reachable.
// @Tags			ops
// @Produce		json
// @Success		200	{object}	object	"Service healthy"
// @Failure		503	{object}	object	"A dependency is unreachable"
// @Router			/healthz [get]
func (server *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	if err := server.dbStore.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	if err := server.redisClient.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
