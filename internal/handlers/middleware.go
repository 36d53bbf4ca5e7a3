package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userId"

// userIdMiddleware validates the :userId path parameter and stores it in the
// gin context as int64.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	raw := c.Param("userId")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "missing user id",
		})
		return
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "invalid user id",
		})
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

func userIDFrom(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
