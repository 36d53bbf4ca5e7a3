package handlers

import (
	"errors"
	"net/http"

	"energy_usage/internal/directory"
	"energy_usage/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errLoadUsage     = "failed to load usage"
	errLoadAlerts    = "failed to load alerts"
	errUserNotFound  = "user or devices not found"
	errDirectoryDown = "device directory unavailable"
)

// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondServiceError maps service and directory errors to HTTP codes.
func (h *Handler) respondServiceError(c *gin.Context, fallbackMsg, logKey string, err error, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidDays),
		errors.Is(err, service.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, directory.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
	case errors.Is(err, service.ErrDirectoryUnavailable):
		h.logAndJSONError(c, http.StatusBadGateway, errDirectoryDown, logKey, err, kv...)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, fallbackMsg, logKey, err, kv...)
	}
}

