package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const errDaysInvalid = "invalid 'days'; must be a positive integer"

// @Summary      Usage report
// @Description  Per-device energy consumption of a user over the last N days.
// @Tags         usage
// @Produce      json
// @Param        userId  path   int  true   "User ID"
// @Param        days    query  int  false  "Window in days, 1 to usage.max_days (365 by default); larger values return 400"  default(3)  minimum(1)
// @Success      200  {object}  models.UsageReport
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/usage/{userId} [get]
func (h *Handler) getUsage(c *gin.Context) {
	userID := userIDFrom(c)
	days, ok := h.parseDays(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errDaysInvalid})
		return
	}

	report, err := h.services.Usage.GetXDaysUsageForUser(c.Request.Context(), userID, days)
	if err != nil {
		h.respondServiceError(c, errLoadUsage, "usage_report_failed", err, "userId", userID, "days", days)
		return
	}
	c.JSON(http.StatusOK, report)
}

// parseDays reads ?days, falling back to the configured default.
func (h *Handler) parseDays(c *gin.Context) (int, bool) {
	s := c.Query("days")
	if s == "" {
		return h.defaultDays, true
	}
	days, err := strconv.Atoi(s)
	if err != nil || days <= 0 {
		return 0, false
	}
	return days, true
}
