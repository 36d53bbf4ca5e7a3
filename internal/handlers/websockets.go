package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 5 * time.Second
	minInterval      = 1 * time.Second
	maxInterval      = 60 * time.Second
	maxIntervalMilli = 60_000
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsUsage streams the user's usage report every interval.
func (h *Handler) wsUsage(c *gin.Context) {
	userID := userIDFrom(c)
	days, ok := h.parseDays(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errDaysInvalid})
		return
	}
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendUsage(ctx, conn, userID, days); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "userId", userID, "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendUsage(ctx, conn, userID, days); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "userId", userID, "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=5s or ?interval_ms=5000 within [1s, 60s].
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= minInterval && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v >= int(minInterval.Milliseconds()) && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return defaultInterval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendUsage builds the report and writes it. A report failure is sent as an
// error envelope and ends the stream.
func (h *Handler) sendUsage(ctx context.Context, conn *websocket.Conn, userID int64, days int) error {
	report, err := h.services.Usage.GetXDaysUsageForUser(ctx, userID, days)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_usage_report_failed", "userId", userID, "err", err)
		}
		_ = conn.WriteJSON(wsEnvelope{Type: "error", Error: errLoadUsage})
		return err
	}
	return conn.WriteJSON(wsEnvelope{Type: "usage", Data: report})
}
