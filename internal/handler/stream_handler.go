package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/response"
)

const defaultHeartbeat = 25 * time.Second

// StreamHandler serves feature events over server-sent events.
type StreamHandler struct {
	broker    *realtime.Broker
	heartbeat time.Duration
}

// NewStreamHandler creates a new handler. heartbeat spaces the keep-alive
// pings; zero or negative selects the default.
func NewStreamHandler(broker *realtime.Broker, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{broker: broker, heartbeat: heartbeat}
}

// Stream godoc
// @Summary Subscribe to live events
// @Description Server-sent events for the topics named in the comma-separated "topics" query parameter
// @Tags Realtime
// @Produce text/event-stream
// @Param topics query string true "comma-separated topic list"
// @Success 200 {string} string "event stream"
// @Router /stream [get]
// @Security BearerAuth
func (h *StreamHandler) Stream(c *gin.Context) {
	raw := strings.Split(c.Query("topics"), ",")
	topics := make([]realtime.Topic, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		topic, err := realtime.ParseTopic(name)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed topic "+name))
			return
		}
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at least one topic is required"))
		return
	}

	sub := h.broker.Subscribe(topics...)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("message", ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
