// Package stream implements the Server-Sent-Events endpoint that bridges hub
// subscriptions onto long-lived HTTP responses. One connection per client;
// each connection owns its subscriptions, its keep-alive timer, and a
// buffered outbound queue drained by a single write loop.
package stream

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
	"github.com/boostedcalls/boostedcalls/internal/events"
	"github.com/boostedcalls/boostedcalls/internal/logger"
	"github.com/boostedcalls/boostedcalls/internal/observability"
)

const defaultKeepAliveInterval = 30 * time.Second

// Handler serves the SSE stream endpoint.
type Handler struct {
	hub       *events.Hub
	log       *logger.Logger
	keepAlive time.Duration
	metrics   *observability.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithKeepAliveInterval overrides the keep-alive interval (tests use a short one).
func WithKeepAliveInterval(d time.Duration) Option {
	return func(h *Handler) { h.keepAlive = d }
}

// WithMetrics enables connection and drop metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates a stream handler bound to the given hub.
func NewHandler(hub *events.Hub, log *logger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	h := &Handler{
		hub:       hub,
		log:       log.WithComponent("stream"),
		keepAlive: defaultKeepAliveInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// connectedFrame is the first frame on every stream, acknowledging the
// subscribed channel list so the client can distinguish "open but idle"
// from "not yet connected".
type connectedFrame struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// Stream handles GET /api/events/stream?channels=a,b. It validates the
// channel list, writes the connected acknowledgment, then holds the
// connection open writing framed events until the client disconnects.
func (h *Handler) Stream(c *gin.Context) {
	channels := parseChannels(c.Query("channels"))
	if len(channels) == 0 {
		err := apperr.BadRequest("Missing channels parameter")
		c.JSON(err.HTTPStatus, err.ToResponse())
		return
	}

	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.log.Error("Streaming not supported by response writer")
		c.String(http.StatusInternalServerError, "streaming not supported")
		return
	}

	// SSE connections are long-lived and must not be cut by the server's
	// WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.log.Warn("Could not disable write deadline", logger.Fields("error", err.Error()))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx := c.Request.Context()
	h.metrics.RecordStreamOpen(ctx)
	defer h.metrics.RecordStreamClose(ctx)

	conn := newConnection(h.log)
	conn.onDrop = func() { h.metrics.RecordEventDropped(ctx) }
	defer conn.close()

	ack, _ := json.Marshal(connectedFrame{Type: events.TypeConnected, Channels: channels})
	if _, err := w.Write(dataFrame(ack)); err != nil {
		return
	}
	flusher.Flush()

	for _, channel := range channels {
		ch := channel
		cancel := h.hub.Subscribe(ch, func(p events.Payload) {
			conn.send(frameForEvent(ch, p))
		})
		conn.retain(cancel)
	}

	h.log.Debug("Client connected", map[string]interface{}{
		"channels":    channels,
		"remote_addr": c.Request.RemoteAddr,
	})

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Client disconnected", map[string]interface{}{
				"channels": channels,
				"reason":   ctx.Err().Error(),
			})
			return

		case frame := <-conn.queue:
			if _, err := w.Write(frame); err != nil {
				h.log.Debug("Write failed, closing stream", logger.Fields("error", err.Error()))
				return
			}
			flusher.Flush()

		case <-keepAlive.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// frameForEvent serializes a payload merged with the producing channel name
// so clients subscribed to several channels on one connection can
// disambiguate.
func frameForEvent(channel string, p events.Payload) []byte {
	merged := make(map[string]any, len(p)+1)
	for k, v := range p {
		merged[k] = v
	}
	merged["channel"] = channel

	data, err := json.Marshal(merged)
	if err != nil {
		// Payloads come from JSON bodies, so this should not happen.
		data = []byte(`{}`)
	}
	return dataFrame(data)
}

// dataFrame wraps a JSON payload into an SSE data frame.
func dataFrame(data []byte) []byte {
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	return frame
}

func parseChannels(param string) []string {
	if param == "" {
		return nil
	}
	parts := strings.Split(param, ",")
	channels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			channels = append(channels, p)
		}
	}
	return channels
}
