// Package webhook implements the publish trigger: the authenticated entry
// point the voice-AI backend calls when call state changes. Each recognized
// event invalidates the affected rendered views and publishes onto the hub
// so connected stream clients update without a reload. The two effects are
// independent: a failure in one never suppresses the other.
package webhook

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
	"github.com/boostedcalls/boostedcalls/internal/events"
	"github.com/boostedcalls/boostedcalls/internal/logger"
	"github.com/boostedcalls/boostedcalls/internal/validation"
	"github.com/boostedcalls/boostedcalls/internal/viewcache"
)

// Endpoint is the route the trigger is mounted on.
const Endpoint = "/api/webhooks/revalidate"

// SupportedTypes lists the event types the trigger accepts, in the order
// reported by the health check.
var SupportedTypes = []string{
	events.TypeCallUpdated,
	events.TypeCallCreated,
	events.TypeCallCompleted,
	events.TypeCallFailed,
	events.TypeCallsBulk,
	events.TypeRevalidateAll,
}

// Handler serves the publish-trigger endpoint.
type Handler struct {
	hub     *events.Hub
	views   viewcache.Invalidator
	secret  string
	log     *logger.Logger
	now     func() time.Time
	observe func(eventType string, notified []string)
}

// Option configures a Handler.
type Option func(*Handler)

// WithObserver registers a callback invoked after each accepted event with
// the event type and the channels that were notified. Used for metrics.
func WithObserver(fn func(eventType string, notified []string)) Option {
	return func(h *Handler) { h.observe = fn }
}

// NewHandler creates a webhook handler. The secret is the shared bearer
// credential the external system must present.
func NewHandler(hub *events.Hub, views viewcache.Invalidator, secret string, log *logger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	h := &Handler{
		hub:    hub,
		views:  views,
		secret: secret,
		log:    log.WithComponent("webhook"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type eventRequest struct {
	Type    string   `json:"type" validate:"required"`
	CallID  string   `json:"callId"`
	CallIDs []string `json:"callIds"`
}

type eventResponse struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	RevalidatedPaths []string `json:"revalidatedPaths"`
	NotifiedChannels []string `json:"notifiedChannels"`
	Timestamp        string   `json:"timestamp"`
}

// Notify handles POST /api/webhooks/revalidate.
func (h *Handler) Notify(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := apperr.BadRequest("Invalid JSON body").WithCause(err)
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	if err := validation.Validate(req); err != nil {
		appErr, _ := apperr.AsAppError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}

	resp, err := h.apply(req)
	if err != nil {
		if appErr, ok := apperr.AsAppError(err); ok {
			c.JSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		appErr := apperr.Internal(err)
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health handles GET /api/webhooks/revalidate, reporting the supported
// event types behind the same bearer check as the trigger itself.
func (h *Handler) Health(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"endpoint":       Endpoint,
		"supportedTypes": SupportedTypes,
	})
}

// authorized verifies the shared bearer secret. A mismatch writes a 401 and
// returns false; nothing further may run.
func (h *Handler) authorized(c *gin.Context) bool {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" || h.secret == "" || token != h.secret {
		err := apperr.Unauthorized("")
		c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
		return false
	}
	return true
}

// apply dispatches the event to its invalidation and publication effects.
func (h *Handler) apply(req eventRequest) (*eventResponse, error) {
	var revalidated, notified []string
	timestamp := h.now().UnixMilli()

	switch req.Type {
	case events.TypeCallCreated, events.TypeCallUpdated, events.TypeCallCompleted, events.TypeCallFailed:
		h.invalidate(viewcache.ListView)
		revalidated = append(revalidated, viewcache.ListView)

		payload := events.Payload{"type": req.Type, "timestamp": timestamp}
		if req.CallID != "" {
			payload["callId"] = req.CallID
		}
		h.publish(events.ChannelCampaigns, payload)
		notified = append(notified, events.ChannelCampaigns)

		if req.CallID != "" {
			h.invalidate(viewcache.DetailView(req.CallID))
			revalidated = append(revalidated, viewcache.DetailView(req.CallID))
			h.publish(events.ChannelCall(req.CallID), payload)
			notified = append(notified, events.ChannelCall(req.CallID))
		}

	case events.TypeCallsBulk:
		h.invalidate(viewcache.ListView)
		revalidated = append(revalidated, viewcache.ListView)
		h.publish(events.ChannelCampaigns, events.Payload{
			"type":      req.Type,
			"callIds":   req.CallIDs,
			"timestamp": timestamp,
		})
		notified = append(notified, events.ChannelCampaigns)

		for _, id := range req.CallIDs {
			h.invalidate(viewcache.DetailView(id))
			revalidated = append(revalidated, viewcache.DetailView(id))
			h.publish(events.ChannelCall(id), events.Payload{
				"type":      req.Type,
				"callId":    id,
				"timestamp": timestamp,
			})
			notified = append(notified, events.ChannelCall(id))
		}

	case events.TypeRevalidateAll:
		h.invalidateAll()
		revalidated = append(revalidated, viewcache.ListView+" (full)")
		h.publish(events.ChannelCampaigns, events.Payload{
			"type":      req.Type,
			"timestamp": timestamp,
		})
		notified = append(notified, events.ChannelCampaigns)

	default:
		return nil, apperr.BadRequest(fmt.Sprintf("Unknown event type: %s", req.Type)).
			WithDetail("type", req.Type)
	}

	if h.observe != nil {
		h.observe(req.Type, notified)
	}

	return &eventResponse{
		Success:          true,
		Message:          "Revalidation triggered and stream clients notified",
		RevalidatedPaths: revalidated,
		NotifiedChannels: notified,
		Timestamp:        h.now().UTC().Format(time.RFC3339),
	}, nil
}

// invalidate drops one view, containing any collaborator panic so a cache
// failure cannot block publication.
func (h *Handler) invalidate(view string) {
	defer h.contain("invalidate", view)()
	h.views.Invalidate(view)
}

func (h *Handler) invalidateAll() {
	defer h.contain("invalidate_all", viewcache.ListView)()
	h.views.InvalidatePrefix(viewcache.ListView)
}

// publish emits onto the hub, contained the same way.
func (h *Handler) publish(channel string, payload events.Payload) {
	defer h.contain("publish", channel)()
	h.hub.Emit(channel, payload)
}

func (h *Handler) contain(op, target string) func() {
	return func() {
		if err := recover(); err != nil {
			h.log.Error("Webhook side effect failed", map[string]interface{}{
				"operation": op,
				"target":    target,
				"error":     err,
			})
		}
	}
}
