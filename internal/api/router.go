// Package api registers the HTTP routes of the BoostedCalls server: the
// event stream, the revalidation webhook, and the authenticated proxy routes
// for calls, contacts, and call scripts.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/events"
	"github.com/boostedcalls/boostedcalls/internal/httpserver"
	"github.com/boostedcalls/boostedcalls/internal/logger"
	"github.com/boostedcalls/boostedcalls/internal/stream"
	"github.com/boostedcalls/boostedcalls/internal/upstream"
	"github.com/boostedcalls/boostedcalls/internal/viewcache"
	"github.com/boostedcalls/boostedcalls/internal/webhook"
)

// RouterDeps carries everything route registration needs.
type RouterDeps struct {
	ServiceName string
	Hub         *events.Hub
	Stream      *stream.Handler
	Webhook     *webhook.Handler
	Upstream    *upstream.Client
	Views       viewcache.Invalidator
	Verifier    httpserver.TokenVerifier
	Log         *logger.Logger
}

// RegisterRoutes wires all routes onto the engine. The event stream and the
// webhook carry their own auth (none and a shared secret respectively); the
// proxy routes require a verified bearer token.
func RegisterRoutes(r *gin.Engine, deps RouterDeps) {
	r.GET("/health", httpserver.Health(deps.ServiceName, func() map[string]any {
		return map[string]any{
			"channels": deps.Hub.ChannelCount(),
			"upstream": deps.Upstream.CircuitState(),
		}
	}))
	r.GET("/info", httpserver.Info(deps.ServiceName))

	// Browsers connect via EventSource, which cannot set headers.
	r.GET("/api/events/stream", deps.Stream.Stream)

	r.POST(webhook.Endpoint, deps.Webhook.Notify)
	r.GET(webhook.Endpoint, deps.Webhook.Health)

	calls := newCallsHandler(deps.Upstream, deps.Views, deps.Log)
	contacts := newContactsHandler(deps.Upstream)
	scripts := newScriptsHandler(deps.Upstream)

	authed := r.Group("/api", httpserver.RequireAuth(deps.Verifier))
	{
		authed.GET("/calls", calls.List)
		authed.POST("/calls", calls.Place)
		authed.GET("/calls/:id", calls.Get)

		authed.GET("/contacts", contacts.List)
		authed.POST("/contacts", contacts.Create)
		authed.GET("/contacts/:id", contacts.Get)
		authed.PUT("/contacts/:id", contacts.Update)
		authed.DELETE("/contacts/:id", contacts.Delete)

		authed.GET("/call-scripts", scripts.List)
		authed.POST("/call-scripts", scripts.Create)
		authed.GET("/call-scripts/:id", scripts.Get)
		authed.PUT("/call-scripts/:id", scripts.Update)
		authed.DELETE("/call-scripts/:id", scripts.Delete)
	}
}
