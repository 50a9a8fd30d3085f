package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
	"github.com/boostedcalls/boostedcalls/internal/httpserver"
	"github.com/boostedcalls/boostedcalls/internal/logger"
	"github.com/boostedcalls/boostedcalls/internal/upstream"
	"github.com/boostedcalls/boostedcalls/internal/viewcache"
)

type callsHandler struct {
	client *upstream.Client
	views  viewcache.Invalidator
	log    *logger.Logger
}

func newCallsHandler(client *upstream.Client, views viewcache.Invalidator, log *logger.Logger) *callsHandler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &callsHandler{client: client, views: views, log: log.WithComponent("api.calls")}
}

// List proxies the call list, forwarding the query string unchanged.
func (h *callsHandler) List(c *gin.Context) {
	body, err := h.client.ListCalls(c.Request.Context(), httpserver.TokenFrom(c), c.Request.URL.Query())
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

// Get proxies a single call fetch.
func (h *callsHandler) Get(c *gin.Context) {
	body, err := h.client.GetCall(c.Request.Context(), httpserver.TokenFrom(c), c.Param("id"))
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

// Place places an outbound call. Clients send either snake_case or camelCase
// field names; both spellings are accepted. A successful placement
// invalidates the campaigns list view so the next render shows the call.
func (h *callsHandler) Place(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpserver.RespondWithError(c, apperr.BadRequest("Invalid JSON body"))
		return
	}

	params := upstream.PlaceCallParams{
		ContactID:     strField(raw, "contact_id", "contactId"),
		AssistantID:   strField(raw, "assistant_id", "assistantId"),
		PhoneNumberID: strField(raw, "phone_number_id", "phoneNumberId"),
		ScriptID:      strPtrField(raw, "script_id", "scriptId"),
		CustomPrompt:  strPtrField(raw, "custom_prompt", "customPrompt"),
		FirstMessage:  strPtrField(raw, "first_message", "firstMessage"),
		CallGoals:     strPtrField(raw, "call_goals", "callGoals"),
		Metadata:      mapField(raw, "metadata"),
	}

	body, err := h.client.PlaceCall(c.Request.Context(), httpserver.TokenFrom(c), params)
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}

	h.views.Invalidate(viewcache.ListView)
	h.log.Debug("call placed", logger.Fields("contact_id", params.ContactID))
	httpserver.RespondRaw(c, http.StatusOK, body)
}

// strField returns the first present string value among the given keys.
func strField(body map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := body[k].(string); ok {
			return v
		}
	}
	return ""
}

// strPtrField is strField for optional fields; absent means nil.
func strPtrField(body map[string]any, keys ...string) *string {
	for _, k := range keys {
		if v, ok := body[k].(string); ok {
			return &v
		}
	}
	return nil
}

func mapField(body map[string]any, key string) map[string]any {
	if v, ok := body[key].(map[string]any); ok {
		return v
	}
	return nil
}
