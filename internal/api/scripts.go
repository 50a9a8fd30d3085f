package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
	"github.com/boostedcalls/boostedcalls/internal/httpserver"
	"github.com/boostedcalls/boostedcalls/internal/upstream"
)

type scriptsHandler struct {
	client *upstream.Client
}

func newScriptsHandler(client *upstream.Client) *scriptsHandler {
	return &scriptsHandler{client: client}
}

func (h *scriptsHandler) List(c *gin.Context) {
	body, err := h.client.ListScripts(c.Request.Context(), httpserver.TokenFrom(c))
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

func (h *scriptsHandler) Get(c *gin.Context) {
	body, err := h.client.GetScript(c.Request.Context(), httpserver.TokenFrom(c), c.Param("id"))
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

func (h *scriptsHandler) Create(c *gin.Context) {
	params, ok := bindScriptParams(c)
	if !ok {
		return
	}
	body, err := h.client.CreateScript(c.Request.Context(), httpserver.TokenFrom(c), params)
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

func (h *scriptsHandler) Update(c *gin.Context) {
	params, ok := bindScriptParams(c)
	if !ok {
		return
	}
	body, err := h.client.UpdateScript(c.Request.Context(), httpserver.TokenFrom(c), c.Param("id"), params)
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

func (h *scriptsHandler) Delete(c *gin.Context) {
	if err := h.client.DeleteScript(c.Request.Context(), httpserver.TokenFrom(c), c.Param("id")); err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Script deleted successfully"})
}

// Script fields also arrive in either snake_case or camelCase.
func bindScriptParams(c *gin.Context) (upstream.ScriptParams, bool) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpserver.RespondWithError(c, apperr.BadRequest("Invalid JSON body"))
		return upstream.ScriptParams{}, false
	}
	return upstream.ScriptParams{
		Name:         strField(raw, "name"),
		Description:  strPtrField(raw, "description"),
		CustomPrompt: strPtrField(raw, "custom_prompt", "customPrompt"),
		FirstMessage: strPtrField(raw, "first_message", "firstMessage"),
		CallGoals:    strPtrField(raw, "call_goals", "callGoals"),
	}, true
}
