package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
	"github.com/boostedcalls/boostedcalls/internal/httpserver"
	"github.com/boostedcalls/boostedcalls/internal/upstream"
)

type contactsHandler struct {
	client *upstream.Client
}

func newContactsHandler(client *upstream.Client) *contactsHandler {
	return &contactsHandler{client: client}
}

func (h *contactsHandler) List(c *gin.Context) {
	body, err := h.client.ListContacts(c.Request.Context(), httpserver.TokenFrom(c))
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

func (h *contactsHandler) Get(c *gin.Context) {
	body, err := h.client.GetContact(c.Request.Context(), httpserver.TokenFrom(c), c.Param("id"))
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

func (h *contactsHandler) Create(c *gin.Context) {
	params, ok := bindContactParams(c)
	if !ok {
		return
	}
	body, err := h.client.CreateContact(c.Request.Context(), httpserver.TokenFrom(c), params)
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

func (h *contactsHandler) Update(c *gin.Context) {
	params, ok := bindContactParams(c)
	if !ok {
		return
	}
	body, err := h.client.UpdateContact(c.Request.Context(), httpserver.TokenFrom(c), c.Param("id"), params)
	if err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	httpserver.RespondRaw(c, http.StatusOK, body)
}

func (h *contactsHandler) Delete(c *gin.Context) {
	if err := h.client.DeleteContact(c.Request.Context(), httpserver.TokenFrom(c), c.Param("id")); err != nil {
		httpserver.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contact deleted successfully"})
}

func bindContactParams(c *gin.Context) (upstream.ContactParams, bool) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpserver.RespondWithError(c, apperr.BadRequest("Invalid JSON body"))
		return upstream.ContactParams{}, false
	}
	return upstream.ContactParams{
		Name:     strField(raw, "name"),
		Phone:    strField(raw, "phone"),
		Email:    strPtrField(raw, "email"),
		Metadata: mapField(raw, "metadata"),
	}, true
}
