package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
)

// RespondWithError inspects err: if it is an *apperr.AppError the status and
// structured body are derived automatically; otherwise a generic 500 is sent.
func RespondWithError(c *gin.Context, err error) {
	if appErr, ok := apperr.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.JSON(http.StatusInternalServerError, apperr.Internal(err).ToResponse())
}

// RespondJSON sends data as a JSON response with the given status.
func RespondJSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// RespondRaw passes an upstream JSON body through unchanged.
func RespondRaw(c *gin.Context, status int, body json.RawMessage) {
	c.Data(status, "application/json; charset=utf-8", body)
}
