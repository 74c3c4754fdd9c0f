package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/radiology-api/pkg/errors"
)

// Response is the envelope used uniformly by all endpoints.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: "success", Data: data}
}

func NewErrorResponse(message string) *Response {
	return &Response{Status: "error", Message: message}
}

// RespondWithSuccess sends a success envelope with 200.
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

// RespondWithCreated sends a success envelope with 201.
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, NewSuccessResponse(data))
}

// RespondWithMessage sends a success envelope with a message only.
func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, &Response{Status: "success", Message: message})
}

// RespondWithError maps the error taxonomy to its HTTP status and sends an
// error envelope. Internal details are never leaked to clients.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.From(err)
	c.Error(err)
	c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
}

// RespondWithValidationError sends a 422 for structural payload violations.
func RespondWithValidationError(c *gin.Context, err error) {
	RespondWithError(c, errors.Validation(err.Error(), err))
}
