package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haven-hmis/haven-ledger/internal/api_gateway/middleware"
)

// Response is the envelope every gateway endpoint returns. Exactly one of
// Data or Error is set, and CorrelationID matches the X-Correlation-ID
// header so a rejected submission can be traced through processor logs.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo carries a machine-readable code alongside the human message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func respondError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, data)
}

// RespondAccepted sends a 202 Accepted response. Transaction submissions use
// it: the request is queued for the processor, not yet applied to the ledger.
func RespondAccepted(c *gin.Context, data interface{}) {
	respond(c, http.StatusAccepted, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondForbidden sends a 403 Forbidden response. Approval endpoints use it
// when the caller is not eligible to sign off on a workflow.
func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Forbidden"
	}
	respondError(c, http.StatusForbidden, "FORBIDDEN", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	respondError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondConflict sends a 409 Conflict response. Closed-ledger writes and
// already-decided workflows land here.
func RespondConflict(c *gin.Context, message string) {
	respondError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondInternalError sends a 500 Internal Server Error response without
// exposing the underlying failure
func RespondInternalError(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
