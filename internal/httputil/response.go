// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Notice    string `json:"notice,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	Respond(c, status, ErrorResponse{Code: code, Message: message})
}

// Respond writes body with the request ID filled in and aborts the request.
func Respond(c *gin.Context, status int, body ErrorResponse) {
	body.RequestID = c.GetString(RequestIDKey)
	c.AbortWithStatusJSON(status, body)
}
