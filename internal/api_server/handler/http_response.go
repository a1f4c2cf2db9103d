package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/api_server/middleware"
	"github.com/executive-war-room/internal/domain/ledger"
)

// Response represents a standard API response
type Response struct {
	OK            bool          `json:"ok"`
	Event         *ledger.Event `json:"event,omitempty"`
	Data          interface{}   `json:"data,omitempty"`
	Error         *ErrorInfo    `json:"error,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	Meta          *MetaInfo     `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		OK:   true,
		Data: data,
	}
}

// NewEventResponse creates the response of a ledger operation
func NewEventResponse(e *ledger.Event) *Response {
	return &Response{
		OK:    true,
		Event: e,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, page, perPage, totalItems int) *Response {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}

	return &Response{
		OK:   true,
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

func respond(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	respond(c, statusCode, NewResponse(data))
}

// RespondWithEvent sends the {ok, event} body of a ledger operation
func RespondWithEvent(c *gin.Context, statusCode int, e *ledger.Event) {
	respond(c, statusCode, NewEventResponse(e))
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, NewErrorResponse(code, message))
}

// RespondWithPaginatedData sends a JSON response with paginated data
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	respond(c, statusCode, NewPaginatedResponse(data, page, perPage, totalItems))
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondEvent sends a 200 OK response with the event
func RespondEvent(c *gin.Context, e *ledger.Event) {
	RespondWithEvent(c, http.StatusOK, e)
}

// RespondCreated sends a 201 Created response with the new event
func RespondCreated(c *gin.Context, e *ledger.Event) {
	RespondWithEvent(c, http.StatusCreated, e)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondUnauthorized sends a 401 Unauthorized response with an error
func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// RespondForbidden sends a 403 Forbidden response with an error
func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Forbidden"
	}
	RespondWithError(c, http.StatusForbidden, "FORBIDDEN", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondMethodNotAllowed sends a 405 Method Not Allowed response with an error
func RespondMethodNotAllowed(c *gin.Context) {
	RespondWithError(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method "+c.Request.Method+" is not allowed")
}

// RespondConflict sends a 409 Conflict response with an error
func RespondConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondStoreError sends a 500 response for a failed or timed out ledger store call
func RespondStoreError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "STORE_ERROR", "The ledger store is unavailable")
}
