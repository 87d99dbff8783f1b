package xresponse

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response represents standard API response format
type Response struct {
	Code      int         `json:"code"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorResponse represents error response format
type ErrorResponse struct {
	Code      int         `json:"code"`
	Status    string      `json:"status"`
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Common error codes
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInvalidRestaurant  = "INVALID_RESTAURANT"
	ErrCodeQueueAlreadyExists = "QUEUE_ALREADY_EXISTS"
	ErrCodeQueueNotFound      = "QUEUE_DOESNT_EXIST"
)

// Success sends success response
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, newResponse(http.StatusOK, message, data))
}

// Created sends created response (201)
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, newResponse(http.StatusCreated, message, data))
}

// Error sends error response
func Error(c *gin.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, newErrorResponse(statusCode, errorCode, message, nil))
}

// ErrorWithDetails sends error response with details
func ErrorWithDetails(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, newErrorResponse(statusCode, errorCode, message, details))
}

// BadRequest sends 400 Bad Request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, ErrCodeValidationFailed, message)
}

// Unauthorized sends 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden sends 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound sends 404 Not Found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalServerError sends 500 Internal Server Error response
func InternalServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable sends 503 Service Unavailable response
func ServiceUnavailable(c *gin.Context, message string, details interface{}) {
	ErrorWithDetails(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, details)
}

// InvalidRestaurant sends 400 Invalid Restaurant error response
func InvalidRestaurant(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, ErrCodeInvalidRestaurant, message)
}

// QueueAlreadyExists sends 409 Queue Already Exists error response
func QueueAlreadyExists(c *gin.Context, message string) {
	Error(c, http.StatusConflict, ErrCodeQueueAlreadyExists, message)
}

// QueueNotFound sends 404 Queue Not Found error response
func QueueNotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, ErrCodeQueueNotFound, message)
}

// ValidationError sends validation error response with field details
func ValidationError(c *gin.Context, details interface{}) {
	ErrorWithDetails(c, http.StatusBadRequest, ErrCodeValidationFailed, "Validation failed", details)
}

// statusFromCode maps an HTTP status code onto the envelope status
func statusFromCode(code int) string {
	if code >= 200 && code < 300 {
		return "success"
	}
	return "error"
}

// newResponse builds a standard response
func newResponse(code int, message string, data interface{}) Response {
	return Response{
		Code:      code,
		Status:    statusFromCode(code),
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// newErrorResponse builds an error response
func newErrorResponse(code int, errorCode, message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		Code:      code,
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Unix(),
	}
}
