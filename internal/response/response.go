package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moveboard/service-booking/internal/domain"
)

// Envelope is the uniform JSON body for every response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Meta carries pagination details for list responses.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// ListEnvelope is the uniform JSON body for paginated list responses.
type ListEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Meta    Meta `json:"meta"`
}

// OK writes a 200 with the given payload.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// List writes a 200 with a paginated payload.
func List(c *gin.Context, data any, page, limit int, total int64) {
	c.JSON(http.StatusOK, ListEnvelope{
		Success: true,
		Data:    data,
		Meta:    Meta{Page: page, Limit: limit, Total: total},
	})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: message, Code: "BAD_REQUEST"})
}

// Unauthorized writes a 401 with the given message.
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Envelope{Success: false, Error: message, Code: "UNAUTHORIZED"})
}

// Forbidden writes a 403 with the given message.
func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, Envelope{Success: false, Error: message, Code: "FORBIDDEN"})
}

// Error maps a domain error onto the appropriate HTTP status. Unknown errors
// become opaque 500s so internals never leak to clients.
func Error(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var conflictErr *domain.ConflictError
	var lockErr *domain.TransientLockError
	var transitionErr *domain.InvalidTransitionError
	var pricingErr *domain.PricingConfigError
	var forbiddenErr *domain.ForbiddenError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: err.Error(), Code: "VALIDATION_ERROR"})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, Envelope{Success: false, Error: err.Error(), Code: "NOT_FOUND"})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, Envelope{Success: false, Error: err.Error(), Code: "CONFLICT"})
	case errors.As(err, &lockErr):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, Envelope{Success: false, Error: err.Error(), Code: "LOCK_TIMEOUT"})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, Envelope{Success: false, Error: err.Error(), Code: "INVALID_TRANSITION"})
	case errors.As(err, &pricingErr):
		c.JSON(http.StatusUnprocessableEntity, Envelope{Success: false, Error: err.Error(), Code: "INVALID_PRICING_CONFIG"})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, Envelope{Success: false, Error: err.Error(), Code: "FORBIDDEN"})
	default:
		c.JSON(http.StatusInternalServerError, Envelope{Success: false, Error: "internal server error", Code: "INTERNAL"})
	}
}
