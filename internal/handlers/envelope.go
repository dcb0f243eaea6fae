// Package handlers maps record-manager results onto the standard response
// envelope and validates inbound fields at the request boundary.
package handlers

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gomonitor/internal/manager"
)

// Machine-readable error codes carried in the envelope.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeAlreadyMonitored     = "ALREADY_MONITORED"
	CodeInvalidURL           = "INVALID_URL"
	CodeNotFound             = "NOT_FOUND"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// Response is the standard envelope returned by every operation.
type Response struct {
	Success         bool        `json:"success"`
	Data            any         `json:"data,omitempty"`
	Error           *ErrorBody  `json:"error,omitempty"`
	Message         string      `json:"message"`
	Timestamp       time.Time   `json:"timestamp"`
	ExecutionTimeMs float64     `json:"executionTimeMs"`
	MemoryUsage     uint64      `json:"memoryUsage"`
	Pagination      *Pagination `json:"pagination,omitempty"`
}

// ErrorBody carries the machine-readable failure description.
type ErrorBody struct {
	Code        string              `json:"code"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	PerPage     int  `json:"perPage"`
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination computes the page window for a total count.
func NewPagination(page, perPage, totalCount int) *Pagination {
	totalPages := totalCount / perPage
	if totalCount%perPage != 0 {
		totalPages++
	}
	return &Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1 && totalCount > 0,
	}
}

// envelope accumulates timing for one request and renders the response.
type envelope struct {
	c     *gin.Context
	start time.Time
}

func begin(c *gin.Context) envelope {
	return envelope{c: c, start: time.Now()}
}

func (e envelope) render(status int, resp Response) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	resp.Timestamp = time.Now().UTC()
	resp.ExecutionTimeMs = float64(time.Since(e.start).Microseconds()) / 1000.0
	resp.MemoryUsage = ms.Alloc

	e.c.JSON(status, resp)
}

func (e envelope) ok(data any, message string) {
	e.render(http.StatusOK, Response{Success: true, Data: data, Message: message})
}

func (e envelope) created(data any, message string) {
	e.render(http.StatusCreated, Response{Success: true, Data: data, Message: message})
}

func (e envelope) okList(data any, message string, pagination *Pagination) {
	e.render(http.StatusOK, Response{
		Success:    true,
		Data:       data,
		Message:    message,
		Pagination: pagination,
	})
}

func (e envelope) fail(status int, code, message string) {
	e.render(status, Response{
		Success: false,
		Error:   &ErrorBody{Code: code},
		Message: message,
	})
}

// validationFailed renders per-field messages with a status distinct from
// generic errors.
func (e envelope) validationFailed(fieldErrors map[string][]string) {
	e.render(http.StatusUnprocessableEntity, Response{
		Success: false,
		Error: &ErrorBody{
			Code:        CodeValidationError,
			FieldErrors: fieldErrors,
		},
		Message: "validation failed",
	})
}

// failFrom maps a manager error onto the envelope. Raw store errors are
// never exposed; only the error text captured at the point of failure.
func (e envelope) failFrom(err error) {
	switch {
	case errors.Is(err, manager.ErrNotFound):
		e.fail(http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, manager.ErrAlreadyMonitored):
		e.fail(http.StatusConflict, CodeAlreadyMonitored, err.Error())
	case errors.Is(err, manager.ErrInvalidURL):
		e.fail(http.StatusUnprocessableEntity, CodeInvalidURL, err.Error())
	case errors.Is(err, manager.ErrInvalidPlatform):
		e.fail(http.StatusUnprocessableEntity, CodeValidationError, err.Error())
	case errors.Is(err, manager.ErrConfirmationRequired):
		e.fail(http.StatusBadRequest, CodeConfirmationRequired, err.Error())
	default:
		e.fail(http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}
