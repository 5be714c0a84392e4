package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the structured error payload every failed request gets.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func badRequest(message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, ErrorCode: "INVALID_PARAMETER", Message: message}
}

func notFound(message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, ErrorCode: "NOT_FOUND", Message: message}
}