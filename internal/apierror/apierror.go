// Package apierror provides the response envelope and the domain error kinds
// of the API. Every 4xx/5xx body goes through this package so clients always
// get {success:false, error:"..."} and never internal details.
package apierror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound   = errors.New("recurso no encontrado")
	ErrValidation = errors.New("datos inválidos")
	ErrConflict   = errors.New("conflicto de estado")
	ErrForbidden  = errors.New("operación no permitida")
)

// kindError carries a user-facing message while still matching its sentinel
// through errors.Is.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func NotFound(msg string) error   { return &kindError{kind: ErrNotFound, msg: msg} }
func Validation(msg string) error { return &kindError{kind: ErrValidation, msg: msg} }
func Conflict(msg string) error   { return &kindError{kind: ErrConflict, msg: msg} }
func Forbidden(msg string) error  { return &kindError{kind: ErrForbidden, msg: msg} }

// APIError is the canonical error envelope.
type APIError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    any    `json:"data,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Success: false, Error: msg}
}

// WithData attaches structured detail, e.g. the currencies out of tolerance.
func WithData(msg string, data any) *APIError {
	return &APIError{Success: false, Error: msg, Data: data}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Success: false, Error: "Error de validacion", Fields: fields}
}

// Status maps a domain error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
