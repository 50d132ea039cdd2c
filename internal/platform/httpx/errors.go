// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Client facing messages.
const (
	MsgUnauthorized = "No autorizado"
	MsgInvalidData  = "Datos inválidos"
	MsgInternal     = "Error interno del servidor"
	MsgNotFound     = "Recurso no encontrado"
)

// Business rule codes carried in problem responses.
const (
	CodeEntityInUse        = "entity_in_use"
	CodeDuplicateSKU       = "duplicate_sku"
	CodeDuplicateName      = "duplicate_name"
	CodeDuplicateEmail     = "duplicate_email"
	CodeDuplicateRequest   = "duplicate_request"
	CodeOverpayment        = "overpayment_rejected"
	CodeInvalidPayment     = "invalid_payment"
	CodeSequenceExhausted  = "sequence_exhausted"
	CodeInvalidLineItem    = "invalid_line_item"
	CodeInvalidTransition  = "invalid_status_transition"
	CodeInactiveReference  = "inactive_reference"
	CodeDocumentLocked     = "document_locked"
	CodeAlreadyInvoiced    = "already_invoiced"
	CodeMissingTaxSettings = "missing_tax_settings"
)

// RuleError is a business rule violation with a user facing message.
type RuleError struct {
	Code    string
	Message string
}

// Rule builds a RuleError. Package level rule errors compare by identity.
func Rule(code, message string) *RuleError {
	return &RuleError{Code: code, Message: message}
}

func (e *RuleError) Error() string {
	return e.Message
}

// NotFoundError carries an entity specific message and matches ErrNotFound.
type NotFoundError struct {
	Message string
}

// NotFound builds a NotFoundError.
func NotFound(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// FieldViolation describes one invalid input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field violations and matches ErrValidation.
type ValidationError struct {
	Violations []FieldViolation
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Violations: []FieldViolation{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StatusOf maps an error to the HTTP status it is reported with.
func StatusOf(err error) int {
	var rule *RuleError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &rule):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		rule     *RuleError
		notFound *NotFoundError
		invalid  *ValidationError
	)
	switch {
	case errors.As(err, &rule):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Business Rule Violation",
			Status: http.StatusBadRequest,
			Detail: rule.Message,
			Code:   rule.Code,
		})
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "Not Found", notFound.Message)
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", MsgNotFound)
	case errors.As(err, &invalid):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: MsgInvalidData,
			Errors: invalid.Violations,
		})
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", MsgInvalidData)
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", MsgUnauthorized)
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", MsgUnauthorized)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", MsgInternal)
	}
}

// Fail logs internal errors with request context and writes the problem response.
func Fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if StatusOf(err) == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	RespondError(w, err)
}
