package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrForbidden    = errors.New("action forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Ticket validation
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleTooLong        = errors.New("title exceeds maximum length of 200 characters")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidSeverity     = errors.New("invalid ticket severity")
	ErrInvalidStatus       = errors.New("invalid ticket status")
	ErrInvalidDueDate      = errors.New("invalid due date")
	ErrCreatorRequired     = errors.New("creator ID is required")

	// Lifecycle rules
	ErrNotManager             = errors.New("actor is not a manager")
	ErrSelfReview             = errors.New("manager cannot review own ticket")
	ErrNotDraft               = errors.New("ticket is not in DRAFT")
	ErrNotInReview            = errors.New("ticket is not in REVIEW")
	ErrNotCreator             = errors.New("actor is not the ticket creator")
	ErrSeverityRequired       = errors.New("new severity is required")
	ErrSeverityReasonRequired = errors.New("severity change reason is required")
	ErrUnsupportedAction      = errors.New("unsupported review action")
	ErrNotDeletable           = errors.New("ticket status does not allow deletion")
	ErrStatusNotImportable    = errors.New("ticket status cannot be changed by import")

	// Sequence allocation
	ErrSequenceNotProvisioned = errors.New("ticket sequence not provisioned for year")

	// CSV synchronization
	ErrInvalidCSV        = errors.New("empty or invalid CSV")
	ErrAutomationRunning = errors.New("automation run already in progress")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

// NewForbiddenError reports a precondition on the acting principal. err
// identifies the rule; it defaults to ErrForbidden.
func NewForbiddenError(err error, message string) *AppError {
	if err == nil {
		err = ErrForbidden
	}
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrForbidden, err),
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// TicketNotFound is returned whenever a ticket is missing or tombstoned.
func TicketNotFound() *AppError {
	return NewNotFoundError(ErrTicketNotFound, "Ticket not found")
}

// InvalidCSV rejects a whole CSV payload. cause is kept for logging.
func InvalidCSV(cause error) *AppError {
	err := ErrInvalidCSV
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidCSV, cause)
	}
	return NewBadRequestError(err, "Empty or invalid CSV")
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
