package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrValidation        = errors.New("validation_error")
	ErrNotFound          = errors.New("not_found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidPhone      = errors.New("invalid_phone")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrEmailExists       = errors.New("email_exists")
	ErrInvalidTransition = errors.New("invalid_transition")

	// Rating tokens
	ErrTokenAlreadyUsed = errors.New("token_already_used")
	ErrTokenExpired     = errors.New("token_expired")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")

	// For rate limiting
	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")

	// Twilio / SendGrid failures. Never the primary error of a committed write.
	ErrExternalServiceFailure = errors.New("external_service_failure")

	ErrNoRowsUpdated = errors.New("no_rows_updated")
)

// AppError carries an HTTP status and public code from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Code: ErrCodeValidation, Message: msg, Err: ErrValidation}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Code: ErrCodeNotFound, Message: msg, Err: ErrNotFound}
}

func NewConflictError(msg string, err error) *AppError {
	if err == nil {
		err = ErrConflict
	}
	return &AppError{StatusCode: http.StatusConflict, Code: ErrCodeConflict, Message: msg, Err: err}
}

func NewInvalidTransitionError(msg string) *AppError {
	return &AppError{StatusCode: http.StatusConflict, Code: ErrCodeInvalidTransition, Message: msg, Err: ErrInvalidTransition}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Code: ErrCodeInternal, Message: msg, Err: err}
}

// HandleAppError centralizes responding to AppErrors. Bare sentinels are
// mapped too so services may return them directly.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
		return
	}

	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		RespondErrorWithCode(w, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "Too many requests, try again later", nil, err)
	case errors.Is(err, ErrTokenAlreadyUsed):
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeTokenAlreadyUsed, "already used", nil, err)
	case errors.Is(err, ErrTokenExpired):
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeTokenExpired, "expired", nil, err)
	case errors.Is(err, ErrNotFound):
		RespondErrorWithCode(w, http.StatusNotFound, ErrCodeNotFound, "Not found", nil, err)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrInvalidEmail):
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil, err)
	case errors.Is(err, ErrInvalidTransition):
		RespondErrorWithCode(w, http.StatusConflict, ErrCodeInvalidTransition, "Invalid state transition", nil, err)
	case errors.Is(err, ErrEmailExists), errors.Is(err, ErrConflict):
		RespondErrorWithCode(w, http.StatusConflict, ErrCodeConflict, "Conflict", nil, err)
	case errors.Is(err, ErrRowVersionConflict):
		RespondErrorWithCode(w, http.StatusConflict, ErrCodeRowVersionConflict, "Record was modified concurrently", nil, err)
	default:
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
