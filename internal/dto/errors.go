package dto

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the error_code field of the response envelope.
const (
	ErrCodeValidation           = "validation_error"
	ErrCodeDailyLimitReached    = "daily_limit_reached"
	ErrCodeTextTooLong          = "text_too_long"
	ErrCodeLanguageNotAvailable = "language_not_available"
	ErrCodeAIError              = "ai_error"
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodeForbidden            = "forbidden"
	ErrCodeTransactionClaimed   = "transaction_claimed"
	ErrCodeNotFound             = "not_found"
	ErrCodeConflict             = "conflict"
	ErrCodeStoreUnavailable     = "store_unavailable"
	ErrCodeInternal             = "internal_error"
)

// ActionError is a typed domain failure that maps onto one HTTP status and error code.
type ActionError struct {
	Status           int
	Code             string
	Message          string
	Limit            *int
	RemainingActions *int
	Err              error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// AsActionError extracts an *ActionError from err's chain.
func AsActionError(err error) (*ActionError, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func intPtr(v int) *int {
	return &v
}

func NewValidationError(message string) *ActionError {
	return &ActionError{Status: http.StatusUnprocessableEntity, Code: ErrCodeValidation, Message: message}
}

func NewDailyLimitReachedError(limit int, lifetime bool) *ActionError {
	msg := "Daily action limit reached. Upgrade your plan or try again tomorrow."
	if lifetime {
		msg = "Free action limit reached. Upgrade your plan to keep going."
	}
	return &ActionError{
		Status:           http.StatusTooManyRequests,
		Code:             ErrCodeDailyLimitReached,
		Message:          msg,
		Limit:            intPtr(limit),
		RemainingActions: intPtr(0),
	}
}

func NewTextTooLongError(limit, remaining int) *ActionError {
	return &ActionError{
		Status:           http.StatusUnprocessableEntity,
		Code:             ErrCodeTextTooLong,
		Message:          fmt.Sprintf("Text exceeds the %d character limit of your plan", limit),
		Limit:            intPtr(limit),
		RemainingActions: intPtr(remaining),
	}
}

func NewLanguageNotAvailableError(language string, remaining int) *ActionError {
	return &ActionError{
		Status:           http.StatusForbidden,
		Code:             ErrCodeLanguageNotAvailable,
		Message:          fmt.Sprintf("Translation into %q requires a paid plan", language),
		RemainingActions: intPtr(remaining),
	}
}

func NewAIError(err error, remaining int) *ActionError {
	return &ActionError{
		Status:           http.StatusBadGateway,
		Code:             ErrCodeAIError,
		Message:          "The AI service failed to process the request",
		RemainingActions: intPtr(remaining),
		Err:              err,
	}
}

func NewUnauthorizedError(message string) *ActionError {
	return &ActionError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: message}
}

func NewForbiddenError(message string) *ActionError {
	return &ActionError{Status: http.StatusForbidden, Code: ErrCodeForbidden, Message: message}
}

func NewTransactionClaimedError() *ActionError {
	return &ActionError{
		Status:  http.StatusConflict,
		Code:    ErrCodeTransactionClaimed,
		Message: "This purchase is already linked to another account",
	}
}

func NewConflictError(message string) *ActionError {
	return &ActionError{Status: http.StatusConflict, Code: ErrCodeConflict, Message: message}
}

func NewNotFoundError(message string) *ActionError {
	return &ActionError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

func NewStoreUnavailableError(err error) *ActionError {
	return &ActionError{
		Status:  http.StatusServiceUnavailable,
		Code:    ErrCodeStoreUnavailable,
		Message: "The App Store could not be reached. Try again later.",
		Err:     err,
	}
}
