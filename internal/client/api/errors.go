package api

import (
	"errors"
	"fmt"
	"net/http"

	"ai-textassist-be/internal/dto"
)

var (
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrTextTooLong          = errors.New("text too long")
	ErrLanguageNotAvailable = errors.New("language not available on this plan")
	ErrUnauthorized         = errors.New("session is not valid")
	ErrAIFailure            = errors.New("ai service failed")
	ErrValidation           = errors.New("invalid request")
	ErrTransactionClaimed   = errors.New("transaction belongs to another account")
	ErrNotFound             = errors.New("not found")
	// ErrTransient covers timeouts, connectivity and 5xx. Safe to retry.
	ErrTransient = errors.New("temporary failure")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status           int
	Code             string
	Message          string
	Limit            *int
	RemainingActions *int
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// Is lets callers match an Error against the sentinels above.
func (e *Error) Is(target error) bool {
	return e.kind() == target
}

func (e *Error) kind() error {
	switch e.Code {
	case dto.ErrCodeDailyLimitReached:
		return ErrQuotaExceeded
	case dto.ErrCodeTextTooLong:
		return ErrTextTooLong
	case dto.ErrCodeLanguageNotAvailable:
		return ErrLanguageNotAvailable
	case dto.ErrCodeUnauthorized:
		return ErrUnauthorized
	case dto.ErrCodeAIError:
		return ErrAIFailure
	case dto.ErrCodeValidation:
		return ErrValidation
	case dto.ErrCodeTransactionClaimed:
		return ErrTransactionClaimed
	case dto.ErrCodeNotFound:
		return ErrNotFound
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status >= 500:
		return ErrTransient
	case e.Status == http.StatusUnprocessableEntity, e.Status == http.StatusBadRequest:
		return ErrValidation
	}
	return nil
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsUpgradeRequired reports errors that should route the user to the upgrade surface.
func IsUpgradeRequired(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrLanguageNotAvailable)
}

type transientError struct{ err error }

func (e *transientError) Error() string        { return "api: " + e.err.Error() }
func (e *transientError) Unwrap() error        { return e.err }
func (e *transientError) Is(target error) bool { return target == ErrTransient }
