package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-vault/internal/api/shared"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/service"
	"github.com/phrazzld/scry-vault/internal/session"
	"github.com/phrazzld/scry-vault/internal/task"
)

// UnlockFailedMessage is the only thing a client learns about a failed
// unlock. Wrong passwords and corrupt containers look the same from outside.
const UnlockFailedMessage = "Incorrect password. Please try again."

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Unlock failures
	case errors.Is(err, domain.ErrAuthentication),
		errors.Is(err, domain.ErrFormat):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, domain.ErrInput),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, session.ErrInvalidChoice):
		return http.StatusBadRequest

	// Conflict errors: the session is not in a state that allows the operation
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrNoPreviousCard):
		return http.StatusConflict

	// Capacity errors
	case errors.Is(err, service.ErrTooManySessions),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, service.ErrContainerMissing):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrAuthentication),
		errors.Is(err, domain.ErrFormat):
		return UnlockFailedMessage

	case errors.Is(err, service.ErrSessionNotFound):
		return "Study session not found"

	case errors.Is(err, session.ErrInvalidChoice):
		return "Choice is out of range"

	case errors.Is(err, session.ErrNoPreviousCard):
		return "Already at the first card"

	case errors.Is(err, session.ErrInvalidTransition):
		return "That action is not available right now"

	case errors.Is(err, service.ErrTooManySessions),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return "Server is busy, please retry shortly"

	case errors.Is(err, service.ErrContainerMissing):
		return "Flashcards are not available"

	case errors.Is(err, context.DeadlineExceeded):
		return "Unlocking took too long, please retry"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. fallbackMsg
// replaces the generic message for unmapped (500) errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMsg != "" {
		message = fallbackMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		// Repeated failures are worth noticing in the logs
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns validator output into a message naming the
// field without echoing its value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "gte", "min":
		return "too small"
	case "lte", "max":
		return "too large"
	default:
		return "validation failed"
	}
}
