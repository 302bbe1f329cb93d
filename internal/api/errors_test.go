package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-vault/internal/api/shared"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/service"
	"github.com/phrazzld/scry-vault/internal/session"
	"github.com/phrazzld/scry-vault/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"authentication", fmt.Errorf("open: %w", domain.ErrAuthentication), http.StatusUnauthorized, UnlockFailedMessage},
		{"format", domain.NewFormatError("cards[0].choices", "must be a non-empty array", domain.ErrValidation), http.StatusUnauthorized, UnlockFailedMessage},
		{"session not found", service.NewServiceError("view", "lookup failed", service.ErrSessionNotFound), http.StatusNotFound, "Study session not found"},
		{"invalid choice", session.ErrInvalidChoice, http.StatusBadRequest, "Choice is out of range"},
		{"invalid transition", fmt.Errorf("advance: %w", session.ErrInvalidTransition), http.StatusConflict, "That action is not available right now"},
		{"first card", session.ErrNoPreviousCard, http.StatusConflict, "Already at the first card"},
		{"registry full", service.ErrTooManySessions, http.StatusServiceUnavailable, "Server is busy, please retry shortly"},
		{"queue full", task.ErrQueueFull, http.StatusServiceUnavailable, "Server is busy, please retry shortly"},
		{"container missing", service.ErrContainerMissing, http.StatusServiceUnavailable, "Flashcards are not available"},
		{"timeout", fmt.Errorf("wait: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "Unlocking took too long, please retry"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestHandleAPIError_FallbackOnlyForInternalErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	w := httptest.NewRecorder()
	HandleAPIError(w, req, errors.New("/var/lib/secret/path broke"), "Failed to update study session")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to update study session", resp.Error)
	assert.NotContains(t, w.Body.String(), "/var/lib")

	w = httptest.NewRecorder()
	HandleAPIError(w, req, service.ErrSessionNotFound, "Failed to update study session")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Study session not found", resp.Error)
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(&AnswerRequest{})
	require.Error(t, err)
	assert.Equal(t, "Invalid choice: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
