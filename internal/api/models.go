package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/scry-vault/internal/session"
)

// StartSessionRequest is the body of POST /api/sessions. The password may be
// empty but must be present.
type StartSessionRequest struct {
	Password *string `json:"password" validate:"required"`
}

// AnswerRequest is the body of POST /api/sessions/{id}/answer. Choice is the
// display position of the selected option.
type AnswerRequest struct {
	Choice *int `json:"choice" validate:"required,gte=0"`
}

// SessionResponse is returned by every session endpoint.
type SessionResponse struct {
	ID   uuid.UUID    `json:"id"`
	View session.View `json:"view"`
}

// AnswerResponse adds the scored outcome to the session view.
type AnswerResponse struct {
	SessionResponse
	Outcome session.Outcome `json:"outcome"`
}
