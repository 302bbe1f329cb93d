package session

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-vault/internal/domain"
)

// Status is the engine's position in the session state machine.
type Status int

// Session states.
const (
	StatusEmpty Status = iota
	StatusReady
	StatusAnswering
	StatusRevealed
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusReady:
		return "ready"
	case StatusAnswering:
		return "answering"
	case StatusRevealed:
		return "revealed"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusEmpty; candidate <= StatusCompleted; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown session status %q", text)
}

// Outcome is the result of scoring one answer.
type Outcome struct {
	// Position is the deck index of the answered card
	Position int `json:"position"`
	// Selected is the original index of the chosen option
	Selected int `json:"selected"`
	// Correct is the original index of the right option
	Correct int `json:"correct"`
	// IsCorrect reports whether Selected == Correct
	IsCorrect bool `json:"is_correct"`
	// Counted is true when this answer changed the aggregate score
	Counted bool `json:"counted"`
	// Duplicate is true when the answer was ignored because the card was
	// already revealed
	Duplicate bool `json:"duplicate"`
	// Explanation is the card's explanation text
	Explanation string `json:"explanation"`
}

// Progress is the read-only projection shown next to the current card.
type Progress struct {
	Position int    `json:"position"`
	Total    int    `json:"total"`
	Label    string `json:"label"`
	Correct  int    `json:"correct"`
	Answered int    `json:"answered"`
	Accuracy int    `json:"accuracy"`
}

// State is a snapshot of the session. It shares no memory with the engine.
type State struct {
	SessionID            uuid.UUID
	Status               Status
	Deck                 []domain.Card
	CurrentIndex         int
	CorrectCount         int
	TotalAnswered        int
	Answered             []int
	Revealed             bool
	ChoiceOrder          []int
	CorrectShuffledIndex int
	Percentage           int
	LastOutcome          *Outcome
}

// View is what a presentation layer needs to render the current card.
// CorrectChoice and Outcome are only populated once the answer is revealed.
type View struct {
	Status        Status   `json:"status"`
	Progress      Progress `json:"progress"`
	Question      string   `json:"question"`
	Choices       []string `json:"choices"`
	CorrectChoice *int     `json:"correct_choice,omitempty"`
	Outcome       *Outcome `json:"outcome,omitempty"`
	Percentage    *int     `json:"percentage,omitempty"`
}

// Accuracy returns round(correct/answered*100), or 0 when nothing has been
// answered.
func Accuracy(correct, answered int) int {
	if answered <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(answered) * 100))
}

func progressLabel(index, total int) string {
	return fmt.Sprintf("%d / %d", index+1, total)
}
