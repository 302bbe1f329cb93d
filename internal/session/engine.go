package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/events"
)

// Common engine errors
var (
	// ErrInvalidTransition indicates the operation is not valid in the
	// engine's current state.
	ErrInvalidTransition = errors.New("operation not valid in current session state")

	// ErrInvalidChoice indicates a selected index outside the card's choices.
	ErrInvalidChoice = errors.New("choice index out of range")

	// ErrNoPreviousCard indicates Retreat was called on the first card.
	ErrNoPreviousCard = errors.New("already at the first card")
)

// Engine is the quiz controller for one study session.
type Engine struct {
	id       uuid.UUID
	original []domain.Card

	status          Status
	deck            []domain.Card
	current         int
	correctCount    int
	totalAnswered   int
	answered        map[int]struct{}
	choiceOrder     []int
	correctShuffled int
	outcome         *Outcome
	percentage      int

	rng     Shuffler
	emitter events.EventEmitter
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for shuffling. Tests pass a seeded
// *math/rand.Rand to make permutations reproducible.
func WithRand(rng Shuffler) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithEmitter sets where transition events are published.
func WithEmitter(emitter events.EventEmitter) Option {
	return func(e *Engine) {
		e.emitter = emitter
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSessionID sets the identifier carried by emitted events.
func WithSessionID(id uuid.UUID) Option {
	return func(e *Engine) {
		e.id = id
	}
}

// NewEngine creates an engine in the Empty state over the cards of pkg. The
// package itself is never reordered; the deck is a session-local copy.
func NewEngine(pkg *domain.ContentPackage, opts ...Option) (*Engine, error) {
	if pkg == nil || pkg.Len() == 0 {
		return nil, fmt.Errorf("new engine: %w", domain.NewFormatError("cards", "must be a non-empty array", domain.ErrValidation))
	}

	e := &Engine{
		id:       uuid.New(),
		original: pkg.Cards(),
		status:   StatusEmpty,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.rng == nil {
		rng, err := NewRand(0)
		if err != nil {
			return nil, fmt.Errorf("new engine: %w", err)
		}
		e.rng = rng
	}

	e.logger = e.logger.With(
		slog.String("component", "session_engine"),
		slog.String("session_id", e.id.String()))
	return e, nil
}

// ID returns the session identifier.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Status returns the current state.
func (e *Engine) Status() Status {
	return e.status
}

// Initialize shuffles a fresh deck from the original cards and resets all
// counters. Valid from any state; leaves the engine Ready.
func (e *Engine) Initialize() {
	e.deck = make([]domain.Card, len(e.original))
	copy(e.deck, e.original)
	fisherYates(e.rng, e.deck)

	e.current = 0
	e.correctCount = 0
	e.totalAnswered = 0
	e.answered = make(map[int]struct{})
	e.choiceOrder = nil
	e.correctShuffled = 0
	e.outcome = nil
	e.percentage = 0
	e.status = StatusReady

	e.logger.Debug("session initialized", slog.Int("deck_size", len(e.deck)))
	e.emit(events.TypeSessionInitialized, map[string]int{"deck_size": len(e.deck)})
}

// Restart is Initialize over the original cards: a new deck order and zeroed
// counters.
func (e *Engine) Restart() {
	e.Initialize()
}

// PresentCurrent shows the current card with a freshly shuffled choice order.
func (e *Engine) PresentCurrent() error {
	switch e.status {
	case StatusReady, StatusAnswering, StatusRevealed:
	default:
		return fmt.Errorf("present card while %s: %w", e.status, ErrInvalidTransition)
	}

	card := e.deck[e.current]
	order := make([]int, len(card.Choices))
	for i := range order {
		order[i] = i
	}
	fisherYates(e.rng, order)

	e.choiceOrder = order
	for pos, original := range order {
		if original == card.Correct {
			e.correctShuffled = pos
			break
		}
	}
	e.outcome = nil
	e.status = StatusAnswering

	e.logger.Debug("card presented",
		slog.Int("position", e.current),
		slog.Int("choice_count", len(order)))
	e.emit(events.TypeCardPresented, map[string]int{"position": e.current})
	return nil
}

// SubmitAnswer scores the choice with original index selected against the
// current card. The aggregate score changes at most once per deck position.
// A second call while the answer is revealed is ignored and returns the
// recorded outcome marked Duplicate.
func (e *Engine) SubmitAnswer(selected int) (Outcome, error) {
	if e.status == StatusRevealed && e.outcome != nil {
		dup := *e.outcome
		dup.Duplicate = true
		dup.Counted = false
		e.logger.Debug("duplicate answer ignored", slog.Int("position", e.current))
		return dup, nil
	}
	if e.status != StatusAnswering {
		return Outcome{}, fmt.Errorf("submit answer while %s: %w", e.status, ErrInvalidTransition)
	}

	card := e.deck[e.current]
	if selected < 0 || selected >= len(card.Choices) {
		return Outcome{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidChoice, selected, len(card.Choices))
	}

	outcome := Outcome{
		Position:    e.current,
		Selected:    selected,
		Correct:     card.Correct,
		IsCorrect:   card.IsCorrect(selected),
		Explanation: card.Explanation,
	}

	if _, seen := e.answered[e.current]; !seen {
		e.totalAnswered++
		if outcome.IsCorrect {
			e.correctCount++
		}
		e.answered[e.current] = struct{}{}
		outcome.Counted = true
	}

	e.outcome = &outcome
	e.status = StatusRevealed

	e.logger.Debug("answer submitted",
		slog.Int("position", e.current),
		slog.Bool("is_correct", outcome.IsCorrect),
		slog.Bool("counted", outcome.Counted),
		slog.Int("correct_count", e.correctCount),
		slog.Int("total_answered", e.totalAnswered))
	e.emit(events.TypeAnswerSubmitted, outcome)
	return outcome, nil
}

// SubmitShuffled answers by display position, translating it through the
// current choice order.
func (e *Engine) SubmitShuffled(position int) (Outcome, error) {
	if e.status == StatusAnswering && (position < 0 || position >= len(e.choiceOrder)) {
		return Outcome{}, fmt.Errorf("%w: position %d not in [0, %d)", ErrInvalidChoice, position, len(e.choiceOrder))
	}
	original := -1
	if position >= 0 && position < len(e.choiceOrder) {
		original = e.choiceOrder[position]
	}
	return e.SubmitAnswer(original)
}

// Advance moves to the next card, or completes the session after the last
// one. Valid only once the current answer is revealed.
func (e *Engine) Advance() error {
	if e.status != StatusRevealed {
		return fmt.Errorf("advance while %s: %w", e.status, ErrInvalidTransition)
	}

	if e.current < len(e.deck)-1 {
		e.current++
		return e.PresentCurrent()
	}

	e.percentage = Accuracy(e.correctCount, e.totalAnswered)
	e.status = StatusCompleted

	e.logger.Info("session completed",
		slog.Int("correct_count", e.correctCount),
		slog.Int("total_answered", e.totalAnswered),
		slog.Int("percentage", e.percentage))
	e.emit(events.TypeSessionCompleted, map[string]int{
		"correct":    e.correctCount,
		"answered":   e.totalAnswered,
		"percentage": e.percentage,
	})
	return nil
}

// Retreat re-presents the previous card with a new choice order. The earlier
// answer is not replayed and the aggregate score is left alone.
func (e *Engine) Retreat() error {
	if e.status == StatusEmpty {
		return fmt.Errorf("retreat while %s: %w", e.status, ErrInvalidTransition)
	}
	if e.current == 0 {
		return ErrNoPreviousCard
	}

	e.current--
	// Completed is not a presentable state; step back into the deck first
	if e.status == StatusCompleted {
		e.status = StatusReady
	}
	return e.PresentCurrent()
}

// ReshuffleDeck permutes the current deck in place and returns to its first
// card. Unlike Restart it keeps the score and the answered set.
func (e *Engine) ReshuffleDeck() error {
	if e.status == StatusEmpty {
		return fmt.Errorf("reshuffle while %s: %w", e.status, ErrInvalidTransition)
	}

	fisherYates(e.rng, e.deck)
	e.current = 0
	if e.status == StatusCompleted {
		e.status = StatusReady
	}

	e.logger.Debug("deck reshuffled", slog.Int("deck_size", len(e.deck)))
	e.emit(events.TypeDeckReshuffled, map[string]int{"deck_size": len(e.deck)})
	return e.PresentCurrent()
}

// Progress returns the position label and running accuracy.
func (e *Engine) Progress() Progress {
	return Progress{
		Position: e.current,
		Total:    len(e.deck),
		Label:    progressLabel(e.current, len(e.deck)),
		Correct:  e.correctCount,
		Answered: e.totalAnswered,
		Accuracy: Accuracy(e.correctCount, e.totalAnswered),
	}
}

// View returns the render model for the current card.
func (e *Engine) View() (View, error) {
	if e.status == StatusEmpty {
		return View{}, fmt.Errorf("view while %s: %w", e.status, ErrInvalidTransition)
	}

	view := View{
		Status:   e.status,
		Progress: e.Progress(),
	}

	if e.status == StatusCompleted {
		pct := e.percentage
		view.Percentage = &pct
		return view, nil
	}

	card := e.deck[e.current]
	view.Question = card.Question
	if e.choiceOrder != nil {
		view.Choices = make([]string, len(e.choiceOrder))
		for pos, original := range e.choiceOrder {
			view.Choices[pos] = card.Choices[original]
		}
	}

	if e.status == StatusRevealed && e.outcome != nil {
		correct := e.correctShuffled
		outcome := *e.outcome
		view.CorrectChoice = &correct
		view.Outcome = &outcome
	}
	return view, nil
}

// State returns a deep copy of the session state.
func (e *Engine) State() State {
	deck := make([]domain.Card, len(e.deck))
	for i, card := range e.deck {
		card.Choices = append([]string(nil), card.Choices...)
		deck[i] = card
	}

	answered := make([]int, 0, len(e.answered))
	for idx := range e.answered {
		answered = append(answered, idx)
	}
	sort.Ints(answered)

	var outcome *Outcome
	if e.outcome != nil {
		o := *e.outcome
		outcome = &o
	}

	return State{
		SessionID:            e.id,
		Status:               e.status,
		Deck:                 deck,
		CurrentIndex:         e.current,
		CorrectCount:         e.correctCount,
		TotalAnswered:        e.totalAnswered,
		Answered:             answered,
		Revealed:             e.status == StatusRevealed,
		ChoiceOrder:          append([]int(nil), e.choiceOrder...),
		CorrectShuffledIndex: e.correctShuffled,
		Percentage:           e.percentage,
		LastOutcome:          outcome,
	}
}

func (e *Engine) emit(eventType string, payload interface{}) {
	if e.emitter == nil {
		return
	}

	event, err := events.NewEvent(eventType, e.id, payload)
	if err != nil {
		e.logger.Warn("failed to build session event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}

	if err := e.emitter.EmitEvent(context.Background(), event); err != nil {
		e.logger.Warn("failed to emit session event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
