package session

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeCards(n, choices int) []domain.Card {
	cards := make([]domain.Card, n)
	for i := range cards {
		opts := make([]string, choices)
		for j := range opts {
			opts[j] = fmt.Sprintf("q%d-choice%d", i, j)
		}
		cards[i] = domain.Card{
			Question:    fmt.Sprintf("question %d", i),
			Choices:     opts,
			Correct:     i % choices,
			Explanation: fmt.Sprintf("explanation %d", i),
		}
	}
	return cards
}

func newTestEngine(t *testing.T, cards []domain.Card, seed int64, opts ...Option) *Engine {
	t.Helper()
	pkg, err := domain.NewContentPackage(cards)
	require.NoError(t, err)

	opts = append([]Option{WithRand(rand.New(rand.NewSource(seed))), WithLogger(testLogger())}, opts...)
	engine, err := NewEngine(pkg, opts...)
	require.NoError(t, err)
	return engine
}

func startEngine(t *testing.T, cards []domain.Card, seed int64, opts ...Option) *Engine {
	t.Helper()
	engine := newTestEngine(t, cards, seed, opts...)
	engine.Initialize()
	require.NoError(t, engine.PresentCurrent())
	return engine
}

func currentCard(e *Engine) domain.Card {
	return e.deck[e.current]
}

func wrongChoice(card domain.Card) int {
	return (card.Correct + 1) % len(card.Choices)
}

func TestNewEngineRejectsEmptyPackage(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil)
	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	cards := makeCards(10, 3)
	engine := newTestEngine(t, cards, 7)
	assert.Equal(t, StatusEmpty, engine.Status())

	engine.Initialize()
	state := engine.State()

	assert.Equal(t, StatusReady, state.Status)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Equal(t, 0, state.CorrectCount)
	assert.Equal(t, 0, state.TotalAnswered)
	assert.Empty(t, state.Answered)
	assert.False(t, state.Revealed)

	// The deck is a permutation of the package
	deckQuestions := make([]string, len(state.Deck))
	for i, card := range state.Deck {
		deckQuestions[i] = card.Question
	}
	originalQuestions := make([]string, len(cards))
	for i, card := range cards {
		originalQuestions[i] = card.Question
	}
	sort.Strings(deckQuestions)
	sort.Strings(originalQuestions)
	assert.Equal(t, originalQuestions, deckQuestions)
}

func TestInitializeLeavesPackageUntouched(t *testing.T) {
	t.Parallel()

	pkg, err := domain.NewContentPackage(makeCards(8, 2))
	require.NoError(t, err)
	before := pkg.Cards()

	engine, err := NewEngine(pkg, WithRand(rand.New(rand.NewSource(3))), WithLogger(testLogger()))
	require.NoError(t, err)
	engine.Initialize()
	require.NoError(t, engine.ReshuffleDeck())

	assert.Equal(t, before, pkg.Cards())
}

func TestFisherYatesBounds(t *testing.T) {
	t.Parallel()

	rec := &recordingShuffler{}
	items := []string{"a", "b", "c", "d"}
	fisherYates(rec, items)

	// i runs from the last index down, j is drawn from [0, i]
	assert.Equal(t, []int{4, 3, 2}, rec.bounds)
	assert.Equal(t, []string{"b", "c", "d", "a"}, items)
}

func TestFisherYatesIsUniform(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	counts := map[string]int{}
	const rounds = 60000
	for i := 0; i < rounds; i++ {
		items := []int{0, 1, 2}
		fisherYates(rng, items)
		counts[fmt.Sprint(items)]++
	}

	require.Len(t, counts, 6)
	for perm, n := range counts {
		assert.InDelta(t, rounds/6, n, rounds/60, "permutation %s", perm)
	}
}

func TestPresentCurrentShuffleCorrectness(t *testing.T) {
	t.Parallel()

	for deckSize := 1; deckSize <= 6; deckSize++ {
		for choices := 1; choices <= 5; choices++ {
			for seed := int64(1); seed <= 20; seed++ {
				engine := startEngine(t, makeCards(deckSize, choices), seed)

				for {
					state := engine.State()
					card := state.Deck[state.CurrentIndex]

					// choice order is a permutation of the original indices
					order := append([]int(nil), state.ChoiceOrder...)
					sort.Ints(order)
					for i := range order {
						require.Equal(t, i, order[i])
					}

					require.Equal(t, card.Correct, state.ChoiceOrder[state.CorrectShuffledIndex],
						"deck=%d choices=%d seed=%d", deckSize, choices, seed)

					_, err := engine.SubmitShuffled(state.CorrectShuffledIndex)
					require.NoError(t, err)
					require.NoError(t, engine.Advance())
					if engine.Status() == StatusCompleted {
						break
					}
				}
				assert.Equal(t, 100, engine.State().Percentage)
			}
		}
	}
}

func TestSubmitShuffledMapsToOriginalIndex(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(3, 4), 11)
	state := engine.State()

	for pos, original := range state.ChoiceOrder {
		if original == currentCard(engine).Correct {
			continue
		}
		outcome, err := engine.SubmitShuffled(pos)
		require.NoError(t, err)
		assert.Equal(t, original, outcome.Selected)
		assert.False(t, outcome.IsCorrect)
		return
	}
	t.Fatal("expected at least one wrong choice")
}

// Scenario B: three cards, wrong then right then answered, then complete.
func TestScenarioThreeCards(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(3, 2), 5)

	outcome, err := engine.SubmitAnswer(wrongChoice(currentCard(engine)))
	require.NoError(t, err)
	assert.False(t, outcome.IsCorrect)
	assert.True(t, outcome.Counted)
	assert.Equal(t, 0, engine.State().CorrectCount)
	assert.Equal(t, 1, engine.State().TotalAnswered)

	require.NoError(t, engine.Advance())
	assert.Equal(t, StatusAnswering, engine.Status())

	outcome, err = engine.SubmitAnswer(currentCard(engine).Correct)
	require.NoError(t, err)
	assert.True(t, outcome.IsCorrect)
	assert.Equal(t, 1, engine.State().CorrectCount)
	assert.Equal(t, 2, engine.State().TotalAnswered)

	require.NoError(t, engine.Advance())
	assert.Equal(t, 2, engine.State().CurrentIndex)

	_, err = engine.SubmitAnswer(currentCard(engine).Correct)
	require.NoError(t, err)
	require.NoError(t, engine.Advance())

	state := engine.State()
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, 2, state.CorrectCount)
	assert.Equal(t, 3, state.TotalAnswered)
	assert.Equal(t, Accuracy(2, 3), state.Percentage)
	assert.Equal(t, 67, state.Percentage)

	view, err := engine.View()
	require.NoError(t, err)
	require.NotNil(t, view.Percentage)
	assert.Equal(t, 67, *view.Percentage)
}

// Scenario C: reshuffling keeps the score but returns to the first card.
func TestReshuffleDeckKeepsScore(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(5, 3), 9)

	_, err := engine.SubmitAnswer(currentCard(engine).Correct)
	require.NoError(t, err)
	require.NoError(t, engine.Advance())
	_, err = engine.SubmitAnswer(wrongChoice(currentCard(engine)))
	require.NoError(t, err)

	before := engine.State()
	require.Equal(t, 1, before.CorrectCount)
	require.Equal(t, 2, before.TotalAnswered)

	require.NoError(t, engine.ReshuffleDeck())

	after := engine.State()
	assert.Equal(t, 0, after.CurrentIndex)
	assert.Equal(t, before.CorrectCount, after.CorrectCount)
	assert.Equal(t, before.TotalAnswered, after.TotalAnswered)
	assert.Equal(t, before.Answered, after.Answered)
	assert.Equal(t, StatusAnswering, after.Status)
}

func TestRestartResetsScore(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(4, 2), 13)
	_, err := engine.SubmitAnswer(currentCard(engine).Correct)
	require.NoError(t, err)
	require.NoError(t, engine.Advance())

	engine.Restart()

	state := engine.State()
	assert.Equal(t, StatusReady, state.Status)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Equal(t, 0, state.CorrectCount)
	assert.Equal(t, 0, state.TotalAnswered)
	assert.Empty(t, state.Answered)
	assert.Nil(t, state.LastOutcome)
}

func TestScoringIsIdempotentAcrossRevisits(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(3, 3), 21)

	_, err := engine.SubmitAnswer(currentCard(engine).Correct)
	require.NoError(t, err)
	require.NoError(t, engine.Advance())
	_, err = engine.SubmitAnswer(wrongChoice(currentCard(engine)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.Retreat())
		assert.Equal(t, 0, engine.State().CurrentIndex)

		// Revisited cards are re-presented, not replayed
		assert.Equal(t, StatusAnswering, engine.Status())

		outcome, err := engine.SubmitAnswer(wrongChoice(currentCard(engine)))
		require.NoError(t, err)
		assert.False(t, outcome.Counted)

		require.NoError(t, engine.Advance())
		outcome, err = engine.SubmitAnswer(currentCard(engine).Correct)
		require.NoError(t, err)
		assert.False(t, outcome.Counted)
	}

	state := engine.State()
	assert.Equal(t, 1, state.CorrectCount)
	assert.Equal(t, 2, state.TotalAnswered)
	assert.Equal(t, []int{0, 1}, state.Answered)
}

func TestDuplicateSubmitIsIgnored(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(2, 3), 17)
	card := currentCard(engine)

	first, err := engine.SubmitAnswer(card.Correct)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := engine.SubmitAnswer(wrongChoice(card))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Counted)
	assert.Equal(t, first.Selected, second.Selected)
	assert.True(t, second.IsCorrect)

	// Out-of-range duplicates are ignored too
	_, err = engine.SubmitShuffled(99)
	require.NoError(t, err)

	state := engine.State()
	assert.Equal(t, 1, state.CorrectCount)
	assert.Equal(t, 1, state.TotalAnswered)
	assert.Equal(t, StatusRevealed, state.Status)
}

func TestInvalidTransitions(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, makeCards(2, 2), 1)

	// Empty
	assert.ErrorIs(t, engine.PresentCurrent(), ErrInvalidTransition)
	_, err := engine.SubmitAnswer(0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, engine.Advance(), ErrInvalidTransition)
	assert.ErrorIs(t, engine.Retreat(), ErrInvalidTransition)
	assert.ErrorIs(t, engine.ReshuffleDeck(), ErrInvalidTransition)
	_, err = engine.View()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Ready: nothing presented yet
	engine.Initialize()
	_, err = engine.SubmitAnswer(0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, engine.Advance(), ErrInvalidTransition)
	assert.ErrorIs(t, engine.Retreat(), ErrNoPreviousCard)

	// Answering: cannot advance before answering
	require.NoError(t, engine.PresentCurrent())
	assert.ErrorIs(t, engine.Advance(), ErrInvalidTransition)
	_, err = engine.SubmitAnswer(2)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = engine.SubmitAnswer(-1)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = engine.SubmitShuffled(5)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.Equal(t, StatusAnswering, engine.Status())

	// Completed: only navigation back, reshuffle or restart
	for engine.Status() != StatusCompleted {
		if engine.Status() == StatusAnswering {
			_, err = engine.SubmitAnswer(currentCard(engine).Correct)
			require.NoError(t, err)
		}
		require.NoError(t, engine.Advance())
	}
	assert.ErrorIs(t, engine.Advance(), ErrInvalidTransition)
	_, err = engine.SubmitAnswer(0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, engine.PresentCurrent(), ErrInvalidTransition)
}

func TestRetreatFromCompleted(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(2, 2), 4)
	for engine.Status() != StatusCompleted {
		_, err := engine.SubmitAnswer(currentCard(engine).Correct)
		require.NoError(t, err)
		require.NoError(t, engine.Advance())
	}

	require.NoError(t, engine.Retreat())
	state := engine.State()
	assert.Equal(t, StatusAnswering, state.Status)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Equal(t, 2, state.TotalAnswered)
}

func TestProgress(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(4, 2), 8)
	progress := engine.Progress()
	assert.Equal(t, "1 / 4", progress.Label)
	assert.Equal(t, 0, progress.Accuracy)

	_, err := engine.SubmitAnswer(wrongChoice(currentCard(engine)))
	require.NoError(t, err)
	require.NoError(t, engine.Advance())
	_, err = engine.SubmitAnswer(currentCard(engine).Correct)
	require.NoError(t, err)

	progress = engine.Progress()
	assert.Equal(t, "2 / 4", progress.Label)
	assert.Equal(t, 1, progress.Correct)
	assert.Equal(t, 2, progress.Answered)
	assert.Equal(t, 50, progress.Accuracy)
}

func TestAccuracy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		correct, answered, want int
	}{
		{0, 0, 0},
		{0, 1, 0},
		{1, 1, 100},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{5, 7, 71},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Accuracy(tc.correct, tc.answered), "%d/%d", tc.correct, tc.answered)
	}
}

func TestViewHidesAnswerUntilRevealed(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(2, 4), 6)

	view, err := engine.View()
	require.NoError(t, err)
	assert.Nil(t, view.CorrectChoice)
	assert.Nil(t, view.Outcome)
	assert.Len(t, view.Choices, 4)

	state := engine.State()
	card := currentCard(engine)
	for pos, original := range state.ChoiceOrder {
		assert.Equal(t, card.Choices[original], view.Choices[pos])
	}

	_, err = engine.SubmitShuffled(state.CorrectShuffledIndex)
	require.NoError(t, err)

	view, err = engine.View()
	require.NoError(t, err)
	require.NotNil(t, view.CorrectChoice)
	assert.Equal(t, state.CorrectShuffledIndex, *view.CorrectChoice)
	require.NotNil(t, view.Outcome)
	assert.Equal(t, card.Explanation, view.Outcome.Explanation)
}

func TestStateIsASnapshot(t *testing.T) {
	t.Parallel()

	engine := startEngine(t, makeCards(3, 2), 2)
	state := engine.State()
	state.Deck[0].Choices[0] = "tampered"
	state.ChoiceOrder[0] = 99
	state.CorrectCount = 42

	fresh := engine.State()
	assert.NotEqual(t, "tampered", fresh.Deck[0].Choices[0])
	assert.NotEqual(t, 99, fresh.ChoiceOrder[0])
	assert.Equal(t, 0, fresh.CorrectCount)
}

func TestEngineEmitsEvents(t *testing.T) {
	t.Parallel()

	emitter := events.NewInMemoryEventEmitter(testLogger())
	recorder := &events.Recorder{}
	emitter.RegisterHandler(recorder)

	engine := startEngine(t, makeCards(1, 2), 3, WithEmitter(emitter))
	_, err := engine.SubmitAnswer(currentCard(engine).Correct)
	require.NoError(t, err)
	require.NoError(t, engine.Advance())

	assert.Equal(t, []string{
		events.TypeSessionInitialized,
		events.TypeCardPresented,
		events.TypeAnswerSubmitted,
		events.TypeSessionCompleted,
	}, recorder.Types())

	for _, ev := range recorder.Events() {
		assert.Equal(t, engine.ID(), ev.SessionID)
	}

	var outcome Outcome
	require.NoError(t, recorder.Events()[2].UnmarshalPayload(&outcome))
	assert.True(t, outcome.IsCorrect)
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	names := []string{}
	for s := StatusEmpty; s <= StatusCompleted; s++ {
		names = append(names, s.String())
	}
	assert.Equal(t, "empty ready answering revealed completed", strings.Join(names, " "))
	assert.Equal(t, "unknown", Status(99).String())
}

type recordingShuffler struct {
	bounds []int
}

func (r *recordingShuffler) Intn(n int) int {
	r.bounds = append(r.bounds, n)
	return 0
}

func TestStatusTextRoundTrip(t *testing.T) {
	t.Parallel()

	for s := StatusEmpty; s <= StatusCompleted; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var got Status
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}

	var bad Status
	assert.Error(t, bad.UnmarshalText([]byte("paused")))
}
