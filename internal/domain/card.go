package domain

import (
	"errors"
	"fmt"
)

// Card-specific validation errors
var (
	// ErrCardNoChoices is returned when a card has an empty choice list.
	ErrCardNoChoices = errors.New("card must have at least one choice")

	// ErrCardCorrectOutOfRange is returned when a card's correct index does
	// not point into its choices.
	ErrCardCorrectOutOfRange = errors.New("card correct index out of range")
)

// Card is one multiple-choice question. Correct is a zero-based index into
// Choices. Cards are immutable once parsed.
type Card struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation"`
}

// Validate checks the card invariants.
func (c Card) Validate() error {
	if len(c.Choices) == 0 {
		return ErrCardNoChoices
	}
	if c.Correct < 0 || c.Correct >= len(c.Choices) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrCardCorrectOutOfRange, c.Correct, len(c.Choices))
	}
	return nil
}

// IsCorrect reports whether the original choice index is the right answer.
func (c Card) IsCorrect(original int) bool {
	return original == c.Correct
}

// ContentPackage is the ordered set of cards produced by one successful
// decrypt and parse. It is read-only after construction.
type ContentPackage struct {
	cards []Card
}

// NewContentPackage validates cards and wraps a private copy of them.
// An empty slice is rejected.
func NewContentPackage(cards []Card) (*ContentPackage, error) {
	if len(cards) == 0 {
		return nil, NewFormatError("cards", "must be a non-empty array", ErrValidation)
	}

	owned := make([]Card, len(cards))
	for i, card := range cards {
		if err := card.Validate(); err != nil {
			return nil, NewFormatError(fmt.Sprintf("cards[%d]", i), "invalid card", err)
		}
		owned[i] = card.clone()
	}

	return &ContentPackage{cards: owned}, nil
}

// Len returns the number of cards.
func (p *ContentPackage) Len() int {
	return len(p.cards)
}

// Card returns the card at index i.
func (p *ContentPackage) Card(i int) Card {
	return p.cards[i].clone()
}

// Cards returns a copy of the cards in their original order.
func (p *ContentPackage) Cards() []Card {
	out := make([]Card, len(p.cards))
	for i, card := range p.cards {
		out[i] = card.clone()
	}
	return out
}

func (c Card) clone() Card {
	c.Choices = append([]string(nil), c.Choices...)
	return c
}
