package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-vault/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// document mirrors the plaintext schema. Pointer fields let validation tell a
// missing field from a zero value.
type document struct {
	Cards *[]rawCard `json:"cards"`
}

type rawCard struct {
	Question    *string  `json:"question" validate:"required"`
	Choices     []string `json:"choices" validate:"required,min=1"`
	Correct     *int     `json:"correct" validate:"required,gte=0"`
	Explanation *string  `json:"explanation" validate:"required"`
}

// Parser validates and projects plaintext into cards.
type Parser struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewParser creates a Parser. A nil logger falls back to slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	// Report JSON names so errors match the document the author wrote
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Parser{
		validate: v,
		logger:   logger.With(slog.String("component", "content_parser")),
	}
}

var defaultParser = NewParser(nil)

// Parse validates data with the default parser.
func Parse(data []byte) (*domain.ContentPackage, error) {
	return defaultParser.Parse(data)
}

// Parse decodes data as UTF-8 JSON and returns the cards it holds.
func (p *Parser) Parse(data []byte) (*domain.ContentPackage, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return nil, domain.NewFormatError("", "content is not valid UTF-8", nil)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, decodeError(err)
	}

	if doc.Cards == nil {
		return nil, domain.NewFormatError("cards", "is required", domain.ErrValidation)
	}
	raw := *doc.Cards
	if len(raw) == 0 {
		return nil, domain.NewFormatError("cards", "must be a non-empty array", domain.ErrValidation)
	}

	cards := make([]domain.Card, 0, len(raw))
	for i := range raw {
		card, err := p.project(i, raw[i])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	pkg, err := domain.NewContentPackage(cards)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("content parsed", slog.Int("card_count", pkg.Len()))
	return pkg, nil
}

func (p *Parser) project(index int, raw rawCard) (domain.Card, error) {
	if err := p.validate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.Card{}, domain.NewFormatError(
				fmt.Sprintf("cards[%d].%s", index, fe.Field()),
				describe(fe),
				domain.ErrValidation,
			)
		}
		return domain.Card{}, domain.NewFormatError(fmt.Sprintf("cards[%d]", index), "invalid card", err)
	}

	if *raw.Correct >= len(raw.Choices) {
		return domain.Card{}, domain.NewFormatError(
			fmt.Sprintf("cards[%d].correct", index),
			fmt.Sprintf("index %d out of range for %d choices", *raw.Correct, len(raw.Choices)),
			domain.ErrCardCorrectOutOfRange,
		)
	}

	return domain.Card{
		Question:    *raw.Question,
		Choices:     append([]string(nil), raw.Choices...),
		Correct:     *raw.Correct,
		Explanation: *raw.Explanation,
	}, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "gte":
		return "must not be negative"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "(root)"
		}
		return domain.NewFormatError(field,
			fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value), err)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return domain.NewFormatError("", fmt.Sprintf("invalid JSON at offset %d", syntaxErr.Offset), err)
	}

	return domain.NewFormatError("", "invalid JSON", err)
}
