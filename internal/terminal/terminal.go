package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/service"
	"github.com/phrazzld/scry-vault/internal/session"
)

// UnlockFailedMessage is shown for any failed unlock. Wrong passwords and
// corrupt containers are not told apart.
const UnlockFailedMessage = "Incorrect password. Please try again."

var (
	// errQuit is returned by a command that ends the session
	errQuit = errors.New("quit")

	errUnknownCommand = errors.New("unknown command")
)

// Config configures a terminal session.
type Config struct {
	// Seed fixes the shuffle order; 0 draws a random seed
	Seed int64
	// MaxAttempts bounds password prompts; 0 means unlimited
	MaxAttempts int
}

// Result summarises a finished run.
type Result struct {
	Correct    int
	Answered   int
	Total      int
	Percentage int
	Completed  bool
}

// Client drives one study session over in and out.
type Client struct {
	source   service.ContainerSource
	unlocker service.PackageUnlocker
	cfg      Config
	logger   *slog.Logger

	in  *bufio.Scanner
	out io.Writer
}

// NewClient creates a Client reading commands from in and writing to out.
func NewClient(
	source service.ContainerSource,
	unlocker service.PackageUnlocker,
	in io.Reader,
	out io.Writer,
	cfg Config,
	log *slog.Logger,
) (*Client, error) {
	if source == nil || unlocker == nil || in == nil || out == nil {
		return nil, fmt.Errorf("new terminal client: %w", service.ErrNilDependency)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		source:   source,
		unlocker: unlocker,
		cfg:      cfg,
		logger:   log.With(slog.String("component", "terminal")),
		in:       bufio.NewScanner(in),
		out:      out,
	}, nil
}

// Run unlocks the container and plays the session until the user quits or
// the input is exhausted. It prints the final score before returning.
func (c *Client) Run(ctx context.Context) (Result, error) {
	pkg, err := c.unlock(ctx)
	if err != nil {
		return Result{}, err
	}

	rng, err := session.NewRand(c.cfg.Seed)
	if err != nil {
		return Result{}, fmt.Errorf("seed shuffler: %w", err)
	}
	engine, err := session.NewEngine(pkg, session.WithRand(rng), session.WithLogger(c.logger))
	if err != nil {
		return Result{}, fmt.Errorf("create engine: %w", err)
	}
	engine.Initialize()
	if err := engine.PresentCurrent(); err != nil {
		return Result{}, fmt.Errorf("present first card: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return c.finish(engine), err
		}

		view, err := engine.View()
		if err != nil {
			return c.finish(engine), fmt.Errorf("render card: %w", err)
		}
		c.render(view)

		line, ok := c.readLine("> ")
		if !ok {
			break
		}
		if err := c.dispatch(engine, line); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			c.printf("%s\n", describe(err))
		}
	}

	return c.finish(engine), c.in.Err()
}

// unlock prompts for the password until the container opens, the attempts
// run out or the input ends.
func (c *Client) unlock(ctx context.Context) (*domain.ContentPackage, error) {
	blob, err := c.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load container: %w", err)
	}

	for attempt := 1; c.cfg.MaxAttempts == 0 || attempt <= c.cfg.MaxAttempts; attempt++ {
		password, ok := c.readLine("Password: ")
		if !ok {
			if err := c.in.Err(); err != nil {
				return nil, fmt.Errorf("read password: %w", err)
			}
			return nil, fmt.Errorf("read password: %w", io.ErrUnexpectedEOF)
		}

		res, err := c.unlocker.Unlock(ctx, blob, password)
		if err == nil && res.Superseded {
			c.logger.Debug("discarding superseded unlock",
				slog.Uint64("unlock_attempt", res.Attempt),
				slog.Int("attempt", attempt))
			continue
		}
		if err == nil {
			c.printf("Unlocked %d cards.\n\n", res.Package.Len())
			return res.Package, nil
		}
		if !errors.Is(err, domain.ErrAuthentication) && !errors.Is(err, domain.ErrFormat) {
			return nil, fmt.Errorf("unlock: %w", err)
		}

		c.logger.Debug("unlock rejected",
			slog.String("kind", domain.Kind(err)),
			slog.Int("attempt", attempt))
		c.printf("%s\n", UnlockFailedMessage)
	}
	return nil, fmt.Errorf("unlock: %w", domain.ErrAuthentication)
}

func (c *Client) dispatch(engine *session.Engine, line string) error {
	switch cmd := strings.ToLower(line); cmd {
	case "q", "quit":
		return errQuit
	case "n", "next":
		return engine.Advance()
	case "p", "prev", "previous":
		return engine.Retreat()
	case "r", "restart":
		engine.Restart()
		return engine.PresentCurrent()
	case "s", "shuffle":
		return engine.ReshuffleDeck()
	case "":
		return nil
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			return fmt.Errorf("%w %q", errUnknownCommand, line)
		}
		// Choices are numbered from 1 on screen
		_, err = engine.SubmitShuffled(n - 1)
		return err
	}
}

func (c *Client) render(view session.View) {
	p := view.Progress
	if view.Status == session.StatusCompleted {
		c.printf("Quiz complete! Score: %d/%d (%d%%)\n", p.Correct, p.Answered, *view.Percentage)
		c.printf("[r] restart  [s] shuffle  [p] previous  [q] quit\n")
		return
	}

	c.printf("Card %s  Score: %d/%d (%d%%)\n", p.Label, p.Correct, p.Answered, p.Accuracy)
	c.printf("%s\n", view.Question)
	for i, choice := range view.Choices {
		marker := " "
		if view.CorrectChoice != nil && *view.CorrectChoice == i {
			marker = "*"
		}
		c.printf(" %s%d) %s\n", marker, i+1, choice)
	}

	if view.Outcome == nil {
		c.printf("[1-%d] answer  [p] previous  [s] shuffle  [r] restart  [q] quit\n", len(view.Choices))
		return
	}

	if view.Outcome.IsCorrect {
		c.printf("Correct!\n")
	} else {
		c.printf("Incorrect. The answer is: %s\n", view.Choices[*view.CorrectChoice])
	}
	if view.Outcome.Explanation != "" {
		c.printf("%s\n", view.Outcome.Explanation)
	}
	c.printf("[n] next  [p] previous  [s] shuffle  [r] restart  [q] quit\n")
}

func (c *Client) finish(engine *session.Engine) Result {
	state := engine.State()
	res := Result{
		Correct:    state.CorrectCount,
		Answered:   state.TotalAnswered,
		Total:      len(state.Deck),
		Percentage: session.Accuracy(state.CorrectCount, state.TotalAnswered),
		Completed:  state.Status == session.StatusCompleted,
	}
	c.printf("Final score: %d/%d answered correctly (%d%%), %d cards in deck\n",
		res.Correct, res.Answered, res.Percentage, res.Total)
	return res
}

func (c *Client) readLine(prompt string) (string, bool) {
	c.printf("%s", prompt)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Client) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// describe turns engine errors into a prompt for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidChoice):
		return "That choice is out of range."
	case errors.Is(err, session.ErrNoPreviousCard):
		return "Already at the first card."
	case errors.Is(err, session.ErrInvalidTransition):
		return "That action is not available right now."
	case errors.Is(err, errUnknownCommand):
		return "Unknown command. Type a choice number or n, p, r, s, q."
	default:
		return err.Error()
	}
}
