package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/phrazzld/scry-vault/internal/content"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deck = `{"cards":[
{"question":"2+2?","choices":["3","4","5"],"correct":1,"explanation":"Arithmetic."},
{"question":"Largest planet?","choices":["Jupiter","Mars"],"correct":0,"explanation":"Jupiter."}
]}`

// passwordUnlocker opens the deck for one password.
type passwordUnlocker struct {
	password string
	err      error
}

func (u passwordUnlocker) Unlock(_ context.Context, _ []byte, password string) (service.UnlockResult, error) {
	if u.err != nil {
		return service.UnlockResult{}, u.err
	}
	if password != u.password {
		return service.UnlockResult{}, domain.ErrAuthentication
	}
	pkg, err := content.Parse([]byte(deck))
	return service.UnlockResult{Package: pkg}, err
}

// supersedingUnlocker reports its first success as overtaken by a newer
// attempt.
type supersedingUnlocker struct {
	passwordUnlocker
	calls int
}

func (u *supersedingUnlocker) Unlock(ctx context.Context, blob []byte, password string) (service.UnlockResult, error) {
	u.calls++
	res, err := u.passwordUnlocker.Unlock(ctx, blob, password)
	res.Attempt = uint64(u.calls)
	res.Superseded = u.calls == 1
	return res, err
}

func run(t *testing.T, input string, unlocker service.PackageUnlocker, cfg Config) (Result, string, error) {
	t.Helper()
	var out bytes.Buffer
	c, err := NewClient(service.StaticSource("blob"), unlocker, strings.NewReader(input), &out, cfg, nil)
	require.NoError(t, err)
	res, err := c.Run(context.Background())
	return res, out.String(), err
}

func TestNewClient_NilDependencies(t *testing.T) {
	_, err := NewClient(nil, passwordUnlocker{}, strings.NewReader(""), io.Discard, Config{}, nil)
	assert.ErrorIs(t, err, service.ErrNilDependency)
}

func TestClient_CompletesQuiz(t *testing.T) {
	input := strings.Join([]string{"pw", "1", "n", "1", "n", "q"}, "\n") + "\n"

	res, out, err := run(t, input, passwordUnlocker{password: "pw"}, Config{Seed: 3})
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, 2, res.Answered)
	assert.Equal(t, 2, res.Total)
	assert.Contains(t, out, "Unlocked 2 cards.")
	assert.Contains(t, out, "Card 1 / 2")
	assert.Contains(t, out, "Card 2 / 2")
	assert.Contains(t, out, "Quiz complete!")
	assert.Contains(t, out, "Final score:")
}

func TestClient_RetriesWrongPassword(t *testing.T) {
	res, out, err := run(t, "nope\npw\nq\n", passwordUnlocker{password: "pw"}, Config{Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, UnlockFailedMessage))
	assert.Contains(t, out, "Unlocked 2 cards.")
	assert.NotContains(t, out, "nope")
	assert.False(t, res.Completed)
}

func TestClient_DiscardsSupersededUnlock(t *testing.T) {
	unlocker := &supersedingUnlocker{passwordUnlocker: passwordUnlocker{password: "pw"}}

	res, out, err := run(t, "pw\npw\nq\n", unlocker, Config{Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, unlocker.calls)
	assert.Equal(t, 2, strings.Count(out, "Password: "))
	assert.Equal(t, 1, strings.Count(out, "Unlocked 2 cards."))
	assert.NotContains(t, out, UnlockFailedMessage)
	assert.Equal(t, 2, res.Total)
}

func TestClient_FormatErrorLooksLikeWrongPassword(t *testing.T) {
	bad := domain.NewFormatError("cards", "must be a non-empty array", domain.ErrValidation)
	_, out, err := run(t, "pw\n", passwordUnlocker{err: bad}, Config{MaxAttempts: 1})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Contains(t, out, UnlockFailedMessage)
	assert.NotContains(t, out, "non-empty")
}

func TestClient_PasswordInputEnds(t *testing.T) {
	_, _, err := run(t, "", passwordUnlocker{password: "pw"}, Config{})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestClient_UnlockInfrastructureError(t *testing.T) {
	_, _, err := run(t, "pw\n", passwordUnlocker{err: errors.New("queue closed")}, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue closed")
}

func TestClient_RejectsInvalidCommands(t *testing.T) {
	input := strings.Join([]string{"pw", "n", "p", "9", "xyz", "1", "1", "s", "r", "q"}, "\n") + "\n"

	res, out, err := run(t, input, passwordUnlocker{password: "pw"}, Config{Seed: 5})
	require.NoError(t, err)

	assert.Contains(t, out, "That action is not available right now.")
	assert.Contains(t, out, "Already at the first card.")
	assert.Contains(t, out, "That choice is out of range.")
	assert.Contains(t, out, "Unknown command.")
	// restart zeroes the score
	assert.Equal(t, 0, res.Answered)
}

func TestClient_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	c, err := NewClient(service.StaticSource("blob"), passwordUnlocker{password: "pw"},
		strings.NewReader("pw\n1\n"), &out, Config{}, nil)
	require.NoError(t, err)

	_, err = c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
