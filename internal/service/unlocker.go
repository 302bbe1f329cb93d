package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/platform/logger"
	"github.com/phrazzld/scry-vault/internal/task"
)

// UnlockResult is the outcome of a completed unlock.
type UnlockResult struct {
	// Attempt is the sequence number assigned at submission
	Attempt uint64
	// Package holds the parsed cards
	Package *domain.ContentPackage
	// Superseded is true when a newer attempt was submitted to the same
	// Unlocker before this one finished. Attempts are counted per Unlocker,
	// so the flag only means something when one user owns it; callers that
	// share an Unlocker across users must ignore it.
	Superseded bool
}

// Unlocker runs decrypt-and-parse on the worker pool. Every submission gets a
// new attempt number so a single owner can tell stale results from current
// ones.
type Unlocker struct {
	queue     task.TaskQueueWriter
	decrypter task.Decrypter
	parser    task.ContentParser
	timeout   time.Duration
	latest    atomic.Uint64
	logger    *slog.Logger
}

// NewUnlocker creates an Unlocker. A zero timeout waits until the caller's
// context is done.
func NewUnlocker(
	queue task.TaskQueueWriter,
	decrypter task.Decrypter,
	parser task.ContentParser,
	timeout time.Duration,
	log *slog.Logger,
) (*Unlocker, error) {
	if queue == nil || decrypter == nil || parser == nil {
		return nil, fmt.Errorf("new unlocker: %w", ErrNilDependency)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Unlocker{
		queue:     queue,
		decrypter: decrypter,
		parser:    parser,
		timeout:   timeout,
		logger:    log.With(slog.String("component", "unlocker")),
	}, nil
}

// Submit enqueues an unlock and returns the task whose Result channel will
// receive the outcome.
func (u *Unlocker) Submit(blob []byte, password string) (*task.UnlockTask, error) {
	attempt := u.latest.Add(1)
	t := task.NewUnlockTask(attempt, blob, password, u.decrypter, u.parser)

	if err := u.queue.Enqueue(t); err != nil {
		return nil, fmt.Errorf("enqueue unlock: %w", err)
	}
	return t, nil
}

// Latest returns the most recently assigned attempt number.
func (u *Unlocker) Latest() uint64 {
	return u.latest.Load()
}

// Superseded reports whether attempt has been overtaken by a newer submission.
func (u *Unlocker) Superseded(attempt uint64) bool {
	return attempt < u.latest.Load()
}

// Unlock submits an unlock and waits for it. The wait is bounded by ctx and
// the configured timeout; key derivation itself runs to completion on the
// worker even if the caller gives up.
func (u *Unlocker) Unlock(ctx context.Context, blob []byte, password string) (UnlockResult, error) {
	log := logger.FromContextOrDefault(ctx, u.logger)

	t, err := u.Submit(blob, password)
	if err != nil {
		log.Error("failed to submit unlock", slog.String("error", err.Error()))
		return UnlockResult{}, err
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	select {
	case res := <-t.Result():
		if res.Err != nil {
			log.Debug("unlock failed",
				slog.Uint64("attempt", res.Attempt),
				slog.String("kind", domain.Kind(res.Err)))
			return UnlockResult{Attempt: res.Attempt}, res.Err
		}

		out := UnlockResult{
			Attempt:    res.Attempt,
			Package:    res.Package,
			Superseded: u.Superseded(res.Attempt),
		}
		log.Debug("unlock completed",
			slog.Uint64("attempt", res.Attempt),
			slog.Int("card_count", res.Package.Len()),
			slog.Bool("superseded", out.Superseded))
		return out, nil
	case <-ctx.Done():
		log.Warn("gave up waiting for unlock",
			slog.Uint64("attempt", t.Attempt()),
			slog.String("error", ctx.Err().Error()))
		return UnlockResult{Attempt: t.Attempt()}, fmt.Errorf("wait for unlock: %w", ctx.Err())
	}
}
