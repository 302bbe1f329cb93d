package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/events"
	"github.com/phrazzld/scry-vault/internal/platform/logger"
	"github.com/phrazzld/scry-vault/internal/session"
)

// ErrTooManySessions indicates the registry is at capacity.
// API layer should map this to HTTP 503 Service Unavailable.
var ErrTooManySessions = errors.New("too many active study sessions")

// DefaultMaxSessions bounds the registry when no limit is configured.
const DefaultMaxSessions = 1000

// DefaultIdleTimeout is how long a session may go untouched before it is
// evicted.
const DefaultIdleTimeout = 30 * time.Minute

// PackageUnlocker decrypts and parses a container.
type PackageUnlocker interface {
	Unlock(ctx context.Context, blob []byte, password string) (UnlockResult, error)
}

// StudyService runs quiz sessions over the unlocked container.
type StudyService interface {
	// Start unlocks the container with password and opens a session on its
	// first card. Authentication and format failures are returned wrapped so
	// callers can check domain.ErrAuthentication and domain.ErrFormat.
	Start(ctx context.Context, password string) (uuid.UUID, session.View, error)

	// View returns the current card of a session.
	View(ctx context.Context, id uuid.UUID) (session.View, error)

	// Answer submits the option at display position and reveals the result.
	Answer(ctx context.Context, id uuid.UUID, position int) (session.Outcome, session.View, error)

	// Next advances past a revealed card.
	Next(ctx context.Context, id uuid.UUID) (session.View, error)

	// Previous steps back one card without changing the score.
	Previous(ctx context.Context, id uuid.UUID) (session.View, error)

	// Restart reshuffles the original cards and zeroes the score.
	Restart(ctx context.Context, id uuid.UUID) (session.View, error)

	// Shuffle reorders the deck and returns to its first card, keeping the score.
	Shuffle(ctx context.Context, id uuid.UUID) (session.View, error)

	// State returns a full snapshot of a session.
	State(ctx context.Context, id uuid.UUID) (session.State, error)

	// End discards a session.
	End(ctx context.Context, id uuid.UUID) error
}

// StudyOption configures the study service.
type StudyOption func(*studyServiceImpl)

// WithSeed makes every new session shuffle from seed. Zero draws a random
// seed per session.
func WithSeed(seed int64) StudyOption {
	return func(s *studyServiceImpl) {
		s.seed = seed
	}
}

// WithEventEmitter publishes engine transitions to emitter.
func WithEventEmitter(emitter events.EventEmitter) StudyOption {
	return func(s *studyServiceImpl) {
		s.emitter = emitter
	}
}

// WithMaxSessions caps the number of live sessions.
func WithMaxSessions(n int) StudyOption {
	return func(s *studyServiceImpl) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithIdleTimeout evicts sessions that see no calls for d.
func WithIdleTimeout(d time.Duration) StudyOption {
	return func(s *studyServiceImpl) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

func withClock(now func() time.Time) StudyOption {
	return func(s *studyServiceImpl) {
		s.now = now
	}
}

type studySession struct {
	mu       sync.Mutex
	engine   *session.Engine
	// lastUsed is unix nanoseconds; read without mu by the eviction sweep
	lastUsed atomic.Int64
}

func (ss *studySession) touch(now time.Time) {
	ss.lastUsed.Store(now.UnixNano())
}

func (ss *studySession) idleSince(cutoff time.Time) bool {
	return ss.lastUsed.Load() < cutoff.UnixNano()
}

// studyServiceImpl implements the StudyService interface
type studyServiceImpl struct {
	source      ContainerSource
	unlocker    PackageUnlocker
	emitter     events.EventEmitter
	seed        int64
	maxSessions int
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*studySession
}

// NewStudyService creates a new StudyService.
// It returns an error if any of the required dependencies are nil.
func NewStudyService(
	source ContainerSource,
	unlocker PackageUnlocker,
	log *slog.Logger,
	opts ...StudyOption,
) (StudyService, error) {
	if source == nil {
		return nil, fmt.Errorf("source: %w", ErrNilDependency)
	}
	if unlocker == nil {
		return nil, fmt.Errorf("unlocker: %w", ErrNilDependency)
	}
	if log == nil {
		log = slog.Default()
	}

	s := &studyServiceImpl{
		source:      source,
		unlocker:    unlocker,
		maxSessions: DefaultMaxSessions,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		logger:      log.With(slog.String("component", "study_service")),
		sessions:    make(map[uuid.UUID]*studySession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start implements StudyService.Start
func (s *studyServiceImpl) Start(ctx context.Context, password string) (uuid.UUID, session.View, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.evictIdle(log)
	if s.full() {
		return uuid.Nil, session.View{}, NewServiceError("start_session", "registry full", ErrTooManySessions)
	}

	blob, err := s.source.Load(ctx)
	if err != nil {
		log.Error("failed to load container", slog.String("error", err.Error()))
		return uuid.Nil, session.View{}, NewServiceError("start_session", "failed to read container", err)
	}

	res, err := s.unlocker.Unlock(ctx, blob, password)
	if err != nil {
		// The kind stays in the logs; callers show one generic message
		log.Warn("failed to unlock container",
			slog.String("kind", domain.Kind(err)),
			slog.Uint64("attempt", res.Attempt))
		return uuid.Nil, session.View{}, NewServiceError("start_session", "failed to unlock container", err)
	}

	// The unlocker is shared by every client of the service, so
	// res.Superseded says nothing about this caller and is ignored.
	rng, err := session.NewRand(s.seed)
	if err != nil {
		return uuid.Nil, session.View{}, NewServiceError("start_session", "failed to seed shuffler", err)
	}

	id := uuid.New()
	engine, err := session.NewEngine(res.Package,
		session.WithSessionID(id),
		session.WithRand(rng),
		session.WithEmitter(s.emitter),
		session.WithLogger(s.logger))
	if err != nil {
		return uuid.Nil, session.View{}, NewServiceError("start_session", "failed to create engine", err)
	}

	engine.Initialize()
	if err := engine.PresentCurrent(); err != nil {
		return uuid.Nil, session.View{}, NewServiceError("start_session", "failed to present first card", err)
	}

	view, err := engine.View()
	if err != nil {
		return uuid.Nil, session.View{}, NewServiceError("start_session", "failed to render first card", err)
	}

	s.mu.Lock()
	if len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return uuid.Nil, session.View{}, NewServiceError("start_session", "registry full", ErrTooManySessions)
	}
	sess := &studySession{engine: engine}
	sess.touch(s.now())
	s.sessions[id] = sess
	active := len(s.sessions)
	s.mu.Unlock()

	log.Info("study session started",
		slog.String("session_id", id.String()),
		slog.Int("card_count", res.Package.Len()),
		slog.Int("active_sessions", active))
	return id, view, nil
}

// View implements StudyService.View
func (s *studyServiceImpl) View(ctx context.Context, id uuid.UUID) (session.View, error) {
	return s.apply(ctx, id, "view", nil)
}

// Answer implements StudyService.Answer
func (s *studyServiceImpl) Answer(
	ctx context.Context,
	id uuid.UUID,
	position int,
) (session.Outcome, session.View, error) {
	var outcome session.Outcome
	view, err := s.apply(ctx, id, "answer", func(e *session.Engine) error {
		var err error
		outcome, err = e.SubmitShuffled(position)
		return err
	})
	if err != nil {
		return session.Outcome{}, session.View{}, err
	}
	return outcome, view, nil
}

// Next implements StudyService.Next
func (s *studyServiceImpl) Next(ctx context.Context, id uuid.UUID) (session.View, error) {
	return s.apply(ctx, id, "next", (*session.Engine).Advance)
}

// Previous implements StudyService.Previous
func (s *studyServiceImpl) Previous(ctx context.Context, id uuid.UUID) (session.View, error) {
	return s.apply(ctx, id, "previous", (*session.Engine).Retreat)
}

// Restart implements StudyService.Restart
func (s *studyServiceImpl) Restart(ctx context.Context, id uuid.UUID) (session.View, error) {
	return s.apply(ctx, id, "restart", func(e *session.Engine) error {
		e.Restart()
		return e.PresentCurrent()
	})
}

// Shuffle implements StudyService.Shuffle
func (s *studyServiceImpl) Shuffle(ctx context.Context, id uuid.UUID) (session.View, error) {
	return s.apply(ctx, id, "shuffle", (*session.Engine).ReshuffleDeck)
}

// State implements StudyService.State
func (s *studyServiceImpl) State(ctx context.Context, id uuid.UUID) (session.State, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.State{}, NewServiceError("state", "lookup failed", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(s.now())
	return sess.engine.State(), nil
}

// End implements StudyService.End
func (s *studyServiceImpl) End(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return NewServiceError("end", "lookup failed", ErrSessionNotFound)
	}

	log.Info("study session ended", slog.String("session_id", id.String()))
	return nil
}

// apply runs fn against the session's engine under its lock and returns the
// resulting view. A nil fn only renders.
func (s *studyServiceImpl) apply(
	ctx context.Context,
	id uuid.UUID,
	op string,
	fn func(*session.Engine) error,
) (session.View, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sess, err := s.lookup(id)
	if err != nil {
		log.Debug("session lookup failed",
			slog.String("operation", op),
			slog.String("session_id", id.String()))
		return session.View{}, NewServiceError(op, "lookup failed", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(s.now())

	if fn != nil {
		if err := fn(sess.engine); err != nil {
			log.Debug("session operation rejected",
				slog.String("operation", op),
				slog.String("session_id", id.String()),
				slog.String("error", err.Error()))
			return session.View{}, NewServiceError(op, "operation rejected", err)
		}
	}

	view, err := sess.engine.View()
	if err != nil {
		return session.View{}, NewServiceError(op, "failed to render view", err)
	}
	return view, nil
}

// lookup returns a live session. An expired one is dropped and reported as
// not found even if no sweep has run yet.
func (s *studyServiceImpl) lookup(id uuid.UUID) (*studySession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	if sess.idleSince(s.now().Add(-s.idleTimeout)) {
		s.mu.Lock()
		if s.sessions[id] == sess {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// evictIdle drops every session untouched for longer than the idle timeout.
func (s *studyServiceImpl) evictIdle(log *slog.Logger) {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()

	if evicted > 0 {
		log.Info("idle study sessions evicted",
			slog.Int("evicted", evicted),
			slog.Int("active_sessions", active))
	}
}

func (s *studyServiceImpl) full() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions) >= s.maxSessions
}
