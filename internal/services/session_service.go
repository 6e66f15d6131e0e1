package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deploytracker/internal/models"
	"deploytracker/internal/repository"
)

const (
	SessionCookieKey = "tracker_session"
	SessionHeaderKey = "X-Session-ID"
)

// SessionService gives every session its own Tracker, seeded the first
// time the session is seen.
type SessionService struct {
	repo     *repository.SessionRepository[*Tracker]
	seed     repository.SeedLoader
	idle     time.Duration
	now      func() time.Time
	logger   *zap.Logger
	observer Observer
}

type SessionOption func(*SessionService)

func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *SessionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithObserver(observer Observer) SessionOption {
	return func(s *SessionService) {
		if observer != nil {
			s.observer = observer
		}
	}
}

func NewSessionService(seed repository.SeedLoader, idle time.Duration, opts ...SessionOption) *SessionService {
	s := &SessionService{
		seed:     seed,
		idle:     idle,
		now:      time.Now,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seed == nil {
		s.seed = repository.StaticSeed{}
	}
	s.repo = repository.NewSessionRepository[*Tracker](s.now)
	return s
}

// NewSessionID returns a fresh random session id.
func (s *SessionService) NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like one NewSessionID made.
func (s *SessionService) ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Tracker returns the tracker for the session, creating and initializing
// it if the session is new. Each call extends the session's idle expiry.
func (s *SessionService) Tracker(ctx context.Context, id string) (*Tracker, error) {
	expiresAt := s.now().Add(s.idle)

	tracker, err := s.repo.Touch(id, expiresAt)
	if err == nil {
		return tracker, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	fresh := NewTracker(s.seed, s.now, s.observer)
	if err := fresh.Initialize(ctx); err != nil {
		return nil, err
	}

	tracker, created := s.repo.GetOrCreate(&models.Session{ID: id, ExpiresAt: expiresAt}, fresh)
	if created {
		s.logger.Debug("session started", zap.String("session_id", id))
		s.observer.SessionsActive(s.repo.Count())
	}
	return tracker, nil
}

// End drops a session and its tracker.
func (s *SessionService) End(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.observer.SessionsActive(s.repo.Count())
	return nil
}

// Sweep removes sessions idle past their expiry and returns how many were
// removed.
func (s *SessionService) Sweep(now time.Time) int {
	removed := s.repo.DeleteExpired(now)
	if len(removed) > 0 {
		s.logger.Info("expired idle sessions", zap.Int("count", len(removed)))
		s.observer.SessionsActive(s.repo.Count())
	}
	return len(removed)
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

func (s *SessionService) Count() int {
	return s.repo.Count()
}
