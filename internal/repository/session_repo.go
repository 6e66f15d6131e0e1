package repository

import (
	"sync"
	"time"

	"deploytracker/internal/models"
)

// SessionRepository keeps sessions and the state attached to each one in
// memory. Nothing survives a restart.
type SessionRepository[T any] struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry[T]
	now      func() time.Time
}

type sessionEntry[T any] struct {
	session models.Session
	state   T
}

func NewSessionRepository[T any](now func() time.Time) *SessionRepository[T] {
	if now == nil {
		now = time.Now
	}
	return &SessionRepository[T]{
		sessions: make(map[string]*sessionEntry[T]),
		now:      now,
	}
}

// Touch returns the state for id and moves its expiry to expiresAt in one
// step, so a concurrent DeleteExpired cannot drop it in between.
func (r *SessionRepository[T]) Touch(id string, expiresAt time.Time) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	entry.session.ExpiresAt = expiresAt
	return entry.state, nil
}

// GetOrCreate returns the state for session.ID, storing state under it
// first if the session does not exist. created reports which happened.
func (r *SessionRepository[T]) GetOrCreate(session *models.Session, state T) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.sessions[session.ID]; ok {
		entry.session.ExpiresAt = session.ExpiresAt
		return entry.state, false
	}
	session.CreatedAt = r.now()
	r.sessions[session.ID] = &sessionEntry[T]{session: *session, state: state}
	return state, true
}

func (r *SessionRepository[T]) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// DeleteExpired removes sessions whose expiry is not after now and returns
// their ids.
func (r *SessionRepository[T]) DeleteExpired(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, entry := range r.sessions {
		if entry.session.Expired(now) {
			delete(r.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (r *SessionRepository[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
