package leads

import (
	"context"
	"sync"
	"time"
)

// Repository defines the interface for wizard session storage
type Repository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) (*Session, error)
	Sweep(ctx context.Context, idleSince time.Time) []*Session
	Count() int
}

// InMemoryRepository keeps sessions in process memory. Answers are never
// persisted, so losing them on restart is expected.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create stores a new session
func (r *InMemoryRepository) Create(ctx context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return ErrSessionExists
	}
	now := r.now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastSeen = now
	r.sessions[session.ID] = session
	return nil
}

// Get retrieves a session by ID and marks it as seen
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.LastSeen = r.now().UTC()
	return session, nil
}

// Delete removes a session and returns it so the caller can close it
func (r *InMemoryRepository) Delete(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(r.sessions, id)
	return session, nil
}

// Sweep removes every session not seen since idleSince and returns them.
func (r *InMemoryRepository) Sweep(ctx context.Context, idleSince time.Time) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for id, session := range r.sessions {
		if session.LastSeen.Before(idleSince) {
			removed = append(removed, session)
			delete(r.sessions, id)
		}
	}
	return removed
}

// Count returns the number of live sessions
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
