package local

import (
	"context"
	"sync"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

// Repository exposes the blob store through chat.Store. Each call reloads the
// whole collection, applies one transform and writes it back. The mutex only
// serializes callers inside this process; another process writing the same
// blob still wins or loses by ordering alone.
type Repository struct {
	mu      sync.Mutex
	storage Storage
}

// NewRepository wraps st. A nil st gives a repository that never persists.
func NewRepository(st Storage) *Repository {
	return &Repository{storage: st}
}

// List returns the persisted sessions, most recently updated first.
func (r *Repository) List(_ context.Context) ([]chat.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return LoadSessions(r.storage), nil
}

func (r *Repository) Get(_ context.Context, id string) (chat.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := Find(LoadSessions(r.storage), id)
	if !ok {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	return s, nil
}

// Create prepends a new session and persists the collection.
func (r *Repository) Create(_ context.Context, title string) (chat.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := NewSession(title)
	sessions := LoadSessions(r.storage)
	next := make([]chat.Session, 0, len(sessions)+1)
	next = append(next, session)
	next = append(next, sessions...)
	if err := SaveSessions(r.storage, next); err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := LoadSessions(r.storage)
	if !Contains(sessions, id) {
		return nil
	}
	return SaveSessions(r.storage, RemoveSession(sessions, id))
}

func (r *Repository) Rename(_ context.Context, id, title string) (chat.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := LoadSessions(r.storage)
	if !Contains(sessions, id) {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	next := SetTitle(sessions, id, title)
	if err := SaveSessions(r.storage, next); err != nil {
		return chat.Session{}, err
	}
	s, _ := Find(next, id)
	return s, nil
}

// AppendMessage follows the store's policy for unknown ids: nothing is
// written and no error is reported.
func (r *Repository) AppendMessage(_ context.Context, id string, msg chat.Message) (chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := LoadSessions(r.storage)
	if !Contains(sessions, id) {
		return msg, nil
	}
	next := AddMessage(sessions, id, msg)
	if err := SaveSessions(r.storage, next); err != nil {
		return chat.Message{}, err
	}
	s, _ := Find(next, id)
	return s.Messages[len(s.Messages)-1], nil
}

func (r *Repository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ClearSessions(r.storage)
}
