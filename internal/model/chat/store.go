package chat

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when a session identifier matches nothing.
var ErrSessionNotFound = errors.New("session not found")

// Store is the persistence capability shared by the local blob store and the
// remote chats/messages tables, so the directory and conversation logic does
// not care which one backs it.
type Store interface {
	// List returns sessions ordered by UpdatedAt descending.
	List(ctx context.Context) ([]Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Create(ctx context.Context, title string) (Session, error)
	// Delete removes a session; deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, title string) (Session, error)
	// AppendMessage stamps and stores msg, returning the stored copy.
	AppendMessage(ctx context.Context, id string, msg Message) (Message, error)
	// Clear removes every session.
	Clear(ctx context.Context) error
}
