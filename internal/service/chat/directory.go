package chat

import (
	"context"
	"sync"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
	"github.com/zhouzirui/ragdesk/backend/internal/pkg/logger"
	"github.com/zhouzirui/ragdesk/backend/internal/service/events"
)

// ErrSessionNotFound is returned for ids the store does not know.
var ErrSessionNotFound = chat.ErrSessionNotFound

// Directory lists sessions and tracks which one is active.
type Directory struct {
	mu       sync.Mutex
	store    chat.Store
	activeID string
	events   events.Publisher
	logger   logger.Logger
}

// NewDirectory wraps store. Nil events or log disable publishing and logging.
func NewDirectory(store chat.Store, pub events.Publisher, log logger.Logger) *Directory {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Directory{store: store, events: pub, logger: log}
}

// List returns the sessions, most recently updated first, with the active id.
// An active id that no longer exists falls back to the first session.
func (d *Directory) List(ctx context.Context) ([]chat.Session, string, error) {
	sessions, err := d.store.List(ctx)
	if err != nil {
		return nil, "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !containsID(sessions, d.activeID) {
		d.activeID = firstID(sessions)
	}
	return sessions, d.activeID, nil
}

// Active returns the active session id, which may be empty.
func (d *Directory) Active() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeID
}

// Select makes id the active session.
func (d *Directory) Select(ctx context.Context, id string) (chat.Session, error) {
	session, err := d.store.Get(ctx, id)
	if err != nil {
		return chat.Session{}, err
	}
	d.setActive(id)
	d.events.Publish(events.New(events.SessionSelected, id, nil))
	return session, nil
}

// Create adds a session titled title, or the default title, and selects it.
func (d *Directory) Create(ctx context.Context, title string) (chat.Session, error) {
	if title == "" {
		title = chat.DefaultTitle
	}
	session, err := d.store.Create(ctx, title)
	if err != nil {
		return chat.Session{}, err
	}
	d.setActive(session.ID)
	d.logger.Info("Directory", "Session created", map[string]interface{}{"session_id": session.ID})
	d.events.Publish(events.New(events.SessionCreated, session.ID, session.Summarize()))
	return session, nil
}

// Delete removes id. When id was active, the first remaining session becomes
// active, or none. It returns the resulting active id.
func (d *Directory) Delete(ctx context.Context, id string) (string, error) {
	if err := d.store.Delete(ctx, id); err != nil {
		return "", err
	}
	remaining, err := d.store.List(ctx)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	if d.activeID == id || !containsID(remaining, d.activeID) {
		d.activeID = firstID(remaining)
	}
	active := d.activeID
	d.mu.Unlock()

	d.logger.Info("Directory", "Session deleted", map[string]interface{}{"session_id": id, "active_id": active})
	d.events.Publish(events.New(events.SessionDeleted, id, map[string]string{"activeId": active}))
	return active, nil
}

// Rename retitles id.
func (d *Directory) Rename(ctx context.Context, id, title string) (chat.Session, error) {
	session, err := d.store.Rename(ctx, id, title)
	if err != nil {
		return chat.Session{}, err
	}
	d.events.Publish(events.New(events.SessionRenamed, id, session.Summarize()))
	return session, nil
}

// Clear removes every session.
func (d *Directory) Clear(ctx context.Context) error {
	if err := d.store.Clear(ctx); err != nil {
		return err
	}
	d.setActive("")
	d.logger.Info("Directory", "Sessions cleared", nil)
	d.events.Publish(events.New(events.SessionsCleared, "", nil))
	return nil
}

// Get returns a single session.
func (d *Directory) Get(ctx context.Context, id string) (chat.Session, error) {
	return d.store.Get(ctx, id)
}

func (d *Directory) setActive(id string) {
	d.mu.Lock()
	d.activeID = id
	d.mu.Unlock()
}

func containsID(sessions []chat.Session, id string) bool {
	if id == "" {
		return false
	}
	for _, s := range sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}

func firstID(sessions []chat.Session) string {
	if len(sessions) == 0 {
		return ""
	}
	return sessions[0].ID
}
