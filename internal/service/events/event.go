// Package events fans session and admin changes out to connected UIs.
package events

import "time"

// Event types sent to subscribers.
const (
	SessionCreated  = "session.created"
	SessionSelected = "session.selected"
	SessionRenamed  = "session.renamed"
	SessionDeleted  = "session.deleted"
	SessionsCleared = "sessions.cleared"
	SessionsChanged = "sessions.changed"
	MessagePending  = "message.pending"
	MessageAdded    = "message.added"
	FilesChanged    = "files.changed"
	HistoryCleared  = "history.cleared"
)

// Event is the JSON frame written to every subscriber.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Publisher accepts events. Implementations must not block the caller.
type Publisher interface {
	Publish(Event)
}

// New builds an event stamped with the current time.
func New(eventType, sessionID string, data interface{}) Event {
	return Event{Type: eventType, SessionID: sessionID, Data: data, Timestamp: time.Now().UnixMilli()}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}
