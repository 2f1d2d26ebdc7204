package chat

// StorageKey names the single persisted blob holding every local session.
const StorageKey = "ragdesk.chat.sessions.v1"

const (
	// DefaultTitle is assigned to freshly created sessions.
	DefaultTitle = "New Chat"
	// UntitledTitle replaces a missing or non-string title during read-repair.
	UntitledTitle = "Untitled"
)

// Session captures one conversation thread with its ordered messages.
// Timestamps are milliseconds since the Unix epoch.
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt int64     `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64     `json:"updatedAt" yaml:"updatedAt"`
	Messages  []Message `json:"messages" yaml:"messages"`
}

// Summary is the sidebar view of a session.
type Summary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
	MessageCount int    `json:"messageCount"`
}

// Summarize drops the message bodies.
func (s Session) Summarize() Summary {
	return Summary{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
	}
}
