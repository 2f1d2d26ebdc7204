package remote

import (
	"time"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

type chatRow struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type messageRow struct {
	Role      string
	Content   string
	Sources   []string
	CreatedAt time.Time
}

// toSession maps table rows onto the shared session shape. Rows with an
// unknown role are skipped rather than surfaced with a bogus role.
func (c chatRow) toSession(messages []messageRow) chat.Session {
	s := chat.Session{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UnixMilli(),
		UpdatedAt: c.UpdatedAt.UnixMilli(),
		Messages:  make([]chat.Message, 0, len(messages)),
	}
	if s.Title == "" {
		s.Title = chat.UntitledTitle
	}
	if s.UpdatedAt < s.CreatedAt {
		s.UpdatedAt = s.CreatedAt
	}
	for _, m := range messages {
		role := chat.Role(m.Role)
		if !role.Valid() {
			continue
		}
		s.Messages = append(s.Messages, chat.Message{
			Role:      role,
			Content:   m.Content,
			Sources:   m.Sources,
			Timestamp: m.CreatedAt.UnixMilli(),
		})
	}
	return s
}
