package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
	"github.com/zhouzirui/ragdesk/backend/internal/pkg/logger"
	"github.com/zhouzirui/ragdesk/backend/internal/service/events"
)

var (
	ErrEmptyQuestion   = errors.New("question is required")
	ErrRequestInFlight = errors.New("a request is already in flight for this session")
)

// autoTitleRunes bounds the title derived from a session's first question.
const autoTitleRunes = 48

// Backend answers questions.
type Backend interface {
	Chat(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error)
}

// SendOptions scope a single question.
type SendOptions struct {
	Filename string
	UseWeb   bool
}

// Exchange is the user message and the reply it produced. Failed marks a
// reply synthesized from a backend or transport error.
type Exchange struct {
	SessionID string       `json:"sessionId"`
	User      chat.Message `json:"user"`
	Assistant chat.Message `json:"assistant"`
	Failed    bool         `json:"failed"`
	Title     string       `json:"title,omitempty"`
}

// Conversation sends questions for a session and records both sides.
type Conversation struct {
	store   chat.Store
	backend Backend
	topK    int
	events  events.Publisher
	logger  logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewConversation(store chat.Store, backend Backend, topK int, pub events.Publisher, log logger.Logger) *Conversation {
	if topK < 1 {
		topK = 5
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Conversation{
		store:    store,
		backend:  backend,
		topK:     topK,
		events:   pub,
		logger:   log,
		inFlight: make(map[string]struct{}),
	}
}

// Transcript returns the session's messages in order.
func (c *Conversation) Transcript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	session, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

// Busy reports whether a question for sessionID is outstanding.
func (c *Conversation) Busy(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[sessionID]
	return ok
}

// Send asks question in sessionID. Backend failures do not return an error;
// they produce a synthetic assistant reply and Exchange.Failed.
func (c *Conversation) Send(ctx context.Context, sessionID, question string, opts SendOptions) (Exchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Exchange{}, ErrEmptyQuestion
	}
	session, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return Exchange{}, err
	}
	if !c.acquire(sessionID) {
		return Exchange{}, ErrRequestInFlight
	}
	defer c.release(sessionID)

	exchange := Exchange{SessionID: sessionID}

	user := chat.Message{Role: chat.RoleUser, Content: question}
	c.events.Publish(events.New(events.MessagePending, sessionID, user))
	exchange.User = c.persist(ctx, sessionID, user)

	if session.Title == chat.DefaultTitle && len(session.Messages) == 0 {
		exchange.Title = c.autoTitle(ctx, sessionID, question)
	}

	req := rag.ChatRequest{Question: question, K: c.topK, UseWeb: opts.UseWeb}
	if opts.Filename != "" {
		filename := opts.Filename
		req.Filename = &filename
	}

	assistant := chat.Message{Role: chat.RoleAssistant}
	resp, err := c.backend.Chat(ctx, req)
	if err != nil {
		c.logger.Warn("Conversation", "Backend chat failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		assistant.Content = "Error: " + err.Error()
		exchange.Failed = true
	} else {
		assistant.Content = resp.Answer
		assistant.Sources = resp.Sources
	}

	exchange.Assistant = c.persist(ctx, sessionID, assistant)
	c.events.Publish(events.New(events.MessageAdded, sessionID, exchange))
	return exchange, nil
}

// persist stores msg and returns the stored copy. A store failure is logged
// and the unstamped message is returned so the exchange still renders.
func (c *Conversation) persist(ctx context.Context, sessionID string, msg chat.Message) chat.Message {
	stored, err := c.store.AppendMessage(ctx, sessionID, msg)
	if err != nil {
		c.logger.Error("Conversation", "Failed to persist message", map[string]interface{}{
			"session_id": sessionID,
			"role":       string(msg.Role),
			"error":      err,
		})
		return msg
	}
	return stored
}

func (c *Conversation) autoTitle(ctx context.Context, sessionID, question string) string {
	title := TitleFromQuestion(question)
	session, err := c.store.Rename(ctx, sessionID, title)
	if err != nil {
		c.logger.Warn("Conversation", "Failed to retitle session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return ""
	}
	c.events.Publish(events.New(events.SessionRenamed, sessionID, session.Summarize()))
	return title
}

// TitleFromQuestion collapses whitespace and keeps the first 48 runes.
func TitleFromQuestion(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	runes := []rune(title)
	if len(runes) > autoTitleRunes {
		return strings.TrimSpace(string(runes[:autoTitleRunes]))
	}
	return title
}

func (c *Conversation) acquire(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[sessionID]; busy {
		return false
	}
	c.inFlight[sessionID] = struct{}{}
	return true
}

func (c *Conversation) release(sessionID string) {
	c.mu.Lock()
	delete(c.inFlight, sessionID)
	c.mu.Unlock()
}
