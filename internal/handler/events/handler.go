package events

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/ragdesk/backend/internal/pkg/logger"
	eventService "github.com/zhouzirui/ragdesk/backend/internal/service/events"
)

// Handler 将事件推送给前端的WebSocket处理器
type Handler struct {
	hub      *eventService.Hub
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// New 创建事件处理器。allowedOrigins 为空或包含 "*" 时不校验来源。
func New(hub *eventService.Hub, allowedOrigins []string, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		hub:    hub,
		logger: log,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册事件流路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Events", "Websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	eventService.NewClient(h.hub, conn).Serve()
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
