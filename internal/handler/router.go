package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/ragdesk/backend/internal/handler/admin"
	"github.com/zhouzirui/ragdesk/backend/internal/handler/chat"
	"github.com/zhouzirui/ragdesk/backend/internal/handler/events"
	middlewarePkg "github.com/zhouzirui/ragdesk/backend/internal/middleware"
	"github.com/zhouzirui/ragdesk/backend/internal/pkg/logger"
	adminService "github.com/zhouzirui/ragdesk/backend/internal/service/admin"
	chatService "github.com/zhouzirui/ragdesk/backend/internal/service/chat"
	eventService "github.com/zhouzirui/ragdesk/backend/internal/service/events"
)

// Services bundles what the router serves.
type Services struct {
	Directory    *chatService.Directory
	Conversation *chatService.Conversation
	Admin        *adminService.Service
	Hub          *eventService.Hub
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services, allowedOrigins []string, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	chatHandler := chat.New(svc.Directory, svc.Conversation)
	adminHandler := admin.New(svc.Admin)
	eventsHandler := events.New(svc.Hub, allowedOrigins, log)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		adminHandler.RegisterRoutes(api)
		eventsHandler.RegisterRoutes(api)
	})

	return r
}
