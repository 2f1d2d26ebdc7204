package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
	adminService "github.com/zhouzirui/ragdesk/backend/internal/service/admin"
	chatService "github.com/zhouzirui/ragdesk/backend/internal/service/chat"
	eventService "github.com/zhouzirui/ragdesk/backend/internal/service/events"
	"github.com/zhouzirui/ragdesk/backend/internal/store/local"
)

func TestRouterMountsAPI(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer backend.Close()

	client := rag.New(backend.URL)
	repo := local.NewRepository(local.NewMemoryStorage())
	hub := eventService.NewHub(nil)
	router := NewRouter(Services{
		Directory:    chatService.NewDirectory(repo, hub, nil),
		Conversation: chatService.NewConversation(repo, client, 5, hub, nil),
		Admin:        adminService.NewService(client, adminService.Options{}),
		Hub:          hub,
	}, []string{"*"}, nil)

	for _, path := range []string{"/api/health", "/api/sessions"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, resp.Code, path)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/stream/x", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
