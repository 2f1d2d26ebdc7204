package chat

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ragdesk/backend/internal/export"
	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
	chatService "github.com/zhouzirui/ragdesk/backend/internal/service/chat"
	"github.com/zhouzirui/ragdesk/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	directory    *chatService.Directory
	conversation *chatService.Conversation
}

// New 创建聊天处理器
func New(directory *chatService.Directory, conversation *chatService.Conversation) *Handler {
	return &Handler{directory: directory, conversation: conversation}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Delete("/", h.handleClear)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleRename)
			r.Delete("/", h.handleDelete)
			r.Put("/active", h.handleSelect)
			r.Get("/messages", h.handleTranscript)
			r.Post("/messages", h.handleSend)
			r.Get("/export", h.handleExport)
		})
	})
}

type listResponse struct {
	Sessions []chat.Summary `json:"sessions"`
	ActiveID string         `json:"activeId"`
}

// handleList 列出会话
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, active, err := h.directory.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	summaries := make([]chat.Summary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summarize())
	}
	utils.RespondJSON(w, http.StatusOK, listResponse{Sessions: summaries, ActiveID: active})
}

// handleCreate 创建会话并设为当前会话
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title" validate:"max=200"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.directory.Create(r.Context(), payload.Title)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleClear 清空所有会话
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.Clear(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.directory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleRename 重命名会话
func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title" validate:"required,max=200"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.directory.Rename(r.Context(), chi.URLParam(r, "id"), payload.Title)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleDelete 删除会话，返回新的当前会话
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	active, err := h.directory.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"activeId": active})
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	session, err := h.directory.Select(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.conversation.Transcript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// handleSend 提问并返回本轮问答；后端失败以 failed=true 返回，不是HTTP错误
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question string `json:"question" validate:"required"`
		Filename string `json:"filename"`
		UseWeb   bool   `json:"useWeb"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	exchange, err := h.conversation.Send(r.Context(), chi.URLParam(r, "id"), payload.Question, chatService.SendOptions{
		Filename: payload.Filename,
		UseWeb:   payload.UseWeb,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, exchange)
}

// handleExport 以 json/yaml/md 导出会话
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	exporter, err := export.NewExporter(r.URL.Query().Get("format"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := h.directory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(session, &buf); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(session, exporter)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrEmptyQuestion):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrRequestInFlight):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
