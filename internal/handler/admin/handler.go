package admin

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
	adminService "github.com/zhouzirui/ragdesk/backend/internal/service/admin"
	"github.com/zhouzirui/ragdesk/backend/pkg/utils"
)

// maxUploadBytes bounds one multipart ingest request.
const maxUploadBytes = 64 << 20

// Handler 管理台的HTTP处理器
type Handler struct {
	svc *adminService.Service
}

// New 创建管理台处理器
func New(svc *adminService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册管理相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Route("/admin", func(r chi.Router) {
		r.Post("/ingest", h.handleIngest)
		r.Get("/files", h.handleFiles)
		r.Delete("/files", h.handleDeleteFile)
		r.Get("/history", h.handleHistory)
		r.Post("/history/clear", h.handleClearHistory)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.svc.Health(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, health)
}

// handleIngest 转发 multipart "files" 字段中的文件
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "files are required")
		return
	}

	uploads := make([]rag.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "cannot read "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "cannot read "+fh.Filename)
			return
		}
		uploads = append(uploads, rag.Upload{Name: filepath.Base(fh.Filename), Data: data})
	}

	result, err := h.svc.Ingest(r.Context(), uploads)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Files(r.Context())
	if err != nil {
		respondBackendError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	result, err := h.svc.DeleteFile(r.Context(), filename)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

// handleHistory limit 缺省或非法时使用默认值
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.svc.History(r.Context(), limit)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		respondBackendError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// respondBackendError 后端错误原样透出给状态栏
func respondBackendError(w http.ResponseWriter, err error) {
	if errors.Is(err, adminService.ErrFilenameRequired) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondError(w, http.StatusBadGateway, err.Error())
}
