package admin

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
	adminService "github.com/zhouzirui/ragdesk/backend/internal/service/admin"
)

// newBackend fakes the RAG backend's admin surface.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"allow_general_chat":false,"enable_web_search":true,"has_tavily_key":false}`))
	})
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"files":["a.pdf","b.txt"]}`))
	})
	mux.HandleFunc("/ingest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(rag.AdminTokenHeader) != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid admin token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","chunks_added":4,"errors":[]}`))
	})
	mux.HandleFunc("/admin/history", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"question":"q","answer":"a","sources":[],"k":5,"use_web":false,"ts":"t","limit":"` + r.URL.Query().Get("limit") + `"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupRouter(t *testing.T, token string) *chi.Mux {
	t.Helper()
	backend := rag.New(newBackend(t).URL, rag.WithAdminToken(token))
	svc := adminService.NewService(backend, adminService.Options{FilesCacheTTL: time.Minute})

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r
}

func multipartBody(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("content of " + name))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r := setupRouter(t, "")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"enable_web_search":true`)
}

func TestIngest(t *testing.T) {
	r := setupRouter(t, "secret")
	body, contentType := multipartBody(t, "a.pdf", "b.txt")

	req := httptest.NewRequest(http.MethodPost, "/admin/ingest", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var result struct {
		ChunksAdded int `json:"chunks_added"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, 4, result.ChunksAdded)
}

func TestIngestBadTokenSurfacesDetail(t *testing.T) {
	r := setupRouter(t, "wrong")
	body, contentType := multipartBody(t, "a.pdf")

	req := httptest.NewRequest(http.MethodPost, "/admin/ingest", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.JSONEq(t, `{"error":"Invalid admin token"}`, resp.Body.String())
}

func TestIngestWithoutFiles(t *testing.T) {
	r := setupRouter(t, "secret")
	body, contentType := multipartBody(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/ingest", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestFilesAndHistory(t *testing.T) {
	r := setupRouter(t, "")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/admin/files", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"files":["a.pdf","b.txt"]}`, resp.Body.String())

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/admin/history?limit=abc", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"question":"q"`)
}

func TestDeleteFileRequiresName(t *testing.T) {
	r := setupRouter(t, "")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/admin/files?filename=", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
