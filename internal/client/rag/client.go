// Package rag talks to the retrieval-augmented answer backend over HTTP.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zhouzirui/ragdesk/backend/internal/model/admin"
)

// AdminTokenHeader carries the admin token on management calls.
const AdminTokenHeader = "X-Admin-Token"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Question string  `json:"question"`
	K        int     `json:"k"`
	Filename *string `json:"filename"`
	UseWeb   bool    `json:"use_web"`
}

// ChatResponse is the answer with the chunk ids it was grounded on.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Upload is one file forwarded to /ingest.
type Upload struct {
	Name string
	Data []byte
}

// Client is safe for concurrent use. No timeout is set beyond what the
// caller's context imposes.
type Client struct {
	baseURL    string
	adminToken string
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAdminToken sets the token sent on admin calls.
func WithAdminToken(token string) Option {
	return func(c *Client) { c.adminToken = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Chat asks one question. A nil Sources in the reply is returned as empty.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("encode chat request: %w", err)
	}
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", nil, "application/json", bytes.NewReader(body), false, &resp); err != nil {
		return ChatResponse{}, err
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	return resp, nil
}

// Ingest uploads files in one multipart request under the "files" field.
func (c *Client) Ingest(ctx context.Context, uploads []Upload) (admin.IngestResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, u := range uploads {
		part, err := mw.CreateFormFile("files", u.Name)
		if err != nil {
			return admin.IngestResult{}, fmt.Errorf("encode upload %s: %w", u.Name, err)
		}
		if _, err := part.Write(u.Data); err != nil {
			return admin.IngestResult{}, fmt.Errorf("encode upload %s: %w", u.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return admin.IngestResult{}, fmt.Errorf("encode uploads: %w", err)
	}

	var result admin.IngestResult
	if err := c.do(ctx, http.MethodPost, "/ingest", nil, mw.FormDataContentType(), &buf, true, &result); err != nil {
		return admin.IngestResult{}, err
	}
	if result.Errors == nil {
		result.Errors = []admin.IngestError{}
	}
	return result, nil
}

type filesResponse struct {
	Files []string `json:"files"`
	Error string   `json:"error"`
}

// Files lists the ingested filenames. The backend reports listing failures
// inside a 200 body; those surface as an *APIError too.
func (c *Client) Files(ctx context.Context) ([]string, error) {
	var resp filesResponse
	if err := c.do(ctx, http.MethodGet, "/files", nil, "", nil, false, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	if resp.Files == nil {
		resp.Files = []string{}
	}
	return resp.Files, nil
}

// DeleteResult echoes which filename had its chunks removed.
type DeleteResult struct {
	OK         bool   `json:"ok"`
	DeletedFor string `json:"deleted_for"`
}

func (c *Client) DeleteFile(ctx context.Context, filename string) (DeleteResult, error) {
	q := url.Values{"filename": {filename}}
	var resp DeleteResult
	if err := c.do(ctx, http.MethodDelete, "/admin/files", q, "", nil, true, &resp); err != nil {
		return DeleteResult{}, err
	}
	return resp, nil
}

type historyResponse struct {
	Items []admin.HistoryItem `json:"items"`
}

// History returns logged exchanges, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]admin.HistoryItem, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, "/admin/history", q, "", nil, true, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []admin.HistoryItem{}
	}
	return resp.Items, nil
}

func (c *Client) ClearHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/admin/history/clear", nil, "", nil, true, nil)
}

func (c *Client) Health(ctx context.Context) (admin.Health, error) {
	var h admin.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, "", nil, false, &h); err != nil {
		return admin.Health{}, err
	}
	return h, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, adminCall bool, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if adminCall && c.adminToken != "" {
		req.Header.Set(AdminTokenHeader, c.adminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
