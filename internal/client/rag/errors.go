package rag

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx reply from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return e.Message
}

// newAPIError prefers the backend's "detail" field. Validation failures
// carry a list there, which is kept as its JSON text.
func newAPIError(status int, body []byte) *APIError {
	text := strings.TrimSpace(string(body))
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			text = s
		} else {
			text = string(payload.Detail)
		}
	}
	return &APIError{StatusCode: status, Message: text}
}
