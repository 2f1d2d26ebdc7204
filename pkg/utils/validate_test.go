package utils

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type titlePayload struct {
	Title string `json:"title" validate:"required,max=5"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "valid", body: `{"title":"abc"}`},
		{name: "malformed", body: `{"title":`, want: "invalid request body"},
		{name: "empty body", body: ``, want: "title is required"},
		{name: "too long", body: `{"title":"abcdefgh"}`, want: "title must be at most 5 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var p titlePayload
			err := DecodeJSON(req, &p)
			if tt.want == "" {
				require.NoError(t, err)
				assert.Equal(t, "abc", p.Title)
				return
			}
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, 418, "teapot")
	assert.Equal(t, 418, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"teapot"}`, rec.Body.String())
}
