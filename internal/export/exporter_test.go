package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

func sampleSession() chat.Session {
	return chat.Session{
		ID:        "s1",
		Title:     "Pricing",
		CreatedAt: 1700000000000,
		UpdatedAt: 1700000005000,
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "what is **the** price?", Timestamp: 1700000001000},
			{Role: chat.RoleAssistant, Content: "```\n**raw**\n```", Sources: []string{"prices.xlsx#chunk2"}, Timestamp: 1700000005000},
		},
	}
}

func TestNewExporter(t *testing.T) {
	for format, ext := range map[string]string{"json": "json", "": "json", "YAML": "yaml", "yml": "yaml", "md": "md", "markdown": "md"} {
		e, err := NewExporter(format)
		require.NoError(t, err, format)
		assert.Equal(t, ext, e.Extension(), format)
	}

	_, err := NewExporter("pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported: json, yaml, md")
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONExporter{}.Export(sampleSession(), &buf))

	var got chat.Session
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleSession(), got)
	assert.Contains(t, buf.String(), "\n  \"id\": \"s1\"")
}

func TestYAMLExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, YAMLExporter{}.Export(sampleSession(), &buf))

	var got chat.Session
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleSession(), got)
	assert.Contains(t, buf.String(), "createdAt: 1700000000000")
}

func TestMarkdownExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarkdownExporter{}.Export(sampleSession(), &buf))
	out := buf.String()

	assert.Contains(t, out, "# Pricing\n")
	assert.Contains(t, out, "**Messages:** 2")
	assert.Contains(t, out, `what is \*\*the\*\* price?`)
	assert.Contains(t, out, "```\n**raw**\n```")
	assert.Contains(t, out, "- `prices.xlsx#chunk2`")
	assert.Contains(t, out, "(2023-11-14T22:13:21Z)")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "chat-s1.md", Filename(sampleSession(), MarkdownExporter{}))
}
