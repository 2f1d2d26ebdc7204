// Package export renders a chat session as a downloadable document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

// Exporter writes one session in a single format.
type Exporter interface {
	Export(session chat.Session, w io.Writer) error
	Extension() string
	ContentType() string
}

// NewExporter creates an exporter for format.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return JSONExporter{}, nil
	case "yaml", "yml":
		return YAMLExporter{}, nil
	case "md", "markdown":
		return MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, md)", format)
	}
}

// JSONExporter writes the session as indented JSON.
type JSONExporter struct{}

func (JSONExporter) Export(session chat.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

func (JSONExporter) Extension() string   { return "json" }
func (JSONExporter) ContentType() string { return "application/json" }

// Filename suggests a download name for session.
func Filename(session chat.Session, e Exporter) string {
	return "chat-" + session.ID + "." + e.Extension()
}
