package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

// YAMLExporter writes the session as YAML.
type YAMLExporter struct{}

func (YAMLExporter) Export(session chat.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(session); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (YAMLExporter) Extension() string   { return "yaml" }
func (YAMLExporter) ContentType() string { return "application/yaml" }
