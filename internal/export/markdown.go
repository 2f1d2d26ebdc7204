package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
)

// MarkdownExporter writes a readable transcript with source labels.
type MarkdownExporter struct{}

func (MarkdownExporter) Export(session chat.Session, w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n\n", session.Title)
	fmt.Fprintf(bw, "**Session:** %s  \n", session.ID)
	fmt.Fprintf(bw, "**Created:** %s  \n", formatMillis(session.CreatedAt))
	fmt.Fprintf(bw, "**Updated:** %s  \n", formatMillis(session.UpdatedAt))
	fmt.Fprintf(bw, "**Messages:** %d\n\n", len(session.Messages))

	for i, msg := range session.Messages {
		fmt.Fprintf(bw, "---\n\n**%s**", roleLabel(msg.Role))
		if msg.Timestamp > 0 {
			fmt.Fprintf(bw, " (%s)", formatMillis(msg.Timestamp))
		}
		fmt.Fprintf(bw, "\n\n%s\n", escapeMarkdown(msg.Content))
		if len(msg.Sources) > 0 {
			fmt.Fprintf(bw, "\nSources:\n")
			for _, src := range msg.Sources {
				fmt.Fprintf(bw, "- `%s`\n", src)
			}
		}
		if i < len(session.Messages)-1 {
			fmt.Fprintln(bw)
		}
	}
	return bw.Flush()
}

func (MarkdownExporter) Extension() string   { return "md" }
func (MarkdownExporter) ContentType() string { return "text/markdown; charset=utf-8" }

func roleLabel(r chat.Role) string {
	if r == chat.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// escapeMarkdown leaves fenced code untouched and escapes emphasis markers
// elsewhere.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCode := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		line = strings.ReplaceAll(line, "**", `\*\*`)
		lines[i] = strings.ReplaceAll(line, "__", `\_\_`)
	}
	return strings.Join(lines, "\n")
}
