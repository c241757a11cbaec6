package journal

import (
	"strings"

	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/parser"
)

// Prompts used when a log entry field is left empty.
const (
	PromptWhat  = "[Describe what was done]"
	PromptWhy   = "[The reasoning behind these changes]"
	PromptWhere = "[Key files touched]"
	PromptNotes = "[Additional context]"
)

// AppendEntry adds e as the last block of the detailed log. Existing text is
// kept byte for byte; at most a missing final newline is added before the
// new block.
func AppendEntry(doc *parser.Document, e models.LogEntry) {
	log := doc.Section(parser.DetailLog)
	if log.Body != "" && !strings.HasSuffix(log.Body, "\n") {
		log.Body += withLineEnding("\n", log.Heading)
	}
	log.Body += withLineEnding(RenderEntry(e), log.Heading)
}

// RenderEntry formats one detailed log block.
func RenderEntry(e models.LogEntry) string {
	var b strings.Builder
	b.WriteString("\n### ")
	b.WriteString(e.Timestamp.Format(models.TimestampLayout))
	b.WriteString("\n")
	writeBlock(&b, "What changed", e.What, PromptWhat)
	writeBlock(&b, "Why", e.Why, PromptWhy)
	writeBlock(&b, "Where", e.Where, PromptWhere)
	writeBlock(&b, "Notes", e.Notes, PromptNotes)
	return b.String()
}

func writeBlock(b *strings.Builder, title, text, prompt string) {
	b.WriteString("\n**")
	b.WriteString(title)
	b.WriteString("**\n")

	text = strings.TrimSpace(text)
	if text == "" {
		text = prompt
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(strings.TrimLeft(line, " "), "- "):
			b.WriteString(line)
		default:
			b.WriteString("- ")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
}
