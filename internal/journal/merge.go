package journal

import (
	"strings"

	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/parser"
)

// Field labels of the automation-owned sections.
const (
	labelAuthor      = "Git user"
	labelCreated     = "Created"
	labelLastUpdated = "Last updated"
	labelBranch      = "Branch"
	labelHead        = "HEAD"
)

// Merge regenerates the Who and When bodies from bc. Whatever a person
// wrote there is replaced, except the creation date, which is carried over
// from the existing When body (or folderCreated if that line is gone).
// Human-owned sections and the detailed log are not touched.
func Merge(doc *parser.Document, bc models.BranchContext, folderCreated string) {
	who := doc.Section(parser.Who)
	when := doc.Section(parser.When)

	created := Fields(when.Body)[labelCreated]
	if created == "" {
		created = folderCreated
	}
	if created == "" {
		created = bc.Date()
	}

	who.Body = withLineEnding(renderWho(bc.Author), who.Heading)
	when.Body = withLineEnding(renderWhen(created, bc.Now.Format(models.TimestampLayout), bc.Branch, bc.Head), when.Heading)
}

// withLineEnding converts body to CRLF when the heading line uses CRLF.
func withLineEnding(body, heading string) string {
	if strings.HasSuffix(heading, "\r\n") {
		return strings.ReplaceAll(body, "\n", "\r\n")
	}
	return body
}

func renderWho(author string) string {
	return "\n" + field(labelAuthor, author) + "\n"
}

func renderWhen(created, lastUpdated, branch, head string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(field(labelCreated, created))
	b.WriteString(field(labelLastUpdated, lastUpdated))
	b.WriteString(field(labelBranch, branch))
	b.WriteString(field(labelHead, head))
	b.WriteString("\n---\n\n")
	return b.String()
}

func field(label, value string) string {
	if value == "" {
		return "- " + label + ":\n"
	}
	return "- " + label + ": " + value + "\n"
}

// Fields reads "- Label: value" lines from a section body.
func Fields(body string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		label, value, ok := strings.Cut(line[2:], ":")
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		if _, dup := out[label]; dup {
			continue
		}
		out[label] = strings.TrimSpace(value)
	}
	return out
}
