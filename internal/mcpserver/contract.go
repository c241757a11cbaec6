package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/gitjournal/internal/journal"
	"github.com/starford/gitjournal/internal/parser"
)

// FormatURI identifies the journal format resource.
const FormatURI = "gitjournal://journal-format"

const formatIntro = `# Git Journal Format

Each branch has one journal at ` + "`branches/<YYYY-MM-DD>_<branch>/git-journal.md`" + `.
The date is the day the journal was first created and never changes.
Branch names are normalized: runs of whitespace and "/" become "-", the
characters < > : " | ? * \ are dropped, repeated "-" collapse.

## Sections

The journal has exactly these level-2 headings, once each, in this order:

`

const formatRules = `
## Rules

1. Write the human sections (Why, What, Where) in place. Keep them short and
   current; they summarize the branch, the log keeps the history.
2. Never edit Who or When. They are regenerated on every update and manual
   edits there are discarded.
3. Never rewrite earlier log entries. Add new ones with the update_journal
   tool; each becomes a "### <YYYY-MM-DD HH:MM>" block at the end.
4. Do not rename, reorder or remove the level-2 headings. A journal whose
   headings are broken is left untouched by updates until it is fixed.
5. Other "##" headings may appear inside a section body and are kept as text.

## Log entry shape

` + "```markdown" + `
### 2026-03-14 09:30

**What changed**
- <what changed>

**Why**
- <why it changed>

**Where**
- <files, modules, commands>

**Notes**
- <anything else>
` + "```" + `
`

// FormatContract describes the journal layout for LLM consumers. It is
// derived from the section schema and the built-in template.
func FormatContract() string {
	var b strings.Builder
	b.WriteString(formatIntro)
	for i, k := range parser.Kinds() {
		fmt.Fprintf(&b, "%d. `## %s` (%s)\n", i+1, k.Heading(), k.Ownership())
	}
	b.WriteString(formatRules)
	b.WriteString("\n## New journal template\n\n```markdown\n")
	b.WriteString(journal.DefaultTemplate())
	b.WriteString("```\n")
	return b.String()
}
