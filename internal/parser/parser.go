// Package parser splits a journal into its fixed, ordered sections and
// renders it back without changing a byte of what it did not touch.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Section is one named region of a journal. Heading holds the heading line
// exactly as found (newline included); Body is everything up to the next
// schema heading.
type Section struct {
	Kind    Kind
	Heading string
	Body    string
}

// Document is a parsed journal. Rendering it reproduces the input exactly
// until a section body is replaced.
type Document struct {
	Preamble    string
	Sections    []Section
	Frontmatter map[string]interface{}
	Title       string
}

// Section returns the section of the given kind.
func (d *Document) Section(k Kind) *Section {
	for i := range d.Sections {
		if d.Sections[i].Kind == k {
			return &d.Sections[i]
		}
	}
	return nil
}

// Render reassembles the document text.
func (d *Document) Render() []byte {
	var b strings.Builder
	b.WriteString(d.Preamble)
	for _, s := range d.Sections {
		b.WriteString(s.Heading)
		b.WriteString(s.Body)
	}
	return []byte(b.String())
}

// Tags collects tags from the frontmatter "tags" field and inline #tags in
// the human-owned sections.
func (d *Document) Tags() []string {
	var bodies []string
	for _, s := range d.Sections {
		if s.Kind.Ownership() == HumanOwned {
			bodies = append(bodies, s.Body)
		}
	}
	return extractTags(strings.Join(bodies, "\n"), d.Frontmatter)
}

// Parse locates the schema headings in data. It fails with a *SchemaError
// when a heading is missing, duplicated or out of order. Level-2 headings
// outside the schema, and anything inside fenced code blocks, stay part of
// the surrounding body.
func Parse(data []byte) (*Document, error) {
	text := string(data)
	lines := strings.SplitAfter(text, "\n")

	var (
		starts   [numKinds]int
		heads    [numKinds]string
		seen     [numKinds]bool
		expected Kind
		offset   int
		fence    string
	)

	for i, line := range lines {
		lineStart := offset
		offset += len(line)

		trimmed := strings.TrimRight(line, " \t\r\n")
		if marker, rest := fenceMarker(trimmed); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case closesFence(fence, marker, rest):
				fence = ""
			}
			continue
		}
		if fence != "" || !strings.HasPrefix(trimmed, "## ") {
			continue
		}

		k, ok := kindForTitle(strings.TrimSpace(trimmed[3:]))
		if !ok {
			continue
		}
		if seen[k] {
			return nil, &SchemaError{Heading: k.Heading(), Line: i + 1, Reason: "duplicate heading"}
		}
		if k != expected {
			return nil, &SchemaError{
				Heading: expected.Heading(),
				Line:    i + 1,
				Reason:  fmt.Sprintf("found %q before it", k.Heading()),
			}
		}
		seen[k] = true
		starts[k] = lineStart
		heads[k] = line
		expected++
	}

	if int(expected) < numKinds {
		return nil, &SchemaError{Heading: expected.Heading(), Reason: "missing heading"}
	}

	doc := &Document{Preamble: text[:starts[0]]}
	for i := 0; i < numKinds; i++ {
		bodyStart := starts[i] + len(heads[i])
		bodyEnd := len(text)
		if i+1 < numKinds {
			bodyEnd = starts[i+1]
		}
		doc.Sections = append(doc.Sections, Section{
			Kind:    Kind(i),
			Heading: heads[i],
			Body:    text[bodyStart:bodyEnd],
		})
	}

	doc.Frontmatter = parseFrontmatter([]byte(doc.Preamble))
	doc.Title = deriveTitle(doc.Frontmatter, doc.Preamble)
	return doc, nil
}

// fenceMarker returns the run of backticks or tildes opening line (at
// least three) and what follows it.
func fenceMarker(line string) (marker, rest string) {
	s := strings.TrimSpace(line)
	if len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return "", ""
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	if n < 3 {
		return "", ""
	}
	return s[:n], s[n:]
}

// closesFence reports whether a marker line ends the fence opened by open:
// same character, at least as long, and no info string.
func closesFence(open, marker, rest string) bool {
	return marker[0] == open[0] && len(marker) >= len(open) && strings.TrimSpace(rest) == ""
}

// parseFrontmatter decodes YAML frontmatter between leading --- delimiters.
// Missing or invalid frontmatter yields nil.
func parseFrontmatter(data []byte) map[string]interface{} {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil
	}

	var fm map[string]interface{}
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil
	}
	return fm
}

// extractTags collects #tags from body and from frontmatter "tags" field.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	if fm != nil {
		if raw, ok := fm["tags"]; ok {
			if v, ok := raw.([]interface{}); ok {
				for _, item := range v {
					s, ok := item.(string)
					if !ok {
						continue
					}
					s = strings.TrimSpace(s)
					if s == "" {
						continue
					}
					if _, dup := seen[s]; !dup {
						seen[s] = struct{}{}
						out = append(out, s)
					}
				}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading of the preamble, otherwise empty string.
func deriveTitle(fm map[string]interface{}, preamble string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(preamble, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
