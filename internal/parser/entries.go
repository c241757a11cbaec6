package parser

import "strings"

// Entry is one dated block of the detailed log.
type Entry struct {
	Title string // heading text after "### "
	Text  string // heading line plus body, verbatim
}

// Entries splits the detailed log into its "### " blocks in document order.
// Text before the first block is not an entry.
func (d *Document) Entries() []Entry {
	s := d.Section(DetailLog)
	if s == nil {
		return nil
	}

	var (
		out   []Entry
		cur   *Entry
		fence string
	)
	for _, line := range strings.SplitAfter(s.Body, "\n") {
		trimmed := strings.TrimRight(line, " \t\r\n")
		if marker, rest := fenceMarker(trimmed); marker != "" {
			if fence == "" {
				fence = marker
			} else if closesFence(fence, marker, rest) {
				fence = ""
			}
		} else if fence == "" && strings.HasPrefix(trimmed, "### ") {
			out = append(out, Entry{Title: strings.TrimSpace(trimmed[4:])})
			cur = &out[len(out)-1]
		}
		if cur != nil {
			cur.Text += line
		}
	}
	return out
}
