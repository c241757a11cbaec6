package gitctx

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	separatorRe = regexp.MustCompile(`[/\s]+`)
	unsafeRe    = regexp.MustCompile(`[<>:"|?*\\]`)
	hyphensRe   = regexp.MustCompile(`-+`)
)

// Normalize makes a branch name safe for use as a folder name: path
// separators and whitespace become hyphens, characters that are invalid on
// common file systems are dropped, and hyphen runs collapse. The result is
// idempotent: Normalize(Normalize(b)) == Normalize(b).
func Normalize(branch string) string {
	s := separatorRe.ReplaceAllString(branch, "-")
	s = unsafeRe.ReplaceAllString(s, "")
	s = hyphensRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SummarizeStatus condenses porcelain status output into a short phrase such
// as "1 added, 2 modified, 3 untracked".
func SummarizeStatus(porcelain string) string {
	var added, modified, deleted, renamed, untracked int
	for _, line := range strings.Split(porcelain, "\n") {
		if len(line) < 2 {
			continue
		}
		xy := line[:2]
		switch {
		case xy == "??":
			untracked++
		case strings.ContainsRune(xy, 'A'):
			added++
		case strings.ContainsRune(xy, 'D'):
			deleted++
		case strings.ContainsRune(xy, 'R'):
			renamed++
		case strings.ContainsAny(xy, "MTU"):
			modified++
		}
	}

	var parts []string
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, strconv.Itoa(n)+" "+label)
		}
	}
	add(added, "added")
	add(modified, "modified")
	add(deleted, "deleted")
	add(renamed, "renamed")
	add(untracked, "untracked")

	if len(parts) == 0 {
		return "No changes"
	}
	return strings.Join(parts, ", ")
}
