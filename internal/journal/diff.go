package journal

import (
	"github.com/aymanbagabas/go-udiff"
)

// Diff renders the change from before to after as a unified diff labelled
// with the journal path. It is empty when nothing changed.
func Diff(path string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}
	return udiff.Unified("a/"+path, "b/"+path, string(before), string(after))
}
