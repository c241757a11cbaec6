package journal

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/storage"
)

// Defaults for the on-disk layout.
const (
	DefaultDir      = "branches"
	DefaultFileName = "git-journal.md"
)

// Location is where a branch's journal lives. Paths are slash-separated and
// relative to the repository root.
type Location struct {
	Dir       string `json:"dir"`
	File      string `json:"file"`
	Abs       string `json:"abs"`
	FolderKey string `json:"folder_key"` // <date>_<branch>
	Created   string `json:"created"`    // date embedded in FolderKey
	Exists    bool   `json:"exists"`     // the journal file is present
	DirExists bool   `json:"dir_exists"`
}

// Locator maps a BranchContext to its journal location. It never creates
// anything on disk.
type Locator struct {
	store    storage.Provider
	dir      string
	fileName string
}

// NewLocator creates a Locator for journals under dir (relative to the
// store root), each stored as fileName.
func NewLocator(store storage.Provider, dir, fileName string) *Locator {
	if dir == "" {
		dir = DefaultDir
	}
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Locator{
		store:    store,
		dir:      path.Clean(filepath.ToSlash(dir)),
		fileName: fileName,
	}
}

// Dir returns the journals directory relative to the repository root.
func (l *Locator) Dir() string {
	return l.dir
}

// FileName returns the journal file name inside each branch folder.
func (l *Locator) FileName() string {
	return l.fileName
}

// IsJournal reports whether rel (slash-separated, relative to the
// repository root) names a journal file under the journals directory.
func (l *Locator) IsJournal(rel string) bool {
	rel = filepath.ToSlash(rel)
	if path.Base(rel) != l.fileName {
		return false
	}
	folder := path.Dir(rel)
	if path.Dir(folder) != l.dir {
		return false
	}
	_, _, ok := SplitFolderKey(path.Base(folder))
	return ok
}

// Locate finds the journal for bc.Name. Any earlier folder for the branch
// wins regardless of its date; only when none exists is a new folder keyed
// by bc's date proposed. Among several folders the oldest holding a journal
// file is used, then the oldest folder.
func (l *Locator) Locate(bc models.BranchContext) (*Location, error) {
	if bc.Name == "" {
		return nil, fmt.Errorf("journal: locate: empty branch name")
	}

	folders, err := l.Folders(bc.Name)
	if err != nil {
		return nil, err
	}

	var chosen *Location
	for _, key := range folders {
		loc := l.location(key)
		loc.DirExists = true
		ok, err := l.store.Exists(loc.File)
		if err != nil {
			return nil, fmt.Errorf("journal: locate: %w", err)
		}
		loc.Exists = ok
		if ok {
			return loc, nil
		}
		if chosen == nil {
			chosen = loc
		}
	}
	if chosen != nil {
		return chosen, nil
	}
	return l.location(FolderKey(bc.Date(), bc.Name)), nil
}

// Folders returns every folder key for the normalized branch name, oldest first.
func (l *Locator) Folders(name string) ([]string, error) {
	matches, err := l.store.Dirs(l.dir, "????-??-??_"+escapeGlob(name))
	if err != nil {
		return nil, fmt.Errorf("journal: locate: %w", err)
	}
	var out []string
	for _, m := range matches {
		date, branch, ok := SplitFolderKey(m)
		if ok && branch == name && date != "" {
			out = append(out, m)
		}
	}
	return out, nil
}

// Path returns the journal file path for a folder key.
func (l *Locator) Path(folderKey string) string {
	return path.Join(l.dir, folderKey, l.fileName)
}

func (l *Locator) location(key string) *Location {
	date, _, _ := SplitFolderKey(key)
	file := l.Path(key)
	return &Location{
		Dir:       path.Join(l.dir, key),
		File:      file,
		Abs:       filepath.Join(l.store.Root(), filepath.FromSlash(file)),
		FolderKey: key,
		Created:   date,
	}
}

// FolderKey builds the "<date>_<name>" folder name.
func FolderKey(date, name string) string {
	return date + "_" + name
}

// SplitFolderKey splits a folder name into its date and branch parts and
// reports whether the date prefix is a valid calendar date.
func SplitFolderKey(key string) (date, name string, ok bool) {
	const n = len(models.DateLayout)
	if len(key) < n+2 || key[n] != '_' {
		return "", "", false
	}
	if _, err := time.Parse(models.DateLayout, key[:n]); err != nil {
		return "", "", false
	}
	return key[:n], key[n+1:], true
}

// escapeGlob quotes doublestar metacharacters that Normalize leaves in place.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
