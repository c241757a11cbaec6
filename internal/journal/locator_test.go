package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/gitjournal/internal/storage"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, "branches", d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLocate_FreshBranchProposesDatedFolder(t *testing.T) {
	store, _ := storage.NewFS(t.TempDir())
	loc, err := NewLocator(store, "", "").Locate(branchCtx("feature/login", "", "", day(10)))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.Exists || loc.DirExists {
		t.Errorf("fresh branch reported as existing: %+v", loc)
	}
	if loc.Dir != "branches/2025-01-10_feature-login" || loc.Created != "2025-01-10" {
		t.Errorf("unexpected location %+v", loc)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "branches")); !os.IsNotExist(err) {
		t.Error("Locate must not create directories")
	}
}

func TestLocate_IgnoresCurrentDate(t *testing.T) {
	store, _ := storage.NewFS(t.TempDir())
	mkdirs(t, store.Root(), "2025-01-10_main", "2025-01-10_main-2", "2025-01-10_other")
	_ = store.Write("branches/2025-01-10_main/git-journal.md", []byte("x"))

	loc, err := NewLocator(store, "", "").Locate(branchCtx("main", "", "", day(20)))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if !loc.Exists || loc.FolderKey != "2025-01-10_main" {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestLocate_PrefersOldestFolderWithJournal(t *testing.T) {
	store, _ := storage.NewFS(t.TempDir())
	mkdirs(t, store.Root(), "2025-01-01_main", "2025-01-05_main", "2025-01-09_main")
	_ = store.Write("branches/2025-01-05_main/git-journal.md", []byte("x"))
	_ = store.Write("branches/2025-01-09_main/git-journal.md", []byte("y"))

	loc, err := NewLocator(store, "", "").Locate(branchCtx("main", "", "", day(20)))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.FolderKey != "2025-01-05_main" {
		t.Errorf("folder = %q, want 2025-01-05_main", loc.FolderKey)
	}
}

func TestLocate_SkipsInvalidDatePrefixes(t *testing.T) {
	store, _ := storage.NewFS(t.TempDir())
	mkdirs(t, store.Root(), "2025-13-45_main", "abcd-ef-gh_main")

	loc, err := NewLocator(store, "", "").Locate(branchCtx("main", "", "", day(10)))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.DirExists || loc.FolderKey != "2025-01-10_main" {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestLocate_GlobMetacharactersInName(t *testing.T) {
	store, _ := storage.NewFS(t.TempDir())
	mkdirs(t, store.Root(), "2025-01-01_fix-[1]", "2025-01-01_fix-1")
	_ = store.Write("branches/2025-01-01_fix-1/git-journal.md", []byte("x"))

	bc := branchCtx("fix-[1]", "", "", day(10))
	loc, err := NewLocator(store, "", "").Locate(bc)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.FolderKey != "2025-01-01_fix-[1]" || loc.Exists {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestLocate_CustomLayout(t *testing.T) {
	store, _ := storage.NewFS(t.TempDir())
	loc, err := NewLocator(store, "docs/journals/", "JOURNAL.md").Locate(branchCtx("main", "", "", day(10)))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.File != "docs/journals/2025-01-10_main/JOURNAL.md" {
		t.Errorf("file = %q", loc.File)
	}
}

func TestSplitFolderKey(t *testing.T) {
	tests := []struct {
		key        string
		date, name string
		ok         bool
	}{
		{"2025-01-10_feature-login", "2025-01-10", "feature-login", true},
		{"2025-01-10_a_b", "2025-01-10", "a_b", true},
		{"2025-01-10_", "", "", false},
		{"2025-02-30_main", "", "", false},
		{"main", "", "", false},
	}
	for _, tt := range tests {
		date, name, ok := SplitFolderKey(tt.key)
		if date != tt.date || name != tt.name || ok != tt.ok {
			t.Errorf("SplitFolderKey(%q) = %q, %q, %v", tt.key, date, name, ok)
		}
	}
}
