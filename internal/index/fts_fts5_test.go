//go:build sqlite_fts5

package index

import (
	"testing"

	"github.com/starford/gitjournal/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM journals_fts`).Scan(&count); err != nil {
		t.Fatalf("journals_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	m := models.JournalMetadata{Path: "fts.md", Branch: "feature/fts", Checksum: "f1", Tags: []string{"search"}}
	if err := db.UpsertJournal(m, "Switched the cache to a powerful write-through layer."); err != nil {
		t.Fatalf("UpsertJournal: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "fts.md" || results[0].Branch != "feature/fts" {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertJournal(models.JournalMetadata{Path: "gone.md", Checksum: "g"}, "vanishing content")
	_ = db.DeleteJournal("gone.md")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted journal still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertJournal(models.JournalMetadata{Path: "evo.md", Branch: "old", Checksum: "1"}, "original text")
	_ = db.UpsertJournal(models.JournalMetadata{Path: "evo.md", Branch: "new", Checksum: "2"}, "replacement text")

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Branch != "new" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_BranchMatchOutranksBody(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertJournal(models.JournalMetadata{Path: "body.md", Branch: "fix-cache", Checksum: "1"}, "the payments client timed out again")
	_ = db.UpsertJournal(models.JournalMetadata{Path: "branch.md", Branch: "feature-payments", Checksum: "2"}, "wired the new client")

	results, err := db.Search("payments", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].Path != "branch.md" {
		t.Errorf("results = %+v, want branch.md first", results)
	}
}

func TestFTS5_PrefixMatch(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertJournal(models.JournalMetadata{Path: "p.md", Branch: "main", Checksum: "1"}, "refactoring the tokenizer")

	results, err := db.Search("tokeni", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("prefix search = %+v, want 1 hit", results)
	}
}
