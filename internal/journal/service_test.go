package journal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/gitjournal/internal/apperr"
	"github.com/starford/gitjournal/internal/checksum"
	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/parser"
	"github.com/starford/gitjournal/internal/storage"
)

func testService(t *testing.T) (*Service, *storage.FS) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	svc, err := NewService(store, Options{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func branchCtx(branch, author, head string, now time.Time) models.BranchContext {
	return models.BranchContext{
		RepoRoot: "/repo",
		Branch:   branch,
		Name:     strings.ReplaceAll(branch, "/", "-"),
		Author:   author,
		Head:     head,
		Now:      now,
	}
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 9, 30, 0, 0, time.UTC)
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func sectionBody(t *testing.T, data []byte, k parser.Kind) string {
	t.Helper()
	doc, err := parser.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc.Section(k).Body
}

func TestEnsure_ScenarioA(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	res, err := svc.Ensure(ctx, branchCtx("feature/login", "Alice", "abc1234", day(10)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if res.Outcome != OutcomeCreated {
		t.Errorf("outcome = %s, want created", res.Outcome)
	}
	want := "branches/2025-01-10_feature-login/git-journal.md"
	if res.Location.File != want {
		t.Errorf("file = %q, want %q", res.Location.File, want)
	}

	data := readFile(t, filepath.Join(store.Root(), want))
	if !strings.Contains(sectionBody(t, data, parser.Who), "Alice") {
		t.Errorf("Who does not mention author:\n%s", data)
	}
	if !strings.Contains(sectionBody(t, data, parser.When), "Created: 2025-01-10") {
		t.Errorf("When missing creation date:\n%s", data)
	}
	doc, _ := parser.Parse(data)
	if n := len(doc.Entries()); n != 0 {
		t.Errorf("fresh journal has %d log entries", n)
	}
}

func TestEnsure_SecondCallIsNoop(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()
	bc := branchCtx("feature/login", "Alice", "abc1234", day(10))

	first, err := svc.Ensure(ctx, bc)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	before := readFile(t, filepath.Join(store.Root(), first.Location.File))

	later := branchCtx("feature/login", "Bob", "def5678", day(12))
	second, err := svc.Ensure(ctx, later)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if second.Outcome != OutcomeExists {
		t.Errorf("outcome = %s, want exists", second.Outcome)
	}
	after := readFile(t, filepath.Join(store.Root(), first.Location.File))
	if !bytes.Equal(before, after) {
		t.Error("second Ensure changed the journal")
	}
	if second.Location.File != first.Location.File {
		t.Errorf("second Ensure located %q", second.Location.File)
	}
}

func TestUpdate_ScenarioB_KeepsFolderAndCreationDate(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	if _, err := svc.Ensure(ctx, branchCtx("feature/login", "Alice", "abc1234", day(10))); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	res, err := svc.Update(ctx, branchCtx("feature/login", "Alice", "def5678", day(11)), models.LogEntry{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Outcome != OutcomeUpdated {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if res.Location.FolderKey != "2025-01-10_feature-login" {
		t.Errorf("folder = %q, want the day-10 folder", res.Location.FolderKey)
	}
	if dirs, _ := store.Dirs("branches", "*"); len(dirs) != 1 {
		t.Errorf("branches = %v, want exactly one folder", dirs)
	}

	when := sectionBody(t, readFile(t, res.Location.Abs), parser.When)
	for _, want := range []string{"Created: 2025-01-10", "Last updated: 2025-01-11", "HEAD: def5678"} {
		if !strings.Contains(when, want) {
			t.Errorf("When missing %q:\n%s", want, when)
		}
	}
}

func TestUpdate_ScenarioC_HumanSectionsSurvive(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	res, err := svc.Ensure(ctx, branchCtx("feature/login", "Alice", "abc1234", day(10)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	doc, _ := parser.Parse(readFile(t, res.Location.Abs))
	doc.Section(parser.Why).Body = "\nWe retry logins because the IdP drops\nroughly 1% of requests under load.\n\n"
	doc.Section(parser.Where).Body = "\n- internal/login/\n- ```odd``` markup\n\n"
	if err := os.WriteFile(res.Location.Abs, doc.Render(), 0o644); err != nil {
		t.Fatal(err)
	}

	human := func(data []byte) [3]string {
		return [3]string{
			sectionBody(t, data, parser.Why),
			sectionBody(t, data, parser.What),
			sectionBody(t, data, parser.Where),
		}
	}
	want := human(readFile(t, res.Location.Abs))

	authors := []string{"Bob", "", "Carol"}
	for i, author := range authors {
		if _, err := svc.Update(ctx, branchCtx("feature/login", author, "h"+author, day(11+i)), models.LogEntry{}); err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
		if got := human(readFile(t, res.Location.Abs)); got != want {
			t.Fatalf("human sections changed after update %d:\n%q\nwant\n%q", i, got, want)
		}
	}
}

func TestUpdate_AppendsInCallOrder(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	bc := branchCtx("main", "Alice", "abc1234", day(10))

	if _, err := svc.Ensure(ctx, bc); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	const n = 4
	var previous []parser.Entry
	var path string
	for i := 0; i < n; i++ {
		bc.Now = day(10).Add(time.Duration(i) * time.Hour)
		res, err := svc.Update(ctx, bc, models.LogEntry{What: "step " + string(rune('A'+i))})
		if err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
		path = res.Location.Abs
		doc, err := parser.Parse(readFile(t, path))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		entries := doc.Entries()
		if len(entries) != i+1 {
			t.Fatalf("after %d updates: %d entries", i+1, len(entries))
		}
		for j, prev := range previous {
			if j == len(previous)-1 {
				// The last block gains the blank line separating it from the new one.
				if !strings.HasPrefix(entries[j].Text, prev.Text) {
					t.Errorf("entry %d rewritten", j)
				}
				continue
			}
			if entries[j].Text != prev.Text {
				t.Errorf("entry %d rewritten:\n%q\nwas\n%q", j, entries[j].Text, prev.Text)
			}
		}
		previous = entries
	}

	data := string(readFile(t, path))
	for i := 1; i < n; i++ {
		a := strings.Index(data, "step "+string(rune('A'+i-1)))
		b := strings.Index(data, "step "+string(rune('A'+i)))
		if a < 0 || b < 0 || a > b {
			t.Errorf("entries out of call order: %d at %d, %d at %d", i-1, a, i, b)
		}
	}
}

func TestUpdate_ReplacesEditedAutomationSections(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	res, err := svc.Ensure(ctx, branchCtx("main", "Alice", "abc1234", day(10)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	doc, _ := parser.Parse(readFile(t, res.Location.Abs))
	doc.Section(parser.Who).Body = "\n- Git user: Mallory\n- hand-written note\n\n"
	doc.Section(parser.When).Body = "\n- Created: 2024-12-31\nrandom text\n\n---\n\n"
	_ = os.WriteFile(res.Location.Abs, doc.Render(), 0o644)

	if _, err := svc.Update(ctx, branchCtx("main", "Bob", "def5678", day(11)), models.LogEntry{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	data := readFile(t, res.Location.Abs)
	if got := sectionBody(t, data, parser.Who); got != "\n- Git user: Bob\n\n" {
		t.Errorf("Who = %q", got)
	}
	want := "\n- Created: 2024-12-31\n- Last updated: 2025-01-11 09:30\n- Branch: main\n- HEAD: def5678\n\n---\n\n"
	if got := sectionBody(t, data, parser.When); got != want {
		t.Errorf("When = %q, want %q", got, want)
	}
}

func TestUpdate_CorruptedHeadingAbortsWithoutWriting(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	res, err := svc.Ensure(ctx, branchCtx("main", "Alice", "abc1234", day(10)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	mangled := strings.Replace(string(readFile(t, res.Location.Abs)), "## Where, key areas", "## Wher", 1)
	if err := os.WriteFile(res.Location.Abs, []byte(mangled), 0o644); err != nil {
		t.Fatal(err)
	}
	before, _ := checksum.File(res.Location.Abs)

	_, err = svc.Update(ctx, branchCtx("main", "Bob", "def5678", day(11)), models.LogEntry{})
	if !errors.Is(err, apperr.ErrSchemaParse) {
		t.Fatalf("err = %v, want ErrSchemaParse", err)
	}

	after, _ := checksum.File(res.Location.Abs)
	if before != after {
		t.Error("journal changed despite abort")
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(res.Location.Abs), ".gitjournal-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestUpdate_MissingJournalIsCreated(t *testing.T) {
	svc, _ := testService(t)
	res, err := svc.Update(context.Background(), branchCtx("main", "Alice", "", day(10)), models.LogEntry{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Outcome != OutcomeCreated {
		t.Errorf("outcome = %s, want created", res.Outcome)
	}
	if !strings.Contains(string(readFile(t, res.Location.Abs)), "- HEAD:\n") {
		t.Error("empty head should render as a bare label")
	}
}

func TestUpdate_ReusesFolderWithoutFile(t *testing.T) {
	svc, store := testService(t)
	if err := os.MkdirAll(filepath.Join(store.Root(), "branches", "2024-12-01_main"), 0o755); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Ensure(context.Background(), branchCtx("main", "Alice", "abc", day(10)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if res.Location.FolderKey != "2024-12-01_main" {
		t.Errorf("folder = %q", res.Location.FolderKey)
	}
	if !strings.Contains(string(res.Content), "Created: 2024-12-01") {
		t.Error("creation date should come from the existing folder")
	}
}

// racingStore creates the journal just before the service does.
type racingStore struct {
	*storage.FS
	winner []byte
}

func (r *racingStore) Create(path string, content []byte) error {
	if err := r.FS.Create(path, r.winner); err != nil {
		return err
	}
	return r.FS.Create(path, content)
}

// blockedStore sends every Write to a path occupied by a non-empty
// directory, so the final rename fails.
type blockedStore struct {
	*storage.FS
	blocked string
}

func (b *blockedStore) Write(_ string, content []byte) error {
	return b.FS.Write(b.blocked, content)
}

func TestUpdate_WriteFailureLeavesJournalIntact(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	res, err := svc.Ensure(ctx, branchCtx("main", "Alice", "abc1234", day(10)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	dir := filepath.Dir(res.Location.Abs)
	if err := os.MkdirAll(filepath.Join(dir, "blocked", "child"), 0o755); err != nil {
		t.Fatal(err)
	}
	blocked := &blockedStore{FS: store, blocked: filepath.ToSlash(filepath.Join(filepath.Dir(res.Location.File), "blocked"))}
	failing, err := NewService(blocked, Options{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	before, _ := checksum.File(res.Location.Abs)

	_, err = failing.Update(ctx, branchCtx("main", "Bob", "def5678", day(11)), models.LogEntry{What: "lost"})
	if !errors.Is(err, apperr.ErrWriteFailure) {
		t.Fatalf("err = %v, want ErrWriteFailure", err)
	}

	after, _ := checksum.File(res.Location.Abs)
	if before != after {
		t.Error("journal changed despite the failed write")
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".gitjournal-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestEnsure_LosingCreateRaceIsNoop(t *testing.T) {
	fs, _ := storage.NewFS(t.TempDir())
	svc, _ := NewService(fs, Options{})
	winner, err := svc.materializer.Render(branchCtx("main", "Winner", "w", day(10)), "2025-01-10")
	if err != nil {
		t.Fatal(err)
	}
	svc.store = &racingStore{FS: fs, winner: winner}
	svc.materializer.store = svc.store
	svc.locator.store = svc.store

	res, err := svc.Ensure(context.Background(), branchCtx("main", "Loser", "l", day(10)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if res.Outcome != OutcomeExists {
		t.Errorf("outcome = %s, want exists", res.Outcome)
	}
	if !bytes.Equal(readFile(t, res.Location.Abs), winner) {
		t.Error("winner's journal was overwritten")
	}
}

func TestUpdate_LosingCreateRaceFallsThroughToUpdate(t *testing.T) {
	fs, _ := storage.NewFS(t.TempDir())
	svc, _ := NewService(fs, Options{})
	winner, _ := svc.materializer.Render(branchCtx("main", "Winner", "w", day(10)), "2025-01-10")
	svc.store = &racingStore{FS: fs, winner: winner}
	svc.materializer.store = svc.store
	svc.locator.store = svc.store

	res, err := svc.Update(context.Background(), branchCtx("main", "Loser", "l", day(10)), models.LogEntry{What: "after race"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Outcome != OutcomeUpdated {
		t.Errorf("outcome = %s, want updated", res.Outcome)
	}
	data := string(readFile(t, res.Location.Abs))
	if !strings.Contains(data, "after race") || !strings.Contains(data, "Git user: Loser") {
		t.Errorf("update not applied on top of winner:\n%s", data)
	}
}

func TestPreview_DoesNotWrite(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()
	bc := branchCtx("main", "Alice", "abc", day(10))

	res, err := svc.Preview(ctx, bc, models.LogEntry{})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if ok, _ := store.Exists(res.Location.File); ok {
		t.Fatal("preview created the journal")
	}

	if _, err := svc.Ensure(ctx, bc); err != nil {
		t.Fatal(err)
	}
	before := readFile(t, res.Location.Abs)
	res, err = svc.Preview(ctx, branchCtx("main", "Bob", "def", day(11)), models.LogEntry{What: "preview only"})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if res.Outcome != OutcomePreview || !bytes.Equal(res.Previous, before) {
		t.Errorf("unexpected preview result %+v", res)
	}
	if !strings.Contains(string(res.Content), "preview only") {
		t.Error("preview content lacks the entry")
	}
	if !bytes.Equal(readFile(t, res.Location.Abs), before) {
		t.Error("preview wrote to disk")
	}
}

func TestUpdate_DefaultsWhatToWorkingTreeStatus(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	bc := branchCtx("main", "Alice", "abc", day(10))
	if _, err := svc.Ensure(ctx, bc); err != nil {
		t.Fatal(err)
	}
	bc.Status = "2 modified"
	res, err := svc.Update(ctx, bc, models.LogEntry{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !strings.Contains(string(res.Content), "**What changed**\n- 2 modified\n") {
		t.Errorf("status not used as What:\n%s", res.Content)
	}
}
