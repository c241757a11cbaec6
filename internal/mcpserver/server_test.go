package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/gitjournal/internal/index"
	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	env := testutil.NewEnv(t, testutil.TestDB(t))
	return New(env.Service, "test"), env.Root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper; call the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "ensure_journal":
		result, err = srv.ensureJournal(ctx, req)
	case "update_journal":
		result, err = srv.updateJournal(ctx, req)
	case "read_journal":
		result, err = srv.readJournal(ctx, req)
	case "list_journals":
		result, err = srv.listJournals(ctx, req)
	case "search_journals":
		result, err = srv.searchJournals(ctx, req)
	case "get_journal_format":
		result, err = srv.getJournalFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

const journalPath = testutil.JournalPath

func TestEnsureUpdateRead(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "ensure_journal", nil)
	if got := resultText(r); got != "created: "+journalPath {
		t.Errorf("ensure = %q", got)
	}
	r = callTool(t, srv, "ensure_journal", nil)
	if got := resultText(r); got != "exists: "+journalPath {
		t.Errorf("second ensure = %q", got)
	}

	r = callTool(t, srv, "update_journal", map[string]interface{}{
		"what": "added refresh endpoint",
		"why":  "tokens expired mid-session",
	})
	if got := resultText(r); got != "updated: "+journalPath {
		t.Errorf("update = %q", got)
	}

	r = callTool(t, srv, "read_journal", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "- added refresh endpoint") || !strings.Contains(text, "- tokens expired mid-session") {
		t.Errorf("read = %q", text)
	}

	r = callTool(t, srv, "read_journal", map[string]interface{}{"folder": "2026-03-14_feature-login"})
	if resultText(r) != text {
		t.Error("read by folder differs from current")
	}
}

func TestReadJournalMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_journal", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing journal")
	}
}

func TestUpdateBrokenJournal(t *testing.T) {
	srv, root := testServer(t)
	callTool(t, srv, "ensure_journal", nil)
	if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(journalPath)), []byte("# x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "update_journal", map[string]interface{}{"what": "x"})
	if !r.IsError || !strings.Contains(resultText(r), "journal left untouched") {
		t.Errorf("update on broken journal = %+v", r)
	}
}

func TestListAndSearch(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "ensure_journal", nil)
	callTool(t, srv, "update_journal", map[string]interface{}{"what": "tuned the wombat scheduler"})

	r := callTool(t, srv, "list_journals", map[string]interface{}{})
	var items []models.JournalMetadata
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("list is not JSON: %v", err)
	}
	if len(items) != 1 || items[0].Branch != "feature/login" || items[0].Entries != 1 {
		t.Errorf("list = %+v", items)
	}

	r = callTool(t, srv, "search_journals", map[string]interface{}{"query": "wombat"})
	var results []index.SearchResult
	if err := json.Unmarshal([]byte(resultText(r)), &results); err != nil {
		t.Fatalf("search is not JSON: %v", err)
	}
	if len(results) != 1 || results[0].Path != journalPath {
		t.Errorf("search = %+v", results)
	}

	r = callTool(t, srv, "search_journals", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without query")
	}
}

func TestJournalFormat(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_journal_format", nil))
	for _, want := range []string{
		"`## Why, current summary` (human)",
		"`## Who` (automation)",
		"`## Detailed log` (append-only)",
		"## Detailed log\n```",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("format contract missing %q", want)
		}
	}

	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != FormatURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
