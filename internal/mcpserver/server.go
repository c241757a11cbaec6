// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the branch journal to coding agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gitjournal/internal/apperr"
	"github.com/starford/gitjournal/internal/journalservice"
	"github.com/starford/gitjournal/internal/models"
)

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp *server.MCPServer
	svc *journalservice.Service
}

// New creates a new MCP server with all journal tools registered.
func New(svc *journalservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"gitjournal",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("ensure_journal",
		mcp.WithDescription("Create the journal of the checked-out branch if it does not exist yet. "+
			"Safe to call at the start of every session."),
	), s.ensureJournal)

	s.mcp.AddTool(mcp.NewTool("update_journal",
		mcp.WithDescription("Refresh the Who/When sections of the current branch's journal and append "+
			"one entry to its detailed log. Call after each meaningful change. "+
			"Read the format via get_journal_format first."),
		mcp.WithString("what", mcp.Description("What changed; defaults to a working-tree summary")),
		mcp.WithString("why", mcp.Description("Why it changed")),
		mcp.WithString("where", mcp.Description("Files, modules or commands involved")),
		mcp.WithString("notes", mcp.Description("Anything else worth keeping")),
	), s.updateJournal)

	s.mcp.AddTool(mcp.NewTool("read_journal",
		mcp.WithDescription("Read a journal. Without folder, reads the journal of the checked-out branch."),
		mcp.WithString("folder", mcp.Description("Branch folder such as 2026-03-14_feature-login")),
	), s.readJournal)

	s.mcp.AddTool(mcp.NewTool("list_journals",
		mcp.WithDescription("List the journals of all branches, most recently updated first."),
		mcp.WithString("sort", mcp.Description("last_updated (default), created or branch")),
	), s.listJournals)

	s.mcp.AddTool(mcp.NewTool("search_journals",
		mcp.WithDescription("Full-text search through all journals."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchJournals)

	s.mcp.AddTool(mcp.NewTool("get_journal_format",
		mcp.WithDescription("Returns the journal format contract: sections, ownership and log entry shape."),
	), s.getJournalFormat)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Journal Format Contract",
			mcp.WithResourceDescription("Section schema and editing rules of branch journals."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HTTPHandler serves the same tools over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrSchemaParse):
		return mcp.NewToolResultError("journal left untouched: " + err.Error() +
			". Restore the heading and call update_journal again.")
	case errors.Is(err, apperr.ErrNoRepository):
		return mcp.NewToolResultError("not inside a git repository")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) ensureJournal(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := s.svc.Ensure(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", op.Outcome, op.Location.File)), nil
}

func (s *Server) updateJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry := models.LogEntry{
		What:  req.GetString("what", ""),
		Why:   req.GetString("why", ""),
		Where: req.GetString("where", ""),
		Notes: req.GetString("notes", ""),
	}
	op, err := s.svc.Update(ctx, entry)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", op.Outcome, op.Location.File)), nil
}

func (s *Server) readJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		d   *journalservice.JournalDetail
		err error
	)
	if folder := req.GetString("folder", ""); folder != "" {
		d, err = s.svc.Get(ctx, folder)
	} else {
		d, err = s.svc.Current(ctx)
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("journal not found; call ensure_journal to create it"), nil
	}
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) listJournals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.List(ctx, 0, 0, req.GetString("sort", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(items), nil
}

func (s *Server) searchJournals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getJournalFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract()), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract(),
		},
	}, nil
}
