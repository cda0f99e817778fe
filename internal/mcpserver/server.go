// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala workspace tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/workspace"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp *server.MCPServer
	svc *workspace.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(svc *workspace.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_workspaces",
		mcp.WithDescription("List all workspaces and the currently active one."),
	), s.listWorkspaces)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List Markdown files in a workspace, optionally scoped to a folder."),
		mcp.WithString("workspace", mcp.Description("Workspace name (empty for the active workspace)")),
		mcp.WithString("folder", mcp.Description("Optional folder path to list (empty for all)")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the full content of a Markdown file by its id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("File id")),
		mcp.WithString("workspace", mcp.Description("Workspace name (empty for the active workspace)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Create or update a Markdown file at the given path. "+
			"The path identifies the file; writing to an existing path updates it in place."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the file (e.g. folder/notes.md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
		mcp.WithString("workspace", mcp.Description("Workspace name (empty for the active workspace)")),
	), s.writeFile)

	s.mcp.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Search files by name, title and preview. Set content=true to also scan file bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("workspace", mcp.Description("Workspace name (empty for the active workspace)")),
		mcp.WithBoolean("content", mcp.Description("Also scan full file content")),
	), s.searchFiles)

	s.mcp.AddTool(mcp.NewTool("recent_files",
		mcp.WithDescription("List recently opened files across all workspaces, most recent first."),
	), s.recentFiles)

	s.mcp.AddTool(mcp.NewTool("export_workspace",
		mcp.WithDescription("Export a whole workspace as a single JSON archive document."),
		mcp.WithString("workspace", mcp.Description("Workspace name (empty for the active workspace)")),
	), s.exportWorkspace)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// resolveWorkspace maps an empty workspace argument to the active workspace.
func (s *Server) resolveWorkspace(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	if ws, err := req.RequireString("workspace"); err == nil && ws != "" {
		return ws, nil
	}
	return s.svc.ActiveWorkspace(ctx)
}

func (s *Server) listWorkspaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, active, err := s.svc.Workspaces(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"workspaces": names, "active": active}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := s.resolveWorkspace(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	files, err := s.svc.ListFiles(ctx, ws, folder, "", "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("%s\t%s", f.ID, f.Path))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no files"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := s.resolveWorkspace(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, content, err := s.svc.ReadFile(ctx, ws, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(string(content)), nil
}

func (s *Server) writeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := s.resolveWorkspace(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, _, err := s.svc.WriteFile(ctx, ws, path, []byte(content), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("written: %s (id %s)", rec.Path, rec.ID)), nil
}

func (s *Server) searchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := s.resolveWorkspace(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	searchContent := req.GetBool("content", false)

	results, err := s.svc.Search(ctx, ws, query, searchContent)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) recentFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.Recents(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no recent files"), nil
	}
	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s\t%s/%s", e.ID, e.Workspace, e.Path))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) exportWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := s.resolveWorkspace(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	arch, err := s.svc.ExportWorkspace(ctx, ws)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(arch, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
