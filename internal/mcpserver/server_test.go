package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/othala/internal/testutil"
	"github.com/starford/othala/internal/workspace"
)

func testServer(t *testing.T) (*Server, *workspace.Service) {
	t.Helper()
	svc := testutil.TestService(t)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_workspaces":
		result, err = srv.listWorkspaces(ctx, req)
	case "list_files":
		result, err = srv.listFiles(ctx, req)
	case "read_file":
		result, err = srv.readFile(ctx, req)
	case "write_file":
		result, err = srv.writeFile(ctx, req)
	case "search_files":
		result, err = srv.searchFiles(ctx, req)
	case "recent_files":
		result, err = srv.recentFiles(ctx, req)
	case "export_workspace":
		result, err = srv.exportWorkspace(ctx, req)
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

func TestWriteAndReadFileTool(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "write_file", map[string]interface{}{
		"path":    "test.md",
		"content": "# Test\nHello",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "written: test.md") {
		t.Errorf("write result = %q", text)
	}

	files, _ := svc.ListFiles(context.Background(), workspace.DefaultWorkspace, "", "", "")
	if len(files) != 1 {
		t.Fatalf("files = %+v", files)
	}

	r = callTool(t, srv, "read_file", map[string]interface{}{"id": files[0].ID})
	if resultText(r) != "# Test\nHello" {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestListWorkspacesTool(t *testing.T) {
	srv, svc := testServer(t)
	_ = svc.CreateWorkspace(context.Background(), "Work")

	r := callTool(t, srv, "list_workspaces", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "Work") || !strings.Contains(text, workspace.DefaultWorkspace) {
		t.Errorf("list = %q", text)
	}
}

func TestListFilesTool(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	_, _, _ = svc.WriteFile(ctx, workspace.DefaultWorkspace, "a.md", []byte("a"), "")
	_, _, _ = svc.WriteFile(ctx, workspace.DefaultWorkspace, "docs/b.md", []byte("b"), "")

	r := callTool(t, srv, "list_files", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "a.md") || !strings.Contains(text, "docs/b.md") {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "list_files", map[string]interface{}{"folder": "docs"})
	text = resultText(r)
	if strings.Contains(text, "\ta.md") {
		t.Errorf("folder filter ignored: %q", text)
	}
}

func TestReadFileMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_file", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing file")
	}
}

func TestSearchFilesTool(t *testing.T) {
	srv, svc := testServer(t)
	_, _, _ = svc.WriteFile(context.Background(), workspace.DefaultWorkspace, "target.md", []byte("# Target"), "")

	r := callTool(t, srv, "search_files", map[string]interface{}{"query": "target"})
	if !strings.Contains(resultText(r), "target.md") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestRecentFilesTool(t *testing.T) {
	srv, svc := testServer(t)
	_, _, _ = svc.WriteFile(context.Background(), workspace.DefaultWorkspace, "r.md", []byte("r"), "")

	r := callTool(t, srv, "recent_files", map[string]interface{}{})
	if !strings.Contains(resultText(r), "r.md") {
		t.Errorf("recents = %q", resultText(r))
	}
}

func TestExportWorkspaceTool(t *testing.T) {
	srv, svc := testServer(t)
	_, _, _ = svc.WriteFile(context.Background(), workspace.DefaultWorkspace, "x.md", []byte("# X"), "")

	r := callTool(t, srv, "export_workspace", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"version": 2`) || !strings.Contains(text, "x.md") {
		t.Errorf("export = %q", text)
	}
}
