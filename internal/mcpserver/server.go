// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Inkwell tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/dialog"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/tree"
	"github.com/starford/inkwell/internal/workbench"
)

const guideURI = "inkwell://markdown-guide"

// Server wraps the MCP server with Inkwell tools.
type Server struct {
	mcp   *server.MCPServer
	wb    *workbench.Workbench
	store storage.Provider
}

// New creates a new MCP server with all Inkwell tools registered.
func New(wb *workbench.Workbench, store storage.Provider) *Server {
	s := &Server{wb: wb, store: store}

	s.mcp = server.NewMCPServer(
		"Inkwell",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the projects (top-level folders) under the projects root."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the folders and Markdown files directly inside a project or folder."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Project or folder path relative to the projects root")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("find_files",
		mcp.WithDescription("Fuzzy-match file names among the folders listed so far."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Characters of the file name, in order")),
	), s.findFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the raw content of a Markdown file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file (e.g. notes/todo.md)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("create_file",
		mcp.WithDescription("Create an empty file inside a project or folder. "+
			"Read the Markdown guide first via the get_markdown_guide tool or the "+guideURI+" resource."),
		mcp.WithString("parent", mcp.Required(), mcp.Description("Folder path relative to the projects root")),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name, e.g. ideas.md")),
	), s.createFile)

	s.mcp.AddTool(mcp.NewTool("render_markdown",
		mcp.WithDescription("Render Markdown to the HTML the preview shows. Does not touch the open document."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Markdown source")),
	), s.renderMarkdown)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Return the open document: path, title, text and dirty flag."),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open a file in the editor, replacing the current document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file")),
	), s.openDocument)

	s.mcp.AddTool(mcp.NewTool("edit_document",
		mcp.WithDescription("Replace the editor text of the open document. The change is unsaved until save_document."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Full new Markdown text")),
	), s.editDocument)

	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Save the open document. A never-saved document needs a path."),
		mcp.WithString("path", mcp.Description("Destination for a never-saved document; .md is appended when missing")),
	), s.saveDocument)

	s.mcp.AddTool(mcp.NewTool("recent_documents",
		mcp.WithDescription("List recently opened documents, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of documents (default 20)")),
	), s.recentDocuments)

	s.mcp.AddTool(mcp.NewTool("get_markdown_guide",
		mcp.WithDescription("Returns the Markdown dialect the preview renders. "+
			"Call this before writing documents to ensure they display as intended."),
	), s.getMarkdownGuide)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an image from a URL (or decode a data URI) and store it in the "+
			"assets/ folder of a document's folder. Returns a markdownImage snippet."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or base64 data URI")),
		mcp.WithString("dir", mcp.Required(), mcp.Description("Folder of the document that embeds the asset")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.uploadAsset)

	// Resource: Markdown guide.
	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Markdown Guide",
			mcp.WithResourceDescription("Markdown dialect rendered by the Inkwell preview."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

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

// abs resolves a tool path against the projects root.
func (s *Server) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.store.Root(), filepath.FromSlash(p))
}

// rel presents an absolute path relative to the projects root.
func (s *Server) rel(p string) string {
	r, err := filepath.Rel(s.store.Root(), p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(r)
}

type entryView struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Dir  bool   `json:"dir"`
}

func (s *Server) views(nodes []*tree.Node) []entryView {
	out := make([]entryView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, entryView{Name: n.Name, Path: s.rel(n.Path), Dir: n.IsDir()})
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.wb.Tree.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.views(nodes)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path := s.abs(p)
	if !s.wb.Tree.Loaded() {
		if _, err := s.wb.Tree.ListProjects(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	// Walk down from the project so every ancestor is loaded first.
	rel, err := filepath.Rel(s.wb.Tree.Root(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return mcp.NewToolResultError(fmt.Sprintf("not a folder in the projects root: %s", p)), nil
	}
	cur := s.wb.Tree.Root()
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		if err := s.wb.Tree.Expand(ctx, cur); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	n, ok := s.wb.Tree.Node(path)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
	}
	if n.State == tree.Failed {
		return mcp.NewToolResultError(n.Err), nil
	}
	return jsonResult(s.views(n.Children)), nil
}

func (s *Server) findFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.views(s.wb.Tree.Find(query, 20))), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.store.ReadFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(f.Content)), nil
}

func (s *Server) createFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent, err := req.RequireString("parent")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.wb.Tree.CreateFile(ctx, s.abs(parent), name)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s/%s", parent, name)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", s.rel(path))), nil
}

func (s *Server) renderMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.wb.Render(text)), nil
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.wb.Session.Snapshot()), nil
}

func (s *Server) openDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.wb.OpenDocument(ctx, s.abs(path), nil); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.wb.Session.Snapshot()), nil
}

func (s *Server) editDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rev := s.wb.Session.EditText(text)
	return mcp.NewToolResultText(fmt.Sprintf("rev: %d", rev)), nil
}

func (s *Server) saveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dest := req.GetString("path", "")
	path, err := s.wb.Session.Save(ctx, dialog.Preset{Path: s.abs(dest)})
	if err != nil {
		if errors.Is(err, apperr.ErrCancelled) {
			return mcp.NewToolResultError("document was never saved: path is required"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", s.rel(path))), nil
}

func (s *Server) recentDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.wb.Recent(req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(docs), nil
}

func (s *Server) getMarkdownGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkdownGuide), nil
}

func (s *Server) readGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     MarkdownGuide,
		},
	}, nil
}
