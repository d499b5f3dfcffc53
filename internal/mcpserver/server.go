// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes booknote tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/booknote/internal/apperr"
	"github.com/starford/booknote/internal/models"
	"github.com/starford/booknote/internal/noteservice"
)

const templateSyntaxURI = "booknote://template-syntax"

// Server wraps the MCP server with booknote tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all booknote tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"booknote",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("render_book_note",
		mcp.WithDescription("Render the note text and file name for a book metadata record without writing anything."),
		mcp.WithString("book", mcp.Required(), mcp.Description("Book record as a JSON object (title, authors, isbn13, ...)")),
	), s.renderBookNote)

	s.mcp.AddTool(mcp.NewTool("create_book_note",
		mcp.WithDescription("Create a book note in the library folder from a metadata record. "+
			"Refuses books whose ISBN is already in the library unless force is true."),
		mcp.WithString("book", mcp.Required(), mcp.Description("Book record as a JSON object")),
		mcp.WithBoolean("force", mcp.Description("Create even if the ISBN already has a note")),
	), s.createBookNote)

	s.mcp.AddTool(mcp.NewTool("search_library",
		mcp.WithDescription("Full-text search through book notes by title, author, ISBN and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchLibrary)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note in the vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. Books/Dune.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_books",
		mcp.WithDescription("List book notes in the library."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
		mcp.WithString("sort", mcp.Description("Sort order: updated, title or path")),
	), s.listBooks)

	s.mcp.AddTool(mcp.NewTool("get_template_syntax",
		mcp.WithDescription("Returns the template placeholder syntax used for book notes and file names."),
	), s.getTemplateSyntax)

	s.mcp.AddResource(
		mcp.NewResource(templateSyntaxURI, "Template Syntax",
			mcp.WithResourceDescription("Placeholder, section and date syntax for book note templates."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTemplateSyntaxResource,
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

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperr.Notice(err) + " (" + err.Error() + ")")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func bookArg(req mcp.CallToolRequest) (models.Book, error) {
	raw, err := req.RequireString("book")
	if err != nil {
		return models.Book{}, err
	}
	return models.DecodeBook([]byte(raw))
}

func (s *Server) renderBookNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book, err := bookArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Preview(ctx, book)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(p)
}

func (s *Server) createBookNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book, err := bookArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.CreateNote(ctx, book, req.GetBool("force", false))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Path)), nil
}

func (s *Server) searchLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) listBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListBooks(ctx,
		req.GetInt("limit", 0),
		req.GetInt("offset", 0),
		req.GetString("sort", ""),
	)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"books": items,
		"total": total,
	})
}

func (s *Server) getTemplateSyntax(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TemplateSyntax), nil
}

func (s *Server) readTemplateSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      templateSyntaxURI,
			MIMEType: "text/markdown",
			Text:     TemplateSyntax,
		},
	}, nil
}
