// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the corpus operations for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/driftdb/snowdrift/internal/index"
	"github.com/driftdb/snowdrift/internal/manager"
)

// rawFields mirror the REST quote policy: these attribute values are
// declaration source as-is, everything else becomes a string literal.
var rawFields = map[string]struct{}{
	"year":      {},
	"class":     {},
	"place":     {},
	"snowball":  {},
	"citations": {},
}

// Server wraps the MCP server with corpus tools.
type Server struct {
	mcp *server.MCPServer
	mgr *manager.Manager
	db  index.WorkIndex
	// onChange runs after every successful mutation (index sync hook).
	onChange func()
}

// New creates a new MCP server with all corpus tools registered.
func New(mgr *manager.Manager, db index.WorkIndex, onChange func()) *Server {
	s := &Server{mgr: mgr, db: db, onChange: onChange}

	s.mcp = server.NewMCPServer(
		"Snowdrift",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_works",
		mcp.WithDescription("Full-text search over work titles, authors, and display names."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchWorks)

	s.mcp.AddTool(mcp.NewTool("read_work",
		mcp.WithDescription("Read a work's metadata and its exact declaration text."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Work key (e.g. murta2014a)")),
	), s.readWork)

	s.mcp.AddTool(mcp.NewTool("insert_work",
		mcp.WithDescription("Insert a new work declaration. The key is derived from author and "+
			"year; a near-identical title in the same year returns the existing key instead. "+
			"Read the declaration format first via get_declaration_contract or the "+
			"snowdrift://declaration-format resource."),
		mcp.WithString("author", mcp.Required(), mcp.Description("First author's last name, lowercase")),
		mcp.WithNumber("year", mcp.Required(), mcp.Description("Publication year")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Full title")),
		mcp.WithString("class", mcp.Description("Work class (Work, WorkSnowball, WorkOk, WorkUnrelated, ...)")),
		mcp.WithString("display", mcp.Description("Short display name")),
		mcp.WithString("authors", mcp.Description("Full author list")),
		mcp.WithString("place", mcp.Description("Place key from places.py (bare reference, e.g. IPAW)")),
	), s.insertWork)

	s.mcp.AddTool(mcp.NewTool("set_attribute",
		mcp.WithDescription("Set one attribute of a work declaration, replacing or synthesizing "+
			"the keyword argument. String fields are quoted automatically; year, class, place, "+
			"snowball, and citations pass through as declaration source."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Work key")),
		mcp.WithString("field", mcp.Required(), mcp.Description("Attribute name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Attribute value")),
	), s.setAttribute)

	s.mcp.AddTool(mcp.NewTool("insert_citation",
		mcp.WithDescription("Record that source cites target. Adds target to the source work's "+
			"citations list; inserting an existing edge is a no-op."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Citing work key")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Cited work key")),
	), s.insertCitation)

	s.mcp.AddTool(mcp.NewTool("rename_work",
		mcp.WithDescription("Rename a work and update every reference to it across the whole "+
			"corpus as one atomic batch."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Current work key")),
		mcp.WithString("new_key", mcp.Required(), mcp.Description("New work key")),
	), s.renameWork)

	s.mcp.AddTool(mcp.NewTool("get_cited_by",
		mcp.WithDescription("List the works citing the given work."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Work key")),
	), s.getCitedBy)

	s.mcp.AddTool(mcp.NewTool("get_declaration_contract",
		mcp.WithDescription("Returns the canonical corpus declaration format. Call this before "+
			"inserting or editing works."),
	), s.getDeclarationContract)

	// Resource: declaration format contract.
	s.mcp.AddResource(
		mcp.NewResource("snowdrift://declaration-format", "Declaration Format Contract",
			mcp.WithResourceDescription("Canonical declaration-file format for the corpus."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Server) searchWorks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	work, decl, err := s.mgr.ReadWork(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", key)), nil
	}
	meta, _ := json.MarshalIndent(work, "", "  ")
	return mcp.NewToolResultText(string(meta) + "\n\n" + decl), nil
}

func (s *Server) insertWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	year, err := req.RequireInt("year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	attrs := make(map[string]string)
	for _, field := range []string{"display", "authors", "place"} {
		if v := req.GetString(field, ""); v != "" {
			attrs[field] = quoteAttr(field, v)
		}
	}
	res, err := s.mgr.InsertWork(ctx, manager.NewWork{
		Author: author,
		Year:   year,
		Title:  title,
		Class:  req.GetString("class", ""),
		Attrs:  attrs,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Modified) > 0 {
		s.changed()
	}
	if res.Existing {
		return mcp.NewToolResultText(fmt.Sprintf("already exists as: %s", res.Key)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", res.Key)), nil
}

func (s *Server) setAttribute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.mgr.SetAttribute(ctx, key, field, quoteAttr(field, value))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Modified) > 0 {
		s.changed()
	}
	return mcp.NewToolResultText(fmt.Sprintf("set %s on %s (modified: %s)",
		field, key, strings.Join(res.Modified, ", "))), nil
}

func (s *Server) insertCitation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.mgr.InsertCitation(ctx, source, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Modified) > 0 {
		s.changed()
	}
	if res.Existing {
		return mcp.NewToolResultText(fmt.Sprintf("%s already cites %s", source, target)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s now cites %s", source, target)), nil
}

func (s *Server) renameWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newKey, err := req.RequireString("new_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.mgr.RenameWork(ctx, key, newKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.changed()
	return mcp.NewToolResultText(fmt.Sprintf("renamed %s to %s (modified: %s)",
		key, newKey, strings.Join(res.Modified, ", "))), nil
}

func (s *Server) getCitedBy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	citedBy, err := s.db.CitedBy(key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(citedBy) == 0 {
		return mcp.NewToolResultText("no citing works found"), nil
	}
	return mcp.NewToolResultText(strings.Join(citedBy, "\n")), nil
}

func (s *Server) getDeclarationContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DeclarationFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "snowdrift://declaration-format",
			MIMEType: "text/markdown",
			Text:     DeclarationFormatContract,
		},
	}, nil
}

// quoteAttr applies the attribute quote policy.
func quoteAttr(field, value string) string {
	if _, ok := rawFields[field]; ok {
		return value
	}
	return strconv.Quote(value)
}
