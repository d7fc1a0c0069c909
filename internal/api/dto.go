package api

import (
	"github.com/driftdb/snowdrift/internal/index"
	"github.com/driftdb/snowdrift/internal/manager"
	"github.com/driftdb/snowdrift/internal/models"
)

// InsertWorkRequest is the request body for inserting a work. Attribute
// values are plain strings; fields outside the raw set are quoted into
// string literals before they reach the declaration.
type InsertWorkRequest struct {
	Author string            `json:"author"`
	Year   int               `json:"year"`
	Title  string            `json:"title"`
	Class  string            `json:"class,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// SetAttributeRequest is the request body for setting one attribute.
type SetAttributeRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
	// Raw passes the value through as literal declaration source,
	// overriding the field-based quote policy.
	Raw bool `json:"raw,omitempty"`
}

// RenameWorkRequest is the request body for renaming a work.
type RenameWorkRequest struct {
	NewKey string `json:"new_key"`
}

// CitationRequest is the request body for inserting a citation edge.
type CitationRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// OperationResponse reports a logical operation's outcome (aliased from the
// domain layer).
type OperationResponse = manager.Result

// WorkDetail is the full work response: extracted metadata plus the exact
// declaration text.
type WorkDetail struct {
	Work        models.Work `json:"work"`
	Declaration string      `json:"declaration"`
}

// WorkListItem is one row in a list response.
type WorkListItem struct {
	Key     string `json:"key"`
	Class   string `json:"class"`
	Year    int    `json:"year"`
	Title   string `json:"title"`
	Display string `json:"display,omitempty"`
	Authors string `json:"authors,omitempty"`
	Place   string `json:"place,omitempty"`
	File    string `json:"file"`
}

// WorkListResponse wraps paginated work listings.
type WorkListResponse struct {
	Works []WorkListItem `json:"works"`
	Total int            `json:"total"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Key     string `json:"key"`
	File    string `json:"file"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// CitationsResponse lists both directions of a work's citation edges.
type CitationsResponse struct {
	Key     string   `json:"key"`
	Cites   []string `json:"cites"`
	CitedBy []string `json:"cited_by"`
}

// GraphResponse wraps the citation graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes"`
	Links []index.GraphLink `json:"links"`
}
