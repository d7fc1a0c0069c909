// Package models defines the domain types for snowdrift.
package models

import (
	"strconv"
	"time"

	"github.com/driftdb/snowdrift/internal/locator"
)

// Work is the metadata of one work declaration, extracted for indexing and
// listing. The declaration file stays the source of truth; a Work is always
// rebuildable from it.
type Work struct {
	Key       string    `json:"key"`
	Class     string    `json:"class"` // constructor name: Work, WorkSnowball, ...
	Year      int       `json:"year,omitempty"`
	Title     string    `json:"title,omitempty"`
	Display   string    `json:"display,omitempty"`
	Authors   string    `json:"authors,omitempty"`
	Place     string    `json:"place,omitempty"`
	Citations []string  `json:"citations,omitempty"`
	File      string    `json:"file"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Place is one venue declaration from the places file.
type Place struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// CitationEdge is one directed citation, source cites target.
type CitationEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

var workClasses = map[string]struct{}{
	"Work":          {},
	"WorkSnowball":  {},
	"WorkOk":        {},
	"WorkUnrelated": {},
	"WorkNoFile":    {},
	"WorkLang":      {},
	"Site":          {},
	"Email":         {},
}

// IsWorkClass reports whether the constructor names a work declaration.
func IsWorkClass(constructor string) bool {
	_, ok := workClasses[constructor]
	return ok
}

// IsPlaceClass reports whether the constructor names a place declaration.
func IsPlaceClass(constructor string) bool { return constructor == "Place" }

// IsCitationClass reports whether the constructor names a citation record.
func IsCitationClass(constructor string) bool { return constructor == "Citation" }

// WorkFromDeclaration extracts work metadata from a parsed declaration.
// Positional arguments follow the declaration convention: year first, title
// second. Keyword arguments override positionals when both are present.
func WorkFromDeclaration(path string, source []byte, d *locator.Declaration) Work {
	w := Work{
		Key:   d.Key,
		Class: d.Constructor,
		File:  path,
	}
	if len(d.Positional) > 0 && d.Positional[0].Kind == locator.ExprNumber {
		if y, err := strconv.Atoi(d.Positional[0].Text(source)); err == nil {
			w.Year = y
		}
	}
	if len(d.Positional) > 1 && d.Positional[1].Kind == locator.ExprString {
		w.Title = stringValue(source, d.Positional[1])
	}
	if kw := d.Keyword("year"); kw != nil && kw.Value.Kind == locator.ExprNumber {
		if y, err := strconv.Atoi(kw.Value.Text(source)); err == nil {
			w.Year = y
		}
	}
	for name, dst := range map[string]*string{
		"title":   &w.Title,
		"name":    &w.Title,
		"display": &w.Display,
		"authors": &w.Authors,
	} {
		if kw := d.Keyword(name); kw != nil && kw.Value.Kind == locator.ExprString {
			*dst = stringValue(source, kw.Value)
		}
	}
	if kw := d.Keyword("place"); kw != nil && kw.Value.Kind == locator.ExprName {
		w.Place = kw.Value.Name
	}
	if kw := d.Keyword("citations"); kw != nil && kw.Value.Kind == locator.ExprList {
		for _, el := range kw.Value.Elements {
			if el.Kind == locator.ExprName {
				w.Citations = append(w.Citations, el.Name)
			}
		}
	}
	return w
}

// PlaceFromDeclaration extracts place metadata from a parsed declaration.
// Place declarations take name and type as their first two arguments.
func PlaceFromDeclaration(source []byte, d *locator.Declaration) Place {
	p := Place{Key: d.Key}
	if len(d.Positional) > 0 && d.Positional[0].Kind == locator.ExprString {
		p.Name = stringValue(source, d.Positional[0])
	}
	if len(d.Positional) > 1 && d.Positional[1].Kind == locator.ExprString {
		p.Type = stringValue(source, d.Positional[1])
	}
	for name, dst := range map[string]*string{"name": &p.Name, "type": &p.Type} {
		if kw := d.Keyword(name); kw != nil && kw.Value.Kind == locator.ExprString {
			*dst = stringValue(source, kw.Value)
		}
	}
	return p
}

// CitationEdges returns the directed edges a declaration contributes: one per
// element of its citations list.
func CitationEdges(source []byte, d *locator.Declaration) []CitationEdge {
	kw := d.Keyword("citations")
	if kw == nil || kw.Value.Kind != locator.ExprList {
		return nil
	}
	var edges []CitationEdge
	for _, el := range kw.Value.Elements {
		if el.Kind == locator.ExprName {
			edges = append(edges, CitationEdge{Source: d.Key, Target: el.Name})
		}
	}
	return edges
}

// EdgeFromCall returns the edge of a standalone Citation(source, target, ...)
// statement, or false when the call does not have two name arguments.
func EdgeFromCall(call *locator.CallInfo) (CitationEdge, bool) {
	if !IsCitationClass(call.Constructor) || len(call.Args) < 2 {
		return CitationEdge{}, false
	}
	if call.Args[0].Kind != locator.ExprName || call.Args[1].Kind != locator.ExprName {
		return CitationEdge{}, false
	}
	return CitationEdge{Source: call.Args[0].Name, Target: call.Args[1].Name}, true
}

// stringValue returns a string literal's content without its quotes. Only the
// plain single-part forms are unquoted; anything else comes back verbatim.
func stringValue(source []byte, e locator.Expr) string {
	s := e.Text(source)
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"',
			s[0] == '\'' && s[len(s)-1] == '\'':
			return s[1 : len(s)-1]
		}
	}
	return s
}
