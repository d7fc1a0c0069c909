package locator

import (
	"errors"
	"testing"

	"github.com/driftdb/snowdrift/internal/apperr"
)

const sampleFile = `# coding: utf-8
from datetime import datetime
from snowdrift.models import *
from ..places import *

murta2014a = Work(
    2014, "noWorkflow: capturing provenance",
    display="noWorkflow",  # display name
    authors="Murta, Leonardo and Braganholo, Vanessa",
    place=IPAW,
    citations=[chirigati2013a, freire2012a],
)

freire2012a = Work(2012, "Provenance for computational tasks", display="freire")

Citation(murta2014a, freire2012a, ref="[1]")
`

func parseSample(t *testing.T) *File {
	t.Helper()
	f, err := Parse("work/y2014.py", []byte(sampleFile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func TestParse_Keys(t *testing.T) {
	f := parseSample(t)
	keys := f.Keys()
	if len(keys) != 2 || keys[0] != "murta2014a" || keys[1] != "freire2012a" {
		t.Errorf("keys = %v", keys)
	}
}

func TestParse_RawTextPreserved(t *testing.T) {
	f := parseSample(t)
	// Import statements are opaque raw statements, never declarations.
	raw := 0
	for i := range f.Statements {
		if f.Statements[i].Decl == nil && f.Statements[i].Call == nil {
			raw++
		}
	}
	if raw != 3 {
		t.Errorf("raw statements = %d, want 3 imports", raw)
	}
	// The original text is untouched by parsing.
	if string(f.Source) != sampleFile {
		t.Error("source must be the original bytes")
	}
}

func TestParse_DeclarationShape(t *testing.T) {
	f := parseSample(t)
	stmt := f.Declaration("murta2014a")
	if stmt == nil {
		t.Fatal("declaration not found")
	}
	d := stmt.Decl
	if d.Constructor != "Work" {
		t.Errorf("constructor = %q", d.Constructor)
	}
	if got := d.KeySpan.Text(f.Source); got != "murta2014a" {
		t.Errorf("key span text = %q", got)
	}
	if len(d.Positional) != 2 {
		t.Fatalf("positional args = %d, want 2", len(d.Positional))
	}
	if got := d.Positional[0].Text(f.Source); got != "2014" {
		t.Errorf("first positional = %q", got)
	}
	if d.Positional[1].Kind != ExprString {
		t.Errorf("second positional kind = %v, want string", d.Positional[1].Kind)
	}
}

func TestParse_KeywordSpans(t *testing.T) {
	f := parseSample(t)
	d := f.Declaration("murta2014a").Decl

	kw := d.Keyword("display")
	if kw == nil {
		t.Fatal("display keyword not found")
	}
	if got := kw.Value.Span.Text(f.Source); got != `"noWorkflow"` {
		t.Errorf("display value = %q", got)
	}
	if got := kw.Span.Text(f.Source); got != `display="noWorkflow"` {
		t.Errorf("display keyword span = %q", got)
	}

	if d.Keyword("missing") != nil {
		t.Error("unexpected keyword")
	}
}

func TestParse_ListElements(t *testing.T) {
	f := parseSample(t)
	d := f.Declaration("murta2014a").Decl
	kw := d.Keyword("citations")
	if kw == nil {
		t.Fatal("citations keyword not found")
	}
	if kw.Value.Kind != ExprList {
		t.Fatalf("citations kind = %v, want list", kw.Value.Kind)
	}
	if len(kw.Value.Elements) != 2 {
		t.Fatalf("elements = %d, want 2", len(kw.Value.Elements))
	}
	if got := kw.Value.Elements[0].Text(f.Source); got != "chirigati2013a" {
		t.Errorf("first element = %q", got)
	}
}

func TestParse_CallStatement(t *testing.T) {
	f := parseSample(t)
	var call *Statement
	for i := range f.Statements {
		if IsCallStatement(&f.Statements[i]) {
			call = &f.Statements[i]
		}
	}
	if call == nil {
		t.Fatal("call statement not found")
	}
	if call.Call.Constructor != "Citation" {
		t.Errorf("constructor = %q", call.Call.Constructor)
	}
	if len(call.Call.Args) != 2 {
		t.Errorf("positional args = %d, want 2", len(call.Call.Args))
	}
	spans := CallReferences(call.Call, "freire2012a")
	if len(spans) != 1 {
		t.Errorf("references = %d, want 1", len(spans))
	}
}

func TestIsAssignTo(t *testing.T) {
	f := parseSample(t)
	stmt := f.Declaration("freire2012a")
	if !IsAssignTo(stmt, "freire2012a") {
		t.Error("expected match")
	}
	if IsAssignTo(stmt, "murta2014a") {
		t.Error("unexpected match")
	}
	if IsAssignTo(&f.Statements[0], "murta2014a") {
		t.Error("raw statement must never match")
	}
}

func TestReferences_MultipleOccurrences(t *testing.T) {
	src := `a2020a = Work(2020, "x", citations=[b2019a, c2018a], note={"seen": b2019a}, related=b2019a)
`
	f, err := Parse("work/y2020.py", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d := f.Declaration("a2020a").Decl
	spans := References(d, "b2019a")
	if len(spans) != 3 {
		t.Fatalf("references = %d, want 3", len(spans))
	}
	for _, s := range spans {
		if got := s.Text(f.Source); got != "b2019a" {
			t.Errorf("span text = %q", got)
		}
	}
	// Occurrences come back in source order.
	for i := 1; i < len(spans); i++ {
		if spans[i].Start <= spans[i-1].Start {
			t.Error("spans out of source order")
		}
	}
}

func TestReferences_NotInStrings(t *testing.T) {
	src := `a2020a = Work(2020, "cites b2019a in the title", note="b2019a")
`
	f, err := Parse("work/y2020.py", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spans := References(f.Declaration("a2020a").Decl, "b2019a"); len(spans) != 0 {
		t.Errorf("string contents must not count as references, got %d", len(spans))
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse("work/y2014.py", []byte("murta2014a = Work(\n"))
	if !errors.Is(err, apperr.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestParse_NonDeclarationAssignment(t *testing.T) {
	// Assignments that are not a call of an identifier stay opaque.
	src := "x = 1\ny = [1, 2]\nz = obj.method()\n"
	f, err := Parse("misc.py", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if keys := f.Keys(); len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
}

func TestSpanOverlaps(t *testing.T) {
	a := Span{Start: 0, End: 10}
	if !a.Overlaps(Span{Start: 9, End: 12}) {
		t.Error("expected overlap")
	}
	if a.Overlaps(Span{Start: 10, End: 12}) {
		t.Error("adjacent spans do not overlap")
	}
}
