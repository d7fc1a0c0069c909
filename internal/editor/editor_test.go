package editor

import (
	"errors"
	"strings"
	"testing"

	"github.com/driftdb/snowdrift/internal/apperr"
	"github.com/driftdb/snowdrift/internal/locator"
)

func parse(t *testing.T, src string) *locator.File {
	t.Helper()
	f, err := locator.Parse("work/y2020.py", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func apply(t *testing.T, b *Batch) string {
	t.Helper()
	out, err := b.Apply()
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return string(out)
}

func TestApply_NoEditsRoundTrip(t *testing.T) {
	src := "# header\n\nwork2020a = Work(title=\"X\")  # note\n\nwork2020b = Work(title=\"Y\")\n"
	b := NewBatch(parse(t, src))
	if got := apply(t, b); got != src {
		t.Errorf("zero-edit apply must be byte-identical\ngot:  %q\nwant: %q", got, src)
	}
}

func TestReplace_SingleArgument(t *testing.T) {
	src := "work2020a = Work(title=\"X\", display=\"old\")  # keep me\n"
	f := parse(t, src)
	b := NewBatch(f)
	kw := f.Declaration("work2020a").Decl.Keyword("display")
	b.Replace(kw.Value.Span, `"new"`)
	got := apply(t, b)
	want := "work2020a = Work(title=\"X\", display=\"new\")  # keep me\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApply_SpanConflict(t *testing.T) {
	src := "work2020a = Work(title=\"X\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	d := f.Declaration("work2020a").Decl
	b.Replace(d.KeySpan, "work2020b")
	b.Replace(locator.Span{Start: d.KeySpan.Start + 2, End: d.KeySpan.End + 2}, "x")
	_, err := b.Apply()
	if !errors.Is(err, apperr.ErrSpanConflict) {
		t.Fatalf("expected ErrSpanConflict, got %v", err)
	}
}

func TestApply_StaleSpan(t *testing.T) {
	src := "work2020a = Work(title=\"X\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	b.Replace(f.Declaration("work2020a").Decl.KeySpan, "work2020b")
	// Simulate the file changing between locate and apply.
	copy(f.Source, []byte("WORK2020A"))
	_, err := b.Apply()
	if !errors.Is(err, apperr.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
}

func TestApply_ZeroWidthInsertSkipsStaleCheck(t *testing.T) {
	src := "work2020a = Work(title=\"X\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	// A zero-width span located nothing, so a concurrent change elsewhere in
	// the line must not trip the stale re-check.
	b.Replace(locator.Span{Start: 0, End: 0}, "# generated\n")
	copy(f.Source, []byte("WORK2020A"))
	got, err := b.Apply()
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.HasPrefix(string(got), "# generated\n") {
		t.Errorf("got %q", got)
	}
}

func TestDeleteStatement_NoDoubleBlank(t *testing.T) {
	src := "# header\n\nwork2020a = Work(title=\"A\")\n\nwork2020b = Work(title=\"B\")\n\nwork2020c = Work(title=\"C\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	b.DeleteStatement(f.Declaration("work2020b"))
	got := apply(t, b)
	want := "# header\n\nwork2020a = Work(title=\"A\")\n\nwork2020c = Work(title=\"C\")\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Error("delete left a double blank line")
	}
}

func TestDeleteStatement_Multiline(t *testing.T) {
	src := "a2020a = Work(\n    2020, \"T\",\n    display=\"a\",\n)\n\nb2020a = Work(title=\"B\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	b.DeleteStatement(f.Declaration("a2020a"))
	got := apply(t, b)
	if got != "b2020a = Work(title=\"B\")\n" {
		t.Errorf("got %q", got)
	}
}

func TestInsertDeclaration_SortedPlacement(t *testing.T) {
	src := "# header\n\nwork2020a = Work(title=\"A\")\n\nwork2020c = Work(title=\"C\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	if err := b.InsertDeclaration("work2020b", "work2020b = Work(title=\"B\")", InsertOptions{}); err != nil {
		t.Fatalf("InsertDeclaration: %v", err)
	}
	got := apply(t, b)
	want := "# header\n\nwork2020a = Work(title=\"A\")\n\nwork2020b = Work(title=\"B\")\n\nwork2020c = Work(title=\"C\")\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertDeclaration_EndOfFile(t *testing.T) {
	src := "work2020a = Work(title=\"A\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	if err := b.InsertDeclaration("work2020z", "work2020z = Work(title=\"Z\")", InsertOptions{}); err != nil {
		t.Fatalf("InsertDeclaration: %v", err)
	}
	got := apply(t, b)
	want := "work2020a = Work(title=\"A\")\n\nwork2020z = Work(title=\"Z\")\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertDeclaration_AfterAnchor(t *testing.T) {
	src := "work2020a = Work(title=\"A\")\n\nwork2020b = Work(title=\"B\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	if err := b.InsertDeclaration("zzz2020a", "zzz2020a = Work(title=\"Z\")", InsertOptions{After: "work2020a"}); err != nil {
		t.Fatalf("InsertDeclaration: %v", err)
	}
	got := apply(t, b)
	want := "work2020a = Work(title=\"A\")\n\nzzz2020a = Work(title=\"Z\")\n\nwork2020b = Work(title=\"B\")\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertDeclaration_MissingAnchor(t *testing.T) {
	f := parse(t, "work2020a = Work(title=\"A\")\n")
	b := NewBatch(f)
	err := b.InsertDeclaration("x2020a", "x2020a = Work()", InsertOptions{After: "nope2020a"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddKeyword_InlineCall(t *testing.T) {
	src := "work2021a = Work(title=\"Y\")\n"
	f := parse(t, src)
	b := NewBatch(f)
	b.AddKeyword(f.Declaration("work2021a").Decl, "citations", "[work2020b]")
	got := apply(t, b)
	want := "work2021a = Work(title=\"Y\", citations=[work2020b])\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAddKeyword_MultilineCall(t *testing.T) {
	src := "work2021a = Work(\n    2021, \"Y\",\n    display=\"y\",\n)\n"
	f := parse(t, src)
	b := NewBatch(f)
	b.AddKeyword(f.Declaration("work2021a").Decl, "citations", "[work2020b]")
	got := apply(t, b)
	want := "work2021a = Work(\n    2021, \"Y\",\n    display=\"y\",\n    citations=[work2020b],\n)\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAddKeyword_MultilineNoTrailingComma(t *testing.T) {
	src := "work2021a = Work(\n    2021, \"Y\",\n    display=\"y\"\n)\n"
	f := parse(t, src)
	b := NewBatch(f)
	b.AddKeyword(f.Declaration("work2021a").Decl, "tracking", `"alert"`)
	got := apply(t, b)
	want := "work2021a = Work(\n    2021, \"Y\",\n    display=\"y\",\n    tracking=\"alert\",\n)\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAddKeyword_EmptyArgs(t *testing.T) {
	src := "p = Place()\n"
	f := parse(t, src)
	b := NewBatch(f)
	b.AddKeyword(f.Declaration("p").Decl, "name", `"IPAW"`)
	got := apply(t, b)
	if got != "p = Place(name=\"IPAW\")\n" {
		t.Errorf("got %q", got)
	}
}

func TestAppendListElement_Inline(t *testing.T) {
	src := "work2021a = Work(title=\"Y\", citations=[work2020a])\n"
	f := parse(t, src)
	b := NewBatch(f)
	kw := f.Declaration("work2021a").Decl.Keyword("citations")
	if err := b.AppendListElement(kw, "work2019a"); err != nil {
		t.Fatalf("AppendListElement: %v", err)
	}
	got := apply(t, b)
	want := "work2021a = Work(title=\"Y\", citations=[work2020a, work2019a])\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAppendListElement_OnePerLine(t *testing.T) {
	src := "work2021a = Work(\n    title=\"Y\",\n    citations=[\n        work2020a,\n    ],\n)\n"
	f := parse(t, src)
	b := NewBatch(f)
	kw := f.Declaration("work2021a").Decl.Keyword("citations")
	if err := b.AppendListElement(kw, "work2019a"); err != nil {
		t.Fatalf("AppendListElement: %v", err)
	}
	got := apply(t, b)
	want := "work2021a = Work(\n    title=\"Y\",\n    citations=[\n        work2020a,\n        work2019a,\n    ],\n)\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAppendListElement_EmptyList(t *testing.T) {
	src := "work2021a = Work(title=\"Y\", citations=[])\n"
	f := parse(t, src)
	b := NewBatch(f)
	kw := f.Declaration("work2021a").Decl.Keyword("citations")
	if err := b.AppendListElement(kw, "work2020a"); err != nil {
		t.Fatalf("AppendListElement: %v", err)
	}
	got := apply(t, b)
	if got != "work2021a = Work(title=\"Y\", citations=[work2020a])\n" {
		t.Errorf("got %q", got)
	}
}

func TestAppendListElement_NotAList(t *testing.T) {
	f := parse(t, "work2021a = Work(title=\"Y\")\n")
	b := NewBatch(f)
	kw := f.Declaration("work2021a").Decl.Keyword("title")
	if err := b.AppendListElement(kw, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveListElement(t *testing.T) {
	src := "w = Work(citations=[a2018a, b2017a, c2016a])\n"
	f := parse(t, src)

	// Middle element.
	b := NewBatch(f)
	kw := f.Declaration("w").Decl.Keyword("citations")
	if err := b.RemoveListElement(kw, 1); err != nil {
		t.Fatalf("RemoveListElement: %v", err)
	}
	if got := apply(t, b); got != "w = Work(citations=[a2018a, c2016a])\n" {
		t.Errorf("middle: got %q", got)
	}

	// Last element.
	b = NewBatch(f)
	if err := b.RemoveListElement(kw, 2); err != nil {
		t.Fatalf("RemoveListElement: %v", err)
	}
	if got := apply(t, b); got != "w = Work(citations=[a2018a, b2017a])\n" {
		t.Errorf("last: got %q", got)
	}

	// First element.
	b = NewBatch(f)
	if err := b.RemoveListElement(kw, 0); err != nil {
		t.Fatalf("RemoveListElement: %v", err)
	}
	if got := apply(t, b); got != "w = Work(citations=[b2017a, c2016a])\n" {
		t.Errorf("first: got %q", got)
	}
}

func TestRemoveKeyword(t *testing.T) {
	src := "w = Work(2020, \"T\", display=\"d\", citations=[a2018a])\n"
	f := parse(t, src)
	d := f.Declaration("w").Decl

	b := NewBatch(f)
	b.RemoveKeyword(d, d.Keyword("citations"))
	if got := apply(t, b); got != "w = Work(2020, \"T\", display=\"d\")\n" {
		t.Errorf("last keyword: got %q", got)
	}

	b = NewBatch(f)
	b.RemoveKeyword(d, d.Keyword("display"))
	if got := apply(t, b); got != "w = Work(2020, \"T\", citations=[a2018a])\n" {
		t.Errorf("middle keyword: got %q", got)
	}
}

func TestDetect(t *testing.T) {
	f := parse(t, "work2020a = Work(title=\"X\")\n")
	if !Detect(f, "work2020a") {
		t.Error("expected detect hit")
	}
	if Detect(f, "work2020b") {
		t.Error("unexpected detect hit")
	}
}
