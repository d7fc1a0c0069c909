package editor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/driftdb/snowdrift/internal/apperr"
	"github.com/driftdb/snowdrift/internal/locator"
)

// lineStart returns the offset of the first byte of the line containing off.
func lineStart(source []byte, off int) int {
	for off > 0 && source[off-1] != '\n' {
		off--
	}
	return off
}

// lineEnd returns the offset just past the newline of the line containing
// off, or len(source) when the line is unterminated.
func lineEnd(source []byte, off int) int {
	for off < len(source) && source[off] != '\n' {
		off++
	}
	if off < len(source) {
		off++
	}
	return off
}

// blankLineRun returns the offset past every blank line starting at off.
func blankLineRun(source []byte, off int) int {
	for off < len(source) {
		end := lineEnd(source, off)
		if len(strings.TrimSpace(string(source[off:end]))) != 0 {
			break
		}
		off = end
	}
	return off
}

// Detect reports whether a declaration with the given key exists in the
// file. It never schedules an edit.
func Detect(f *locator.File, key string) bool {
	return f.Declaration(key) != nil
}

// DeleteStatement schedules removal of a whole statement, including its
// trailing newline and any blank lines that follow, so neighbours are not
// left separated by a double blank.
func (b *Batch) DeleteStatement(stmt *locator.Statement) {
	src := b.file.Source
	start := lineStart(src, stmt.Span.Start)
	end := blankLineRun(src, lineEnd(src, stmt.Span.End-1))
	b.Replace(locator.Span{Start: start, End: end}, "")
}

// InsertOptions controls statement placement.
type InsertOptions struct {
	// After names a declaration the new statement is placed directly after,
	// overriding sorted placement.
	After string
}

// InsertDeclaration schedules a new declaration statement. Default placement
// keeps declarations in key order: the statement goes before the first
// declaration with a greater key, or at end of file when none exists.
// The text must not carry its own trailing newline.
func (b *Batch) InsertDeclaration(key, text string, opts InsertOptions) error {
	src := b.file.Source

	if opts.After != "" {
		anchor := b.file.Declaration(opts.After)
		if anchor == nil {
			return fmt.Errorf("editor: %s: insertion anchor %q: %w", b.file.Path, opts.After, apperr.ErrNotFound)
		}
		off := blankLineRun(src, lineEnd(src, anchor.Span.End-1))
		b.insert(off, text+"\n\n")
		return nil
	}

	for i := range b.file.Statements {
		d := b.file.Statements[i].Decl
		if d != nil && d.Key > key {
			off := lineStart(src, b.file.Statements[i].Span.Start)
			b.insert(off, text+"\n\n")
			return nil
		}
	}

	// End of file: make sure exactly one blank line separates the new
	// statement from existing content.
	var prefix string
	switch {
	case len(src) == 0:
	case src[len(src)-1] != '\n':
		prefix = "\n\n"
	case !strings.HasSuffix(string(src), "\n\n"):
		prefix = "\n"
	}
	b.insert(len(src), prefix+text+"\n")
	return nil
}

// argSpans returns the source-ordered spans of all arguments of a call,
// positional and keyword alike.
func argSpans(decl *locator.Declaration) []locator.Span {
	var spans []locator.Span
	for _, p := range decl.Positional {
		spans = append(spans, p.Span)
	}
	for _, k := range decl.Keywords {
		spans = append(spans, k.Span)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// indentOf returns the leading whitespace of the line containing off.
func indentOf(source []byte, off int) string {
	start := lineStart(source, off)
	end := start
	for end < len(source) && (source[end] == ' ' || source[end] == '\t') {
		end++
	}
	return string(source[start:end])
}

// AddKeyword schedules a new keyword argument at the canonical position, the
// end of the argument list. The surrounding style is sampled from the call:
// one-argument-per-line calls get a full line, inline calls get ", k=v".
func (b *Batch) AddKeyword(decl *locator.Declaration, name, valueText string) {
	src := b.file.Source
	closeParen := decl.ArgListSpan.End - 1
	args := argSpans(decl)

	if len(args) == 0 {
		b.insert(decl.ArgListSpan.Start+1, name+"="+valueText)
		return
	}

	last := args[len(args)-1]
	tail := string(src[last.End:closeParen])
	multiline := strings.Contains(tail, "\n")
	hasComma := strings.Contains(tail, ",")

	if !multiline {
		if hasComma {
			b.insert(last.End+strings.Index(tail, ",")+1, " "+name+"="+valueText+",")
			return
		}
		b.insert(last.End, ", "+name+"="+valueText)
		return
	}

	indent := indentOf(src, args[0].Start)
	if !hasComma {
		b.insert(last.End, ",")
	}
	b.insert(lineStart(src, closeParen), indent+name+"="+valueText+",\n")
}

// AppendListElement schedules a new element at the end of a list-valued
// keyword argument, matching the list's existing formatting style.
func (b *Batch) AppendListElement(kw *locator.Keyword, element string) error {
	if kw.Value.Kind != locator.ExprList {
		return fmt.Errorf("editor: %s: keyword %q does not hold a list: %w", b.file.Path, kw.Name, apperr.ErrNotFound)
	}
	src := b.file.Source
	list := kw.Value

	if len(list.Elements) == 0 {
		b.insert(list.Span.Start+1, element)
		return nil
	}

	first := list.Elements[0]
	last := list.Elements[len(list.Elements)-1]
	head := string(src[list.Span.Start+1 : first.Span.Start])
	if strings.Contains(head, "\n") {
		indent := indentOf(src, first.Span.Start)
		b.insert(last.Span.End, ",\n"+indent+element)
		return nil
	}
	b.insert(last.Span.End, ", "+element)
	return nil
}

// RemoveListElement schedules removal of one list element together with its
// separating comma.
func (b *Batch) RemoveListElement(kw *locator.Keyword, index int) error {
	if kw.Value.Kind != locator.ExprList || index < 0 || index >= len(kw.Value.Elements) {
		return fmt.Errorf("editor: %s: list element %d of %q: %w", b.file.Path, index, kw.Name, apperr.ErrNotFound)
	}
	elems := kw.Value.Elements
	el := elems[index]
	if index < len(elems)-1 {
		b.Replace(locator.Span{Start: el.Span.Start, End: elems[index+1].Span.Start}, "")
		return nil
	}
	if index > 0 {
		b.Replace(locator.Span{Start: elems[index-1].Span.End, End: el.Span.End}, "")
		return nil
	}
	b.Replace(el.Span, "")
	return nil
}

// RemoveKeyword schedules removal of a whole keyword argument together with
// its separating comma.
func (b *Batch) RemoveKeyword(decl *locator.Declaration, kw *locator.Keyword) {
	args := argSpans(decl)
	idx := -1
	for i, s := range args {
		if s == kw.Span {
			idx = i
			break
		}
	}
	switch {
	case idx >= 0 && idx < len(args)-1:
		b.Replace(locator.Span{Start: kw.Span.Start, End: args[idx+1].Start}, "")
	case idx > 0:
		b.Replace(locator.Span{Start: args[idx-1].End, End: kw.Span.End}, "")
	default:
		b.Replace(kw.Span, "")
	}
}
