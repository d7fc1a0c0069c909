package manager

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/driftdb/snowdrift/internal/apperr"
	"github.com/driftdb/snowdrift/internal/corpus"
	"github.com/driftdb/snowdrift/internal/editor"
	"github.com/driftdb/snowdrift/internal/locator"
	"github.com/driftdb/snowdrift/internal/models"
)

// similarTitle is the similarity ratio above which two titles are treated as
// the same work.
const similarTitle = 0.9

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewWork describes a work to insert. Attrs values are literal declaration
// source text: string fields arrive already quoted, place references and
// year numbers arrive bare.
type NewWork struct {
	Author string            `json:"author"` // key prefix: first author's last name, lowercase
	Year   int               `json:"year"`
	Title  string            `json:"title"`
	Class  string            `json:"class,omitempty"` // defaults to Work
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// preferred attribute order for rendered declarations; anything else follows
// alphabetically.
var attrOrder = []string{"display", "authors", "place"}

// InsertWork derives the next free key for the work's author and year, renders
// the declaration, and inserts it into the year file in key order. A work in
// the same year file whose title is nearly identical short-circuits the insert
// and reports the existing key instead.
func (m *Manager) InsertWork(_ context.Context, in NewWork) (*Result, error) {
	if in.Author == "" || in.Year == 0 || in.Title == "" {
		return nil, fmt.Errorf("manager: insert work: author, year, and title are required")
	}
	class := in.Class
	if class == "" {
		class = "Work"
	}
	if !models.IsWorkClass(class) {
		return nil, fmt.Errorf("manager: unknown work class %q: %w", class, apperr.ErrNotFound)
	}
	for name := range in.Attrs {
		if !fieldRe.MatchString(name) {
			return nil, fmt.Errorf("manager: invalid attribute name %q", name)
		}
	}

	parsed, err := m.readAll()
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{})
	for _, cf := range parsed {
		for _, k := range cf.file.Keys() {
			taken[k] = struct{}{}
		}
	}

	path := corpus.YearFile(in.Year)
	target, ok := parsed[path]
	if !ok {
		f, err := locator.Parse(path, []byte(corpus.YearFileHeader))
		if err != nil {
			return nil, err
		}
		target = &corpusFile{file: f}
	}

	// A near-identical title in the same year is the same work.
	for i := range target.file.Statements {
		d := target.file.Statements[i].Decl
		if d == nil || !models.IsWorkClass(d.Constructor) {
			continue
		}
		w := models.WorkFromDeclaration(path, target.file.Source, d)
		if titleRatio(w.Title, in.Title) >= similarTitle {
			return &Result{Key: d.Key, Existing: true, Modified: []string{}}, nil
		}
	}

	key := corpus.NextKey(fmt.Sprintf("%s%d", strings.ToLower(in.Author), in.Year), taken)

	b := editor.NewBatch(target.file)
	if err := b.InsertDeclaration(key, renderWork(key, class, in), editor.InsertOptions{}); err != nil {
		return nil, err
	}
	modified, err := m.applyAndWrite(
		map[string]*editor.Batch{path: b},
		map[string]bool{path: target.crlf},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Key: key, Modified: modified}, nil
}

// InsertCitation adds target to source's citations list, synthesizing the
// keyword argument when the declaration has none. Inserting an edge that
// already exists is a no-op.
func (m *Manager) InsertCitation(_ context.Context, source, target string) (*Result, error) {
	if source == target {
		return nil, fmt.Errorf("manager: %q cannot cite itself: %w", source, apperr.ErrConflict)
	}
	if ok, err := m.exists(target); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("manager: citation target %q: %w", target, apperr.ErrNotFound)
	}

	path, cf, err := m.locate(source)
	if err != nil {
		return nil, err
	}
	decl := cf.file.Declaration(source).Decl

	b := editor.NewBatch(cf.file)
	kw := decl.Keyword("citations")
	switch {
	case kw == nil:
		b.AddKeyword(decl, "citations", "["+target+"]")
	case kw.Value.Kind != locator.ExprList:
		return nil, fmt.Errorf("manager: %q: citations is not a list: %w", source, apperr.ErrConflict)
	default:
		for _, el := range kw.Value.Elements {
			if el.Kind == locator.ExprName && el.Name == target {
				return &Result{Key: source, Existing: true, Modified: []string{}}, nil
			}
		}
		if err := b.AppendListElement(kw, target); err != nil {
			return nil, err
		}
	}

	modified, err := m.applyAndWrite(
		map[string]*editor.Batch{path: b},
		map[string]bool{path: cf.crlf},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Key: source, Modified: modified}, nil
}

// RemoveSourceCitation removes target from source's citations list. Removing
// the last element removes the whole keyword argument, never leaving an empty
// list literal behind.
func (m *Manager) RemoveSourceCitation(_ context.Context, source, target string) (*Result, error) {
	path, cf, err := m.locate(source)
	if err != nil {
		return nil, err
	}
	decl := cf.file.Declaration(source).Decl
	kw := decl.Keyword("citations")
	if kw == nil || kw.Value.Kind != locator.ExprList {
		return nil, fmt.Errorf("manager: %q does not cite %q: %w", source, target, apperr.ErrNotFound)
	}

	b := editor.NewBatch(cf.file)
	if !removeCitationRefs(b, decl, kw, target) {
		return nil, fmt.Errorf("manager: %q does not cite %q: %w", source, target, apperr.ErrNotFound)
	}
	modified, err := m.applyAndWrite(
		map[string]*editor.Batch{path: b},
		map[string]bool{path: cf.crlf},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Key: source, Modified: modified}, nil
}

// RemoveTargetCitation removes every citation of target across the whole
// corpus as one all-or-nothing batch. The target declaration itself stays.
func (m *Manager) RemoveTargetCitation(_ context.Context, target string) (*Result, error) {
	parsed, err := m.readAll()
	if err != nil {
		return nil, err
	}

	batches := make(map[string]*editor.Batch)
	crlf := make(map[string]bool)
	found := false
	for path, cf := range parsed {
		b := editor.NewBatch(cf.file)
		for i := range cf.file.Statements {
			d := cf.file.Statements[i].Decl
			if d == nil || d.Key == target {
				continue
			}
			kw := d.Keyword("citations")
			if kw == nil || kw.Value.Kind != locator.ExprList {
				continue
			}
			if removeCitationRefs(b, d, kw, target) {
				found = true
			}
		}
		batches[path] = b
		crlf[path] = cf.crlf
	}
	if !found {
		return nil, fmt.Errorf("manager: no citations of %q: %w", target, apperr.ErrNotFound)
	}

	modified, err := m.applyAndWrite(batches, crlf)
	if err != nil {
		return nil, err
	}
	return &Result{Key: target, Modified: modified}, nil
}

// RenameWork renames a declaration and every reference to it, across every
// corpus file, as one all-or-nothing batch. The declaration stays in its
// file even when the new key embeds a different year.
func (m *Manager) RenameWork(_ context.Context, oldKey, newKey string) (*Result, error) {
	if !fieldRe.MatchString(newKey) {
		return nil, fmt.Errorf("manager: invalid key %q", newKey)
	}
	parsed, err := m.readAll()
	if err != nil {
		return nil, err
	}
	for path, cf := range parsed {
		if cf.file.Declaration(newKey) != nil {
			return nil, fmt.Errorf("manager: %q already declared in %s: %w", newKey, path, apperr.ErrDuplicateKey)
		}
	}

	batches := make(map[string]*editor.Batch)
	crlf := make(map[string]bool)
	found := false
	for path, cf := range parsed {
		b := editor.NewBatch(cf.file)
		for i := range cf.file.Statements {
			stmt := &cf.file.Statements[i]
			switch {
			case stmt.Decl != nil:
				if stmt.Decl.Key == oldKey {
					b.Replace(stmt.Decl.KeySpan, newKey)
					found = true
				}
				for _, s := range locator.References(stmt.Decl, oldKey) {
					b.Replace(s, newKey)
				}
			case stmt.Call != nil:
				for _, s := range locator.CallReferences(stmt.Call, oldKey) {
					b.Replace(s, newKey)
				}
			}
		}
		batches[path] = b
		crlf[path] = cf.crlf
	}
	if !found {
		return nil, fmt.Errorf("manager: declaration %q: %w", oldKey, apperr.ErrNotFound)
	}

	modified, err := m.applyAndWrite(batches, crlf)
	if err != nil {
		return nil, err
	}
	return &Result{Key: newKey, Modified: modified}, nil
}

// SetAttribute replaces the value of one keyword argument, synthesizing the
// argument when the declaration has none. valueText is literal declaration
// source text. Setting an attribute to its current text is a no-op.
func (m *Manager) SetAttribute(_ context.Context, key, field, valueText string) (*Result, error) {
	if !fieldRe.MatchString(field) {
		return nil, fmt.Errorf("manager: invalid attribute name %q", field)
	}
	if strings.TrimSpace(valueText) == "" {
		return nil, fmt.Errorf("manager: empty value for attribute %q", field)
	}

	path, cf, err := m.locate(key)
	if err != nil {
		return nil, err
	}
	decl := cf.file.Declaration(key).Decl

	b := editor.NewBatch(cf.file)
	if kw := decl.Keyword(field); kw != nil {
		if kw.Value.Text(cf.file.Source) == valueText {
			return &Result{Key: key, Modified: []string{}}, nil
		}
		b.Replace(kw.Value.Span, valueText)
	} else {
		b.AddKeyword(decl, field, valueText)
	}

	modified, err := m.applyAndWrite(
		map[string]*editor.Batch{path: b},
		map[string]bool{path: cf.crlf},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Key: key, Modified: modified}, nil
}

// DeleteWork removes a declaration statement. Deletion is refused while any
// other declaration still references the key; callers remove the citations
// first (RemoveTargetCitation), keeping the corpus free of dangling names.
func (m *Manager) DeleteWork(_ context.Context, key string) (*Result, error) {
	parsed, err := m.readAll()
	if err != nil {
		return nil, err
	}

	var path string
	var owner *corpusFile
	for p, cf := range parsed {
		if cf.file.Declaration(key) != nil {
			path, owner = p, cf
			break
		}
	}
	if owner == nil {
		return nil, fmt.Errorf("manager: declaration %q: %w", key, apperr.ErrNotFound)
	}

	var referrers []string
	for _, cf := range parsed {
		for i := range cf.file.Statements {
			stmt := &cf.file.Statements[i]
			switch {
			case stmt.Decl != nil && stmt.Decl.Key != key:
				if len(locator.References(stmt.Decl, key)) > 0 {
					referrers = append(referrers, stmt.Decl.Key)
				}
			case stmt.Call != nil:
				if len(locator.CallReferences(stmt.Call, key)) > 0 {
					referrers = append(referrers, stmt.Call.Constructor+"(...)")
				}
			}
		}
	}
	if len(referrers) > 0 {
		sort.Strings(referrers)
		return nil, fmt.Errorf("manager: %q still referenced by %s: %w",
			key, strings.Join(referrers, ", "), apperr.ErrConflict)
	}

	b := editor.NewBatch(owner.file)
	b.DeleteStatement(owner.file.Declaration(key))
	modified, err := m.applyAndWrite(
		map[string]*editor.Batch{path: b},
		map[string]bool{path: owner.crlf},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Key: key, Modified: modified}, nil
}

// ReadWork returns the metadata and exact declaration text for a key.
func (m *Manager) ReadWork(_ context.Context, key string) (*models.Work, string, error) {
	path, cf, err := m.locate(key)
	if err != nil {
		return nil, "", err
	}
	stmt := cf.file.Declaration(key)
	w := models.WorkFromDeclaration(path, cf.file.Source, stmt.Decl)
	return &w, stmt.Span.Text(cf.file.Source), nil
}

// removeCitationRefs schedules removal of every element of kw naming target.
// When nothing would be left the whole keyword argument goes. Reports whether
// anything matched.
func removeCitationRefs(b *editor.Batch, decl *locator.Declaration, kw *locator.Keyword, target string) bool {
	elems := kw.Value.Elements
	matched := make([]bool, len(elems))
	count := 0
	for i, el := range elems {
		if el.Kind == locator.ExprName && el.Name == target {
			matched[i] = true
			count++
		}
	}
	if count == 0 {
		return false
	}
	if count == len(elems) {
		b.RemoveKeyword(decl, kw)
		return true
	}

	// Remove maximal runs of matched elements so separating commas go with
	// them exactly once.
	for i := 0; i < len(elems); {
		if !matched[i] {
			i++
			continue
		}
		j := i
		for j+1 < len(elems) && matched[j+1] {
			j++
		}
		if j < len(elems)-1 {
			b.Replace(locator.Span{Start: elems[i].Span.Start, End: elems[j+1].Span.Start}, "")
		} else {
			b.Replace(locator.Span{Start: elems[i-1].Span.End, End: elems[j].Span.End}, "")
		}
		i = j + 1
	}
	return true
}

// renderWork builds the declaration text for a new work: year and title as
// the conventional positional pair, then attributes one per line.
func renderWork(key, class string, in NewWork) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s = %s(\n    %d, %s,\n", key, class, in.Year, strconv.Quote(in.Title))

	written := make(map[string]bool, len(in.Attrs))
	emit := func(name string) {
		if v, ok := in.Attrs[name]; ok && !written[name] {
			fmt.Fprintf(&sb, "    %s=%s,\n", name, v)
			written[name] = true
		}
	}
	for _, name := range attrOrder {
		emit(name)
	}
	rest := make([]string, 0, len(in.Attrs))
	for name := range in.Attrs {
		if !written[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		emit(name)
	}
	sb.WriteString(")")
	return sb.String()
}

// titleRatio is the similarity of two titles, case-insensitive, on a 0..1
// scale.
func titleRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(
		strings.Split(strings.ToLower(a), ""),
		strings.Split(strings.ToLower(b), ""),
	)
	return m.Ratio()
}
