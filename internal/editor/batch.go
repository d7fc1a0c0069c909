// Package editor implements span-level edit operations over parsed
// declaration files.
//
// Every operation schedules edits against the file's original bytes; nothing
// is written until the whole batch is validated. Apply splices the edited
// ranges into a copy of the original text, so untouched bytes survive
// byte-for-byte.
package editor

import (
	"fmt"
	"sort"

	"github.com/driftdb/snowdrift/internal/apperr"
	"github.com/driftdb/snowdrift/internal/locator"
)

// Edit is one scheduled text replacement. old records the text the span
// covered when the edit was located; it is re-checked at apply time.
type Edit struct {
	Span locator.Span
	Text string
	old  string
}

// Batch collects the edits of one logical operation against a single file.
// Operations are located first (read-only), validated for span conflicts,
// and applied together; a failed batch touches nothing.
type Batch struct {
	file  *locator.File
	edits []Edit
}

// NewBatch creates an empty batch over a parsed file.
func NewBatch(f *locator.File) *Batch {
	return &Batch{file: f}
}

// File returns the file the batch edits.
func (b *Batch) File() *locator.File { return b.file }

// Empty reports whether no edits are scheduled.
func (b *Batch) Empty() bool { return len(b.edits) == 0 }

// Replace schedules span to be replaced by text.
func (b *Batch) Replace(span locator.Span, text string) {
	b.edits = append(b.edits, Edit{
		Span: span,
		Text: text,
		old:  span.Text(b.file.Source),
	})
}

// insert schedules a zero-width edit at offset.
func (b *Batch) insert(offset int, text string) {
	b.edits = append(b.edits, Edit{
		Span: locator.Span{Start: offset, End: offset},
		Text: text,
	})
}

// Validate checks all scheduled edits for span conflicts. Two edits may not
// overlap; a zero-width insert inside a replaced range is a conflict too.
func (b *Batch) Validate() error {
	sorted := make([]Edit, len(b.edits))
	copy(sorted, b.edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Span.Start < sorted[j].Span.Start })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Span.Overlaps(cur.Span) {
			return fmt.Errorf("editor: %s: edits at [%d,%d) and [%d,%d) overlap: %w",
				b.file.Path, prev.Span.Start, prev.Span.End, cur.Span.Start, cur.Span.End,
				apperr.ErrSpanConflict)
		}
	}
	return nil
}

// Apply validates the batch, re-checks every located span against the
// original text, and returns the spliced result. The file itself is not
// mutated; callers decide what to do with the output.
func (b *Batch) Apply() ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	for _, e := range b.edits {
		// Zero-width inserts located nothing, so there is nothing to re-check.
		if e.Span.Len() > 0 && e.Span.Text(b.file.Source) != e.old {
			return nil, fmt.Errorf("editor: %s: span [%d,%d) changed since locate: %w",
				b.file.Path, e.Span.Start, e.Span.End, apperr.ErrStaleState)
		}
	}

	sorted := make([]Edit, len(b.edits))
	copy(sorted, b.edits)
	// Apply back to front so earlier offsets stay valid.
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Span.Start > sorted[j].Span.Start })

	out := make([]byte, len(b.file.Source))
	copy(out, b.file.Source)
	for _, e := range sorted {
		out = append(out[:e.Span.Start], append([]byte(e.Text), out[e.Span.End:]...)...)
	}
	return out, nil
}
