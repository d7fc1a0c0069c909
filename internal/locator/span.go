package locator

// Span is a half-open [Start, End) byte range into a file's original text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Text returns the bytes the span covers in source.
func (s Span) Text(source []byte) string {
	if s.Start < 0 || s.End > len(source) || s.Start > s.End {
		return ""
	}
	return string(source[s.Start:s.End])
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}
