package corpus

import (
	"errors"
	"testing"

	"github.com/driftdb/snowdrift/internal/apperr"
)

func TestParseKey(t *testing.T) {
	k, ok := ParseKey("murta2014a")
	if !ok {
		t.Fatal("expected key to parse")
	}
	if k.Author != "murta" || k.Year != 2014 || k.Suffix != "a" {
		t.Errorf("parsed = %+v", k)
	}
	if k.String() != "murta2014a" {
		t.Errorf("String() = %q", k.String())
	}
}

func TestParseKey_NoSuffix(t *testing.T) {
	k, ok := ParseKey("pimentel2016")
	if !ok {
		t.Fatal("expected key to parse")
	}
	if k.Suffix != "" {
		t.Errorf("suffix = %q, want empty", k.Suffix)
	}
}

func TestParseKey_Invalid(t *testing.T) {
	if _, ok := ParseKey("invalid"); ok {
		t.Error("key without year should not parse")
	}
}

func TestDiscoverYear(t *testing.T) {
	y, err := DiscoverYear("murta2014a", 0)
	if err != nil {
		t.Fatalf("DiscoverYear: %v", err)
	}
	if y != 2014 {
		t.Errorf("year = %d, want 2014", y)
	}

	// Explicit year wins over the embedded one.
	y, err = DiscoverYear("murta2014a", 2015)
	if err != nil {
		t.Fatalf("DiscoverYear: %v", err)
	}
	if y != 2015 {
		t.Errorf("year = %d, want 2015", y)
	}
}

func TestDiscoverYear_Invalid(t *testing.T) {
	_, err := DiscoverYear("invalid", 0)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestYearFile(t *testing.T) {
	if got := YearFile(2017); got != "work/y2017.py" {
		t.Errorf("YearFile = %q", got)
	}
}

func TestFileForKey(t *testing.T) {
	got, err := FileForKey("murta2014a")
	if err != nil {
		t.Fatalf("FileForKey: %v", err)
	}
	if got != "work/y2014.py" {
		t.Errorf("file = %q", got)
	}
	if _, err := FileForKey("nodigits"); err == nil {
		t.Error("expected error for key without year")
	}
}

func TestIncrementSuffix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "a"},
		{"a", "b"},
		{"y", "z"},
		{"z", "aa"},
		{"az", "ba"},
		{"zz", "aaa"},
	}
	for _, c := range cases {
		if got := IncrementSuffix(c.in); got != c.want {
			t.Errorf("IncrementSuffix(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNextKey(t *testing.T) {
	taken := map[string]struct{}{
		"murta2014a": {},
		"murta2014b": {},
	}
	if got := NextKey("murta2014", taken); got != "murta2014c" {
		t.Errorf("NextKey = %q, want murta2014c", got)
	}
	if got := NextKey("freire2015", taken); got != "freire2015a" {
		t.Errorf("NextKey = %q, want freire2015a", got)
	}
}
