// Package corpus maps declaration keys to the files that hold them.
//
// The corpus is a directory of plain declaration files: one file per
// publication year under work/, plus a places.py file with shared place
// declarations. Keys follow the convention
// (last name of first author)(year)(sequential letter), e.g. "murta2014a".
package corpus

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/driftdb/snowdrift/internal/apperr"
)

var keyRe = regexp.MustCompile(`^(.*?)(\d{4})([a-z]*)$`)

// Key is a parsed declaration key.
type Key struct {
	Author string
	Year   int
	Suffix string
}

// String reassembles the key in its textual form.
func (k Key) String() string {
	return fmt.Sprintf("%s%d%s", k.Author, k.Year, k.Suffix)
}

// ParseKey splits a key into its convention parts. ok is false when the key
// does not carry an embedded four-digit year.
func ParseKey(key string) (Key, bool) {
	m := keyRe.FindStringSubmatch(key)
	if m == nil {
		return Key{}, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return Key{}, false
	}
	return Key{Author: m[1], Year: year, Suffix: m[3]}, true
}

// DiscoverYear returns the publication year for a key. An explicit year
// (non-zero) wins; otherwise the year embedded in the key is used.
func DiscoverYear(key string, year int) (int, error) {
	if year != 0 {
		return year, nil
	}
	k, ok := ParseKey(key)
	if !ok {
		return 0, fmt.Errorf("corpus: year required for key %q: %w", key, apperr.ErrNotFound)
	}
	return k.Year, nil
}

// YearFile returns the corpus-relative path of the file for a year.
func YearFile(year int) string {
	return path.Join("work", fmt.Sprintf("y%d.py", year))
}

// PlacesFile returns the corpus-relative path of the shared places file.
func PlacesFile() string {
	return "places.py"
}

// FileForKey returns the corpus-relative path of the file expected to hold
// the declaration for key.
func FileForKey(key string) (string, error) {
	year, err := DiscoverYear(key, 0)
	if err != nil {
		return "", err
	}
	return YearFile(year), nil
}

// IncrementSuffix returns the next sequential letter suffix: "" -> "a",
// "a" -> "b", "z" -> "aa", "az" -> "ba".
func IncrementSuffix(s string) string {
	trimmed := strings.TrimRight(s, "z")
	carried := len(s) - len(trimmed)
	next := trimmed
	if trimmed != "" {
		last := trimmed[len(trimmed)-1]
		next = trimmed[:len(trimmed)-1] + string(last+1)
	} else {
		next += "a"
	}
	return next + strings.Repeat("a", carried)
}

// NextKey returns the first key with the given author+year prefix that is not
// in taken. The first candidate uses the suffix "a".
func NextKey(prefix string, taken map[string]struct{}) string {
	suffix := "a"
	for {
		key := prefix + suffix
		if _, ok := taken[key]; !ok {
			return key
		}
		suffix = IncrementSuffix(suffix)
	}
}

// YearFileHeader is the boilerplate written at the top of a newly created
// year file so the corpus stays loadable as plain source.
const YearFileHeader = `# coding: utf-8
from datetime import datetime
from snowdrift.models import *
from ..places import *

`

// PlacesFileHeader is the boilerplate for a newly created places file.
const PlacesFileHeader = `# coding: utf-8
from snowdrift.models import *

`
