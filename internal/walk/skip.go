package walk

import (
	"strings"
)

// DefaultSkipDirs are directory names never worth descending into when
// looking for user artifacts. Matching is case insensitive and applies to any
// path component.
var DefaultSkipDirs = []string{
	"windows",
	"$recycle.bin",
	"system volume information",
	"program files",
	"program files (x86)",
	"programdata",
	"node_modules",
	".git",
	".cache",
	"caches",
	"winsxs",
}

var defaultSkip = SkipFunc(DefaultSkipDirs)

// ShouldSkipDirectory reports whether any component of path is in DefaultSkipDirs.
// Both / and \ are treated as separators.
func ShouldSkipDirectory(path string) bool {
	return defaultSkip(path)
}

// SkipFunc returns a skip predicate for Options.Skip matching names against
// every path component.
func SkipFunc(names []string) func(string) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return func(path string) bool {
		for _, c := range strings.FieldsFunc(path, isSeparator) {
			if _, ok := set[strings.ToLower(c)]; ok {
				return true
			}
		}
		return false
	}
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
