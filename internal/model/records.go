package model

import (
	"path"
	"slices"
	"strings"
	"time"
)

// SortByTime sorts findings by Timestamp, newest first. The sort is stable,
// so findings with equal timestamps keep their input order.
func SortByTime(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// DedupeBy drops every finding whose key was already seen. The first
// occurrence wins; findings with an empty key are always kept.
func DedupeBy(findings []Finding, key func(Finding) string) []Finding {
	seen := make(map[string]struct{}, len(findings))
	ret := make([]Finding, 0, len(findings))
	for _, f := range findings {
		k := key(f)
		if k != "" {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
		}
		ret = append(ret, f)
	}
	return ret
}

// LatestBy keeps a single finding per key, the one with the newest timestamp.
// Ties are resolved in favor of the earlier finding. Output is sorted by time.
func LatestBy(findings []Finding, key func(Finding) string) []Finding {
	index := make(map[string]int, len(findings))
	ret := make([]Finding, 0, len(findings))
	for _, f := range findings {
		k := key(f)
		if i, ok := index[k]; ok && k != "" {
			if f.Timestamp.After(ret[i].Timestamp) {
				ret[i] = f
			}
			continue
		}
		index[k] = len(ret)
		ret = append(ret, f)
	}
	SortByTime(ret)
	return ret
}

// NormalizePath returns a case and separator insensitive form of p suitable
// as a dedupe key.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.Trim(p, `"' `)
	return strings.ToLower(path.Clean(p))
}

// ByPath is a key function for DedupeBy and LatestBy.
func ByPath(f Finding) string {
	return NormalizePath(f.Path)
}

// ByName is a case insensitive key function for DedupeBy and LatestBy.
func ByName(f Finding) string {
	return strings.ToLower(f.Name)
}

// Window is a closed time interval. Zero bounds are open.
type Window struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t lies in the window. An unknown (zero) t is
// contained only in an unbounded window.
func (w Window) Contains(t time.Time) bool {
	if w.Since.IsZero() && w.Until.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

// Filter returns the findings whose Timestamp lies in the window.
func (w Window) Filter(findings []Finding) []Finding {
	ret := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if w.Contains(f.Timestamp) {
			ret = append(ret, f)
		}
	}
	return ret
}
