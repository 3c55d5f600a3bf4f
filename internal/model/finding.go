package model

import (
	"maps"
	"time"
)

// well known values of Finding.Source
const (
	SourceFilesystem = "filesystem"
	SourceProcess    = "process"
	SourcePrefetch   = "prefetch"
	SourceRegistry   = "registry"
	SourceEventLog   = "eventlog"
	SourceJournal    = "journal"
	SourceUnifiedLog = "unifiedlog"
	SourceDmesg      = "dmesg"
	SourceRecent     = "recent"
	SourceRecycleBin = "recyclebin"
	SourceTrash      = "trash"
	SourceShell      = "shell"
	SourceBrowser    = "browser"
	SourceService    = "service"
)

// Finding is a single piece of evidence produced by a probe: a file, an event,
// a process or a history entry. Findings are values and are never mutated once
// a probe returns them.
type Finding struct {
	Name      string            `json:"name"`
	Path      string            `json:"path,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitzero"`
	Source    string            `json:"source"`
	Category  string            `json:"category,omitempty"`
	Size      int64             `json:"size,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// With returns a copy of f with extra[key] set to value.
func (f Finding) With(key, value string) Finding {
	extra := make(map[string]string, len(f.Extra)+1)
	maps.Copy(extra, f.Extra)
	extra[key] = value
	f.Extra = extra
	return f
}

// InCategory returns a copy of f with the Category set.
func (f Finding) InCategory(category string) Finding {
	f.Category = category
	return f
}

// bounds of a plausible artifact timestamp
var (
	minTime = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// KnownTime returns t, or the zero time when t lies outside [1970, 9999].
func KnownTime(t time.Time) time.Time {
	if t.Before(minTime) || t.After(maxTime) {
		return time.Time{}
	}
	return t
}

// Sanitized returns f with an implausible timestamp cleared and a negative
// size reset to zero.
func (f Finding) Sanitized() Finding {
	f.Timestamp = KnownTime(f.Timestamp)
	f.Size = max(f.Size, 0)
	return f
}
