// Package session keeps the last result of every probe and renders them as
// the export document.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/google/uuid"
)

var version string

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		version = "unknown"
	} else {
		version = info.Main.Version
	}
}

// Version is the module version of the running binary
func Version() string {
	return version
}

// UserAgent identifies the tool in exported documents
func UserAgent() string {
	return fmt.Sprintf("sleuth/%s (%s; %s) %s", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

type System struct {
	Platform  string `json:"platform"`
	UserAgent string `json:"userAgent"`
}

// Document is the export format
type Document struct {
	Timestamp time.Time               `json:"timestamp"`
	System    System                  `json:"system"`
	Results   map[string]model.Result `json:"results"`
}

// Encode writes d as indented JSON
func (d Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Decode reads a document written by Encode
func Decode(r io.Reader) (Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Document{}, fmt.Errorf("decoding document: %w", err)
	}
	return d, nil
}

// Session accumulates probe results. It is safe for concurrent use.
type Session struct {
	id       uuid.UUID
	platform string
	now      func() time.Time

	mx      sync.Mutex
	results map[string]model.Result
}

// New returns an empty session for the platform (GOOS)
func New(platform string) *Session {
	return &Session{
		id:       uuid.New(),
		platform: platform,
		now:      time.Now,
		results:  make(map[string]model.Result),
	}
}

// WithClock replaces the clock used for the document timestamp.
// This method exists for a unit testing only.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

func (s *Session) ID() string {
	return s.id.String()
}

// Record stores res as the last result of its probe
func (s *Session) Record(results ...model.Result) {
	s.mx.Lock()
	defer s.mx.Unlock()
	for _, res := range results {
		s.results[res.Probe] = res
	}
}

// Last returns the last result of the probe
func (s *Session) Last(probe string) (model.Result, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	res, ok := s.results[probe]
	return res, ok
}

// Len returns the number of probes with a result
func (s *Session) Len() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.results)
}

// Document returns a snapshot of the session
func (s *Session) Document() Document {
	s.mx.Lock()
	defer s.mx.Unlock()
	return Document{
		Timestamp: s.now().UTC(),
		System: System{
			Platform:  s.platform,
			UserAgent: UserAgent(),
		},
		Results: maps.Clone(s.results),
	}
}
