// Package browser detects installed web browsers and reads their history
// databases.
package browser

import (
	"os"
	"path/filepath"
	"slices"
)

type Kind string

const (
	Chromium Kind = "chromium"
	Firefox  Kind = "firefox"
	Safari   Kind = "safari"
)

// Candidate describes where a browser lives on one platform
type Candidate struct {
	ID   string
	Name string
	Kind Kind
	// Exes are checked in order, the first resolvable one wins
	Exes []string
	// App is the macOS application name passed to open -a
	App string
	// DataDir is the user data directory holding the profiles
	DataDir string
	// Scheme is the internal URL scheme of Chromium based browsers
	Scheme string
}

// Browser is a detected browser
type Browser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Path    string `json:"path"`
	App     string `json:"app,omitempty"`
	DataDir string `json:"data_dir,omitempty"`
	Scheme  string `json:"scheme,omitempty"`
	Default bool   `json:"default"`
}

// Detect returns the candidates whose executable resolves. The default
// browser, identified by its ID, is returned first; the rest keep the
// candidate order.
func Detect(candidates []Candidate, resolve func(string) (string, bool), defaultID string) []Browser {
	var ret []Browser
	for _, c := range candidates {
		for _, exe := range c.Exes {
			path, ok := resolve(exe)
			if !ok {
				continue
			}
			ret = append(ret, Browser{
				ID:      c.ID,
				Name:    c.Name,
				Kind:    c.Kind,
				Path:    path,
				App:     c.App,
				DataDir: c.DataDir,
				Scheme:  c.Scheme,
				Default: defaultID != "" && c.ID == defaultID,
			})
			break
		}
	}
	slices.SortStableFunc(ret, func(a, b Browser) int {
		switch {
		case a.Default == b.Default:
			return 0
		case a.Default:
			return -1
		default:
			return 1
		}
	})
	return ret
}

// Exists is a resolve function for Detect checking absolute paths.
func Exists(path string) (string, bool) {
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// HistoryURL returns the internal page listing the history, or an empty
// string when the browser has none that can be opened from the command line.
func (b Browser) HistoryURL() string {
	switch b.Kind {
	case Chromium:
		scheme := b.Scheme
		if scheme == "" {
			scheme = "chrome"
		}
		return scheme + "://history"
	case Firefox:
		return "chrome://browser/content/places/places.xhtml"
	}
	return ""
}

// HistoryFiles returns the history databases of every profile.
func (b Browser) HistoryFiles() []string {
	if b.DataDir == "" {
		return nil
	}
	var ret []string
	switch b.Kind {
	case Chromium:
		// Opera keeps a single profile directly in the data dir
		if _, err := os.Stat(filepath.Join(b.DataDir, "History")); err == nil {
			ret = append(ret, filepath.Join(b.DataDir, "History"))
		}
		matches, _ := filepath.Glob(filepath.Join(b.DataDir, "*", "History"))
		ret = append(ret, matches...)
	case Firefox:
		ret, _ = filepath.Glob(filepath.Join(b.DataDir, "*", "places.sqlite"))
	case Safari:
		if _, err := os.Stat(filepath.Join(b.DataDir, "History.db")); err == nil {
			ret = append(ret, filepath.Join(b.DataDir, "History.db"))
		}
	}
	return ret
}
