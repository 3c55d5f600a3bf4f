package parse

import (
	"encoding/xml"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Recent is an entry of a recently used store
type Recent struct {
	Path string
	Time time.Time
}

type xbel struct {
	Bookmarks []struct {
		Href     string `xml:"href,attr"`
		Modified string `xml:"modified,attr"`
		Visited  string `xml:"visited,attr"`
		Added    string `xml:"added,attr"`
	} `xml:"bookmark"`
}

// XBEL parses ~/.local/share/recently-used.xbel. Only file:// entries are
// returned, with the newest of the visited/modified/added timestamps.
func XBEL(r io.Reader) ([]Recent, error) {
	var doc xbel
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	ret := make([]Recent, 0, len(doc.Bookmarks))
	for _, b := range doc.Bookmarks {
		p, ok := FileURL(b.Href)
		if !ok {
			continue
		}
		var latest time.Time
		for _, v := range []string{b.Visited, b.Modified, b.Added} {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil && t.After(latest) {
				latest = t
			}
		}
		ret = append(ret, Recent{Path: p, Time: latest})
	}
	return ret, nil
}

// FileURL converts a file:// URL into a local path.
func FileURL(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	return u.Path, true
}

// GTKBookmarks parses ~/.config/gtk-3.0/bookmarks, one "file:///path label"
// per line.
func GTKBookmarks(r io.Reader) ([]Recent, error) {
	var ret []Recent
	err := scanLines(r, func(line string) {
		href, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		if p, ok := FileURL(href); ok {
			ret = append(ret, Recent{Path: p})
		}
	})
	return ret, err
}

var reCFURL = regexp.MustCompile(`"?_CFURLString"?\s*=\s*"([^"]+)"`)

// DefaultsURLs extracts the file URLs from `defaults read` output such as
// com.apple.finder FXRecentFolders.
func DefaultsURLs(out string) []Recent {
	var ret []Recent
	for _, m := range reCFURL.FindAllStringSubmatch(out, -1) {
		if p, ok := FileURL(m[1]); ok {
			ret = append(ret, Recent{Path: strings.TrimSuffix(p, "/")})
		}
	}
	return ret
}
