// Package match implements the keyword tables used to flag names: a case
// insensitive substring match with an exclusion list.
package match

import "strings"

// Matcher flags names containing any keyword unless they also contain an
// excluded substring. The zero value matches nothing.
type Matcher struct {
	keywords []string
	excluded []string
}

// New returns a matcher for keywords with the exclusion list exclude. Empty
// entries are ignored.
func New(keywords, exclude []string) Matcher {
	return Matcher{
		keywords: lower(keywords),
		excluded: lower(exclude),
	}
}

func lower(in []string) []string {
	ret := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}

// Match returns the first keyword contained in name. Names matching the
// exclusion list never match.
func (m Matcher) Match(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, ex := range m.excluded {
		if strings.Contains(name, ex) {
			return "", false
		}
	}
	for _, kw := range m.keywords {
		if strings.Contains(name, kw) {
			return kw, true
		}
	}
	return "", false
}

// Matches is Match without the keyword
func (m Matcher) Matches(name string) bool {
	_, ok := m.Match(name)
	return ok
}

// Domain reports whether host belongs to one of the keywords
// interpreted as domains: the keyword must match the host or a parent domain
// of it, so "vape.gg" matches "www.vape.gg" but not "escape.gg".
func (m Matcher) Domain(host string) (string, bool) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, ex := range m.excluded {
		if strings.Contains(host, ex) {
			return "", false
		}
	}
	for _, kw := range m.keywords {
		if host == kw || strings.HasSuffix(host, "."+kw) {
			return kw, true
		}
	}
	return "", false
}
