package model

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	cue "cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
)

type CueErrorDetail struct {
	Path    string // keywords.cheat_domains
	Code    string // missing_required | unknown_field | type_mismatch | conflicting_values | invalid_enum ...
	Message string // Human text
	Pos     CueErrorPosition
	Raw     string // original message
}

func (c CueErrorDetail) Attr(name string) slog.Attr {
	return slog.GroupAttrs(
		name,
		slog.String("code", c.Code),
		slog.String("path", c.Path),
		slog.String("message", c.Message),
		slog.String("file", c.Pos.Filename),
		slog.Int("line", c.Pos.Line),
		slog.Int("column", c.Pos.Column),
	)
}

func (c CueErrorDetail) String() string {
	if c.Pos.Filename == "" {
		return c.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", c.Pos.Filename, c.Pos.Line, c.Pos.Column, c.Message)
}

type CueErrorPosition struct {
	Filename string
	Line     int
	Column   int
}

var (
	reIncomplete  = regexp.MustCompile(`(?i)incomplete value`)
	reNotAllowed  = regexp.MustCompile(`(?i)not allowed|unknown field`)
	reConflict    = regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible`)
	reExpectedGot = regexp.MustCompile(`(?i)expected .* got .*`)
	reEnum        = regexp.MustCompile(`(?i)must be one of|expected one of`)
)

// enumPaths lists the fields for which the possible values are reported
var enumPaths = []string{"service.mode"}

// CueErrDetails turns an error returned by LoadConfig into a list of human
// readable details. Errors not coming from CUE are returned as a single
// validation_error detail.
func CueErrDetails(err error) []CueErrorDetail {
	if err == nil {
		return nil
	}
	var cueErr cueerrors.Error
	if !errors.As(err, &cueErr) {
		return []CueErrorDetail{{Code: "validation_error", Message: err.Error(), Raw: err.Error()}}
	}
	return humanize(err)
}

func humanize(err error) []CueErrorDetail {
	seen := make(map[CueErrorPosition]struct{})

	var out []CueErrorDetail
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		raw := fmt.Sprintf(format, args...)
		path := normalizePath(e.Path())
		code, msg := classify(raw, path)

		pos := position(e)
		if _, ok := seen[pos]; ok && pos.Filename != "" {
			continue
		}

		for _, enumPath := range enumPaths {
			if path != enumPath {
				continue
			}
			field := schema.LookupPath(cue.ParsePath(enumPath))
			values, dflt := enumStrings(field)
			msg += fmt.Sprintf(": possible values (%s)", strings.Join(values, ","))
			if dflt != nil {
				msg += fmt.Sprintf(" (default %s)", *dflt)
			}
		}

		out = append(out, CueErrorDetail{
			Path:    path,
			Code:    code,
			Message: msg,
			Pos:     pos,
			Raw:     raw,
		})
		seen[pos] = struct{}{}
	}
	return out
}

func valueToString(v cue.Value) string {
	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		return s
	case cue.IntKind:
		i, _ := v.Int64()
		return strconv.FormatInt(i, 10)
	case cue.BoolKind:
		b, _ := v.Bool()
		return strconv.FormatBool(b)
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return "E: " + err.Error()
		}
		return string(b)
	}
}

func enumStrings(v cue.Value) (values []string, def *string) {
	if d, ok := v.Default(); ok {
		if s, err := d.String(); err == nil {
			def = &s
		}
	}
	if op, args := v.Expr(); op == cue.OrOp {
		seen := map[string]struct{}{}
		for _, a := range args {
			if a.Kind() != cue.StringKind {
				continue
			}
			s := valueToString(a)
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				values = append(values, s)
			}
		}
	} else if v.Kind() == cue.StringKind {
		values = append(values, valueToString(v))
	}
	return
}

func position(err cueerrors.Error) CueErrorPosition {
	for _, r := range cueerrors.Positions(err) {
		if r.Filename() == "" {
			continue
		}
		return CueErrorPosition{
			Filename: r.Filename(),
			Line:     r.Line(),
			Column:   r.Column(),
		}
	}
	var zero CueErrorPosition
	return zero
}

func normalizePath(p []string) string {
	if len(p) == 0 {
		return ""
	}
	// Remove leading definition (#Config)
	if strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func classify(raw, path string) (code, msg string) {
	switch {
	case reNotAllowed.MatchString(raw):
		return "unknown_field", fmt.Sprintf("Field %s is not allowed", last(path))
	case reIncomplete.MatchString(raw):
		return "missing_required", fmt.Sprintf("Field %s is required", last(path))
	case reConflict.MatchString(raw):
		return "conflicting_values", fmt.Sprintf("Conflicting values for %s", last(path))
	case reEnum.MatchString(raw):
		return "invalid_enum", fmt.Sprintf("Field %s has invalid value", last(path))
	case reExpectedGot.MatchString(raw):
		return "type_mismatch", fmt.Sprintf("Field %s has wrong type/value", last(path))
	default:
		return "validation_error", raw
	}
}

func last(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i+1:]
	}
	return p
}
