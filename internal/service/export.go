package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ardent-labs/sleuth/internal/bom"
	"github.com/ardent-labs/sleuth/internal/log"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/probe"
	"github.com/ardent-labs/sleuth/internal/session"
)

type Format string

const (
	FormatJSON      Format = "json"
	FormatCycloneDX Format = "cyclonedx"
)

// BatteryLimit is the number of probes run concurrently
const BatteryLimit = 4

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCycloneDX:
		return FormatCycloneDX, nil
	}
	return "", fmt.Errorf("unsupported format %q: use json or cyclonedx", s)
}

// Ext is the file extension of exports in format f
func (f Format) Ext() string {
	if f == FormatCycloneDX {
		return ".cdx.json"
	}
	return ".json"
}

// RunFunc returns the results of a battery run keyed by probe name
type RunFunc func(ctx context.Context) map[string]model.Result

// Battery returns a RunFunc executing every non action probe
func Battery(env probe.Env, params probe.Params) RunFunc {
	return func(ctx context.Context) map[string]model.Result {
		return probe.RunAll(ctx, env, params, BatteryLimit, probe.Battery())
	}
}

// Exporter turns a battery run into an export document
type Exporter struct {
	platform  string
	format    Format
	run       RunFunc
	now       func() time.Time
	validator session.Validator
}

func NewExporter(platform string, format Format, run RunFunc) (*Exporter, error) {
	validator, err := session.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Exporter{
		platform:  platform,
		format:    format,
		run:       run,
		now:       time.Now,
		validator: validator,
	}, nil
}

// WithClock replaces the clock used for document timestamps
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

func (e *Exporter) Format() Format {
	return e.format
}

// Export runs the battery and renders the document. The JSON document is
// validated against the export schema before it is rendered.
func (e *Exporter) Export(ctx context.Context) ([]byte, error) {
	s := session.New(e.platform).WithClock(e.now)
	ctx = slogSession(ctx, s)
	slog.DebugContext(ctx, "running probe battery")

	results := e.run(ctx)
	for _, res := range results {
		s.Record(res.Sanitized())
		if res.Error != "" {
			slog.WarnContext(ctx, "probe failed", "probe", res.Probe, "error", res.Error)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := s.Document()
	if err := e.validator.Validate(ctx, doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch e.format {
	case FormatCycloneDX:
		err := bom.NewBuilder().AppendDocument(doc).AsJSON(&buf)
		if err != nil {
			return nil, fmt.Errorf("rendering cyclonedx: %w", err)
		}
	default:
		if err := doc.Encode(&buf); err != nil {
			return nil, err
		}
	}
	slog.DebugContext(ctx, "battery done", "probes", s.Len(), "format", string(e.format))
	return buf.Bytes(), nil
}

func slogSession(ctx context.Context, s *session.Session) context.Context {
	return log.ContextAttrs(ctx, slog.String("session", s.ID()))
}
