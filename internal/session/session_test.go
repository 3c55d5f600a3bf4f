package session_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/session"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func result(probe string, findings ...model.Finding) model.Result {
	if findings == nil {
		findings = []model.Finding{}
	}
	return model.Result{Probe: probe, Started: now, Finished: now.Add(time.Second), Findings: findings}
}

func TestSession(t *testing.T) {
	t.Parallel()
	s := session.New("linux").WithClock(func() time.Time { return now })
	require.NotEmpty(t, s.ID())
	require.Zero(t, s.Len())

	first := result("usb")
	first.Detected = model.Flag(false)
	s.Record(first)
	second := result("usb", model.Finding{Name: "usb 1-1", Source: model.SourceDmesg})
	second.Detected = model.Flag(true)
	s.Record(second, result("jars"))

	last, ok := s.Last("usb")
	require.True(t, ok)
	require.Equal(t, second, last)
	_, ok = s.Last("folders")
	require.False(t, ok)
	require.Equal(t, 2, s.Len())

	doc := s.Document()
	require.Equal(t, now, doc.Timestamp)
	require.Equal(t, "linux", doc.System.Platform)
	require.True(t, strings.HasPrefix(doc.System.UserAgent, "sleuth/"))
	require.Len(t, doc.Results, 2)

	// the document is a snapshot
	s.Record(result("folders"))
	require.Len(t, doc.Results, 2)
}

func TestSession_Concurrent(t *testing.T) {
	t.Parallel()
	s := session.New("windows")
	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(result(name))
			_ = s.Document()
		}()
	}
	wg.Wait()
	require.Equal(t, 6, s.Len())
}

func TestDocument_Encode(t *testing.T) {
	t.Parallel()
	s := session.New("darwin").WithClock(func() time.Time { return now })
	res := result("deleted", model.Finding{
		Name:      "ghost.jar",
		Path:      "/Users/x/.Trash/ghost.jar",
		Timestamp: now.Add(-time.Hour),
		Source:    model.SourceTrash,
		Size:      42,
	})
	s.Record(res, model.Result{Probe: "usb", Started: now, Finished: now, Findings: []model.Finding{}, Error: "not supported on this platform"})

	var buf bytes.Buffer
	require.NoError(t, s.Document().Encode(&buf))
	out := buf.String()
	require.Contains(t, out, `"timestamp": "2026-10-17T12:00:00Z"`)
	require.Contains(t, out, `"platform": "darwin"`)
	require.Contains(t, out, `"userAgent": "sleuth/`)
	require.Contains(t, out, `"findings": []`)
	require.NotContains(t, out, `"detected"`)

	doc, err := session.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, s.Document(), doc)
}

func TestValidator(t *testing.T) {
	t.Parallel()
	v, err := session.NewValidator()
	require.NoError(t, err)

	s := session.New("linux").WithClock(func() time.Time { return now })
	res := result("processes", model.Finding{Name: "ghost", Source: model.SourceProcess, Extra: map[string]string{"pid": "400"}})
	res.Detected = model.Flag(true)
	s.Record(res, result("folders"))
	require.NoError(t, v.Validate(t.Context(), s.Document()))

	var testCases = []struct {
		scenario string
		given    string
	}{
		{"not an object", `[]`},
		{"missing results", `{"timestamp": "2026-10-17T12:00:00Z", "system": {"platform": "linux", "userAgent": "x"}}`},
		{"unknown field", `{"timestamp": "2026-10-17T12:00:00Z", "system": {"platform": "linux", "userAgent": "x"}, "results": {}, "extra": 1}`},
		{"result without findings", `{"timestamp": "2026-10-17T12:00:00Z", "system": {"platform": "linux", "userAgent": "x"}, "results": {"usb": {"probe": "usb", "started": "2026-10-17T12:00:00Z", "finished": "2026-10-17T12:00:00Z"}}}`},
		{"finding extra not a string", `{"timestamp": "2026-10-17T12:00:00Z", "system": {"platform": "linux", "userAgent": "x"}, "results": {"usb": {"probe": "usb", "started": "2026-10-17T12:00:00Z", "finished": "2026-10-17T12:00:00Z", "findings": [{"name": "a", "source": "dmesg", "extra": {"n": 1}}]}}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			err := v.ValidateBytes(t.Context(), []byte(tc.given))
			require.Error(t, err)
		})
	}
}
