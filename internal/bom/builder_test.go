package bom_test

import (
	"bytes"
	"testing"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/ardent-labs/sleuth/internal/bom"
	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/session"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func props(c cdx.Component) map[string]string {
	ret := map[string]string{}
	for _, p := range *c.Properties {
		ret[p.Name] = p.Value
	}
	return ret
}

func TestComponent(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    model.Finding
		then     cdx.ComponentType
	}{
		{"file", model.Finding{Name: "a.jar", Path: "/tmp/a.jar", Source: model.SourceFilesystem}, cdx.ComponentTypeFile},
		{"process", model.Finding{Name: "java", Path: "/usr/bin/java", Source: model.SourceProcess}, cdx.ComponentTypeApplication},
		{"event", model.Finding{Name: "usb 1-1", Source: model.SourceDmesg}, cdx.ComponentTypeData},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			c := bom.Component("probe", tc.given)
			require.Equal(t, tc.then, c.Type)
			require.Equal(t, tc.given.Name, c.Name)
			require.NotEmpty(t, c.BOMRef)
		})
	}

	c := bom.Component("jars", model.Finding{
		Name:      "a.jar",
		Path:      "/tmp/a.jar",
		Timestamp: now,
		Source:    model.SourceFilesystem,
		Category:  "mod",
		Size:      10,
		Extra:     map[string]string{"keyword": "vape", "empty": ""},
	})
	require.Equal(t, map[string]string{
		"sleuth:probe":         "jars",
		"sleuth:source":        "filesystem",
		"sleuth:path":          "/tmp/a.jar",
		"sleuth:category":      "mod",
		"sleuth:timestamp":     "2026-10-17T12:00:00Z",
		"sleuth:size":          "10",
		"sleuth:extra:keyword": "vape",
	}, props(c))
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	s := session.New("linux").WithClock(func() time.Time { return now })
	usb := model.Result{Probe: "usb", Started: now, Finished: now, Detected: model.Flag(true), Findings: []model.Finding{
		{Name: "usb 1-1", Timestamp: now, Source: model.SourceDmesg},
	}}
	deleted := model.Result{Probe: "deleted", Started: now, Finished: now, Findings: []model.Finding{}, Error: "not supported on this platform"}
	jars := model.Result{Probe: "jars", Started: now, Finished: now, Findings: []model.Finding{
		{Name: "a.jar", Path: "/tmp/a.jar", Source: model.SourceFilesystem},
		{Name: "b.jar", Path: "/tmp/b.jar", Source: model.SourceFilesystem},
	}}
	s.Record(usb, deleted, jars)

	b := bom.NewBuilder().
		AppendAuthors(cdx.OrganizationalContact{Name: "investigator"}).
		AppendDocument(s.Document())
	doc := b.BOM()

	require.Equal(t, cdx.SpecVersion1_6, doc.SpecVersion)
	require.Equal(t, "2026-10-17T12:00:00Z", doc.Metadata.Timestamp)
	require.Equal(t, "sleuth", doc.Metadata.Component.Name)
	require.Len(t, *doc.Components, 3)
	require.Equal(t, "a.jar", (*doc.Components)[0].Name)
	require.Equal(t, "usb 1-1", (*doc.Components)[2].Name)

	bomProps := map[string]string{}
	for _, p := range *doc.Properties {
		bomProps[p.Name] = p.Value
	}
	require.Equal(t, "linux", bomProps["sleuth:platform"])
	require.Equal(t, "true", bomProps["sleuth:usb:detected"])
	require.Equal(t, "not supported on this platform", bomProps["sleuth:deleted:error"])

	var buf bytes.Buffer
	require.NoError(t, b.AsJSON(&buf))
	decoded := cdx.BOM{}
	require.NoError(t, cdx.NewBOMDecoder(&buf, cdx.BOMFileFormatJSON).Decode(&decoded))
	require.Len(t, *decoded.Components, 3)
}

func TestBuilder_Empty(t *testing.T) {
	t.Parallel()
	err := bom.NewBuilder().AsJSON(t.Output())
	require.NoError(t, err)
}
