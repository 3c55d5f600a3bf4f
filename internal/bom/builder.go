// Package bom renders probe results as a CycloneDX BOM: every finding is a
// component carrying its fields as properties.
package bom

import (
	"io"
	"slices"
	"strconv"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"

	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/session"
)

// property name prefix
const ns = "sleuth:"

// Builder is a builder pattern for a CycloneDX BOM structure
type Builder struct {
	timestamp    time.Time
	authors      []cdx.OrganizationalContact
	components   []cdx.Component
	dependencies []cdx.Dependency
	properties   []cdx.Property
}

func NewBuilder() *Builder {
	return &Builder{
		timestamp: time.Now(),
		// those MUST be initialized as cyclone-dx JSON schema do not allow items to be null
		components:   []cdx.Component{},
		dependencies: []cdx.Dependency{},
		properties:   []cdx.Property{},
	}
}

func (b *Builder) WithTimestamp(t time.Time) *Builder {
	b.timestamp = t
	return b
}

func (b *Builder) AppendAuthors(authors ...cdx.OrganizationalContact) *Builder {
	b.authors = append(b.authors, authors...)
	return b
}

func (b *Builder) AppendComponents(components ...cdx.Component) *Builder {
	b.components = append(b.components, components...)
	return b
}

func (b *Builder) AppendProperties(properties ...cdx.Property) *Builder {
	b.properties = append(b.properties, properties...)
	return b
}

func (b *Builder) AppendDependencies(dependencies ...cdx.Dependency) *Builder {
	b.dependencies = append(b.dependencies, dependencies...)
	return b
}

// AppendResult adds a component per finding of res. The probe outcome
// (detected, error) is stored in BOM level properties.
func (b *Builder) AppendResult(res model.Result) *Builder {
	if res.Detected != nil {
		b.AppendProperties(cdx.Property{Name: ns + res.Probe + ":detected", Value: strconv.FormatBool(*res.Detected)})
	}
	if res.Error != "" {
		b.AppendProperties(cdx.Property{Name: ns + res.Probe + ":error", Value: res.Error})
	}
	for _, f := range res.Findings {
		b.AppendComponents(Component(res.Probe, f))
	}
	return b
}

// AppendDocument adds every result of d in probe name order
func (b *Builder) AppendDocument(d session.Document) *Builder {
	b.WithTimestamp(d.Timestamp)
	b.AppendProperties(
		cdx.Property{Name: ns + "platform", Value: d.System.Platform},
		cdx.Property{Name: ns + "userAgent", Value: d.System.UserAgent},
	)
	names := make([]string, 0, len(d.Results))
	for name := range d.Results {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		b.AppendResult(d.Results[name])
	}
	return b
}

// Component converts a finding. Files become file components, processes,
// services and browsers application components, anything else data.
func Component(probe string, f model.Finding) cdx.Component {
	typ := cdx.ComponentTypeData
	switch {
	case f.Source == model.SourceProcess || f.Source == model.SourceService || f.Source == model.SourceBrowser:
		typ = cdx.ComponentTypeApplication
	case f.Path != "":
		typ = cdx.ComponentTypeFile
	}

	props := []cdx.Property{
		{Name: ns + "probe", Value: probe},
		{Name: ns + "source", Value: f.Source},
	}
	add := func(name, value string) {
		if value != "" {
			props = append(props, cdx.Property{Name: ns + name, Value: value})
		}
	}
	add("path", f.Path)
	add("category", f.Category)
	if !f.Timestamp.IsZero() {
		add("timestamp", f.Timestamp.UTC().Format(time.RFC3339))
	}
	if f.Size > 0 {
		add("size", strconv.FormatInt(f.Size, 10))
	}
	keys := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		add("extra:"+k, f.Extra[k])
	}

	return cdx.Component{
		BOMRef:     uuid.NewString(),
		Type:       typ,
		Name:       f.Name,
		Properties: &props,
	}
}

// BOM returns a cdx.BOM based on a data inside the Builder
func (b *Builder) BOM() cdx.BOM {
	bom := cdx.BOM{
		JSONSchema:   "https://cyclonedx.org/schema/bom-1.6.schema.json",
		BOMFormat:    "CycloneDX",
		SpecVersion:  cdx.SpecVersion1_6,
		SerialNumber: "urn:uuid:" + uuid.New().String(),
		Version:      1,
		Metadata: &cdx.Metadata{
			Timestamp: b.timestamp.UTC().Format(time.RFC3339),
			Lifecycles: &[]cdx.Lifecycle{
				{
					Phase: "operations",
				},
			},
			Authors: &b.authors,
			// This can't be not nil otherwise this error will happen
			// json: error calling MarshalJSON for type *cyclonedx.ToolsChoice: unexpected end of JSON input
			Component: &cdx.Component{
				Type:    cdx.ComponentTypeApplication,
				Name:    "sleuth",
				Version: session.Version(),
			},
		},
		Components:   &b.components,
		Dependencies: &b.dependencies,
		Properties:   &b.properties,
	}
	return bom
}

// AsJSON encode the BOM into JSON format
func (b *Builder) AsJSON(w io.Writer) error {
	bom := b.BOM()
	return cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON).SetPretty(true).Encode(&bom)
}
