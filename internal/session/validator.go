package session

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"

	jss "github.com/kaptinlin/jsonschema"
)

//go:embed schemas/export.schema.json
var schemaFS embed.FS

// Validator validates export documents against the embedded JSON schema
type Validator struct {
	schema *jss.Schema
}

func NewValidator() (Validator, error) {
	var zero Validator
	b, err := schemaFS.ReadFile("schemas/export.schema.json")
	if err != nil {
		return zero, fmt.Errorf("reading embedded schema: %w", err)
	}
	compiler := jss.NewCompiler()
	schema, err := compiler.Compile(b)
	if err != nil {
		return zero, fmt.Errorf("compiling schema: %w", err)
	}
	return Validator{schema: schema}, nil
}

func (v Validator) Validate(ctx context.Context, d Document) error {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return fmt.Errorf("encoding document to JSON: %w", err)
	}
	return v.ValidateBytes(ctx, buf.Bytes())
}

func (v Validator) ValidateBytes(_ context.Context, b []byte) error {
	res := v.schema.Validate(b)
	if !res.Valid {
		var errorMsgs []string
		for _, err := range res.Errors {
			errorMsgs = append(errorMsgs, fmt.Sprintf("%s: %s", err.Keyword, err.Error()))
		}
		return fmt.Errorf("document validation failed:\n%s", strings.Join(errorMsgs, "\n"))
	}
	return nil
}
