package questionnaire

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MetaSchema is the JSON schema every questionnaire must satisfy before the
// semantic checks run.
//
//go:embed schemas/questionnaire.json
var MetaSchema []byte

const metaSchemaURL = "https://questionnaire-validator/schemas/questionnaire.json"

// CompileMetaSchema compiles a questionnaire meta schema. Passing nil
// compiles the embedded MetaSchema.
func CompileMetaSchema(data []byte) (*jsonschema.Schema, error) {
	if data == nil {
		data = MetaSchema
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	if err := c.AddResource(metaSchemaURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to load questionnaire meta schema: %w", err)
	}

	sch, err := c.Compile(metaSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile questionnaire meta schema: %w", err)
	}
	return sch, nil
}

// validateMetaSchema checks doc against sch and flattens the failures into
// one ValidationError per leaf cause.
func validateMetaSchema(sch *jsonschema.Schema, doc map[string]any) []ValidationError {
	err := sch.Validate(any(doc))
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []ValidationError{{Message: err.Error()}}
	}

	var out []ValidationError
	collectLeaves(ve, &out)
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]ValidationError) {
	if len(ve.Causes) == 0 {
		path := ve.InstanceLocation
		if path == "" {
			path = "/"
		}
		*out = append(*out, ValidationError{
			Message: ve.Message,
			Path:    path,
			Context: map[string]any{"keyword": ve.KeywordLocation},
		})
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}
