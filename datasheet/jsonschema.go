package datasheet

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// falseSchema matches nothing; used to close objects.
func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

// OutputSchema returns the JSON Schema of the flat datasheet view: one
// string property per schema field, required fields required.
func OutputSchema(s *Schema) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Schema:               "http://json-schema.org/draft-07/schema#",
		Title:                "Valve Datasheet",
		Description:          "Flat field-name-to-value view of a generated valve datasheet.",
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, s.Len()),
		AdditionalProperties: falseSchema(),
	}

	for _, def := range s.Fields() {
		out.Properties[def.Name] = &jsonschema.Schema{
			Type:        "string",
			Title:       def.DisplayName,
			Description: def.Section + " / " + string(def.Source),
		}

		if def.Required {
			out.Required = append(out.Required, def.Name)
		}
	}

	return out
}
