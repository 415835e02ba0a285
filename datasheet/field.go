package datasheet

import "strings"

// SourceKind identifies where a field's value comes from.
type SourceKind string

// The supported source kinds.
const (
	SourceVDS            SourceKind = "VDS"
	SourcePMS            SourceKind = "PMS"
	SourceStandard       SourceKind = "STANDARD"
	SourcePMSAndStandard SourceKind = "PMS_AND_STANDARD"
	SourceVDSIndex       SourceKind = "VDS_INDEX"
	SourceCalculated     SourceKind = "CALCULATED"
	SourceFixed          SourceKind = "FIXED"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceVDS, SourcePMS, SourceStandard, SourcePMSAndStandard,
		SourceVDSIndex, SourceCalculated, SourceFixed:
		return true
	}

	return false
}

// Description returns the human-readable source description used in
// traceability output.
func (k SourceKind) Description() string {
	switch k {
	case SourceVDS:
		return "Selected based on VDS No"
	case SourcePMS:
		return "Automated based on PMS class"
	case SourceStandard:
		return "As per valve standard"
	case SourcePMSAndStandard:
		return "As per PMS base material and valve standard"
	case SourceVDSIndex:
		return "From VDS index lookup"
	case SourceCalculated:
		return "Calculated"
	case SourceFixed:
		return "Fixed value"
	}

	return "Unknown source"
}

// Traceability documents where a field value came from and how it was
// derived.
type Traceability struct {
	SourceKind        SourceKind `json:"source_kind"`
	SourceDescription string     `json:"source_description"`
	// SourceDocument is the repository's source identifier, e.g.
	// "PMS Class A1" or "Material Mappings".
	SourceDocument string `json:"source_document,omitempty"`
	// SourceValue is the value as read from the source, before any
	// transformation.
	SourceValue string `json:"source_value,omitempty"`
	// DerivationRule is a one-line description of the transformation,
	// e.g. "1.5 × Max Design Pressure".
	DerivationRule string `json:"derivation_rule,omitempty"`
	// ClauseReference is set only when a standard clause was consulted.
	ClauseReference string `json:"clause_reference,omitempty"`
	// Confidence is 1.0 on every deterministic path. The field is
	// reserved for future heuristic sources.
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes,omitempty"`
}

// Field validation statuses.
const (
	StatusOK      = "OK"
	StatusEmpty   = "EMPTY"
	StatusMissing = "MISSING"
)

// Field is one resolved datasheet field. Produced once per generation
// and never mutated.
type Field struct {
	Name             string       `json:"field_name"`
	DisplayName      string       `json:"display_name"`
	Section          string       `json:"section"`
	Value            string       `json:"value"`
	Required         bool         `json:"is_required"`
	Populated        bool         `json:"is_populated"`
	ValidationStatus string       `json:"validation_status"`
	Traceability     Traceability `json:"traceability"`
}

// newField builds a [Field] from a resolved value and its traceability,
// deriving the populated and validation flags.
func newField(def FieldDef, value string, trace Traceability) Field {
	trace.SourceDescription = trace.SourceKind.Description()
	if trace.Confidence == 0 {
		trace.Confidence = 1.0
	}

	populated := strings.TrimSpace(value) != ""

	status := StatusOK

	switch {
	case !populated && def.Required:
		status = StatusMissing
	case !populated:
		status = StatusEmpty
	}

	return Field{
		Name:             def.Name,
		DisplayName:      def.DisplayName,
		Section:          def.Section,
		Value:            value,
		Required:         def.Required,
		Populated:        populated,
		ValidationStatus: status,
		Traceability:     trace,
	}
}
