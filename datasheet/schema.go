package datasheet

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Sentinel errors.
var (
	ErrReadSchema    = errors.New("read field schema")
	ErrInvalidSchema = errors.New("invalid field schema")
)

// Rule is the per-kind resolution payload of a [FieldDef]. Exactly one
// concrete rule type exists per [SourceKind].
type Rule interface {
	kind() SourceKind
}

// VDSRule resolves a field from a decoded VDS attribute. For the
// conditional attributes the When flag selects between Then and Else.
type VDSRule struct {
	// Attribute is one of vds_no, piping_class, valve_type,
	// primary_standard, end_connections, or conditional.
	Attribute string
	// When names the decoded flag driving a conditional attribute:
	// "nace" or "metal_seated".
	When string
	Then string
	Else string
}

func (VDSRule) kind() SourceKind { return SourceVDS }

// PMSRule resolves a field from a piping-class column.
type PMSRule struct {
	// Column is one of service, pressure_class, design_pressure,
	// design_temperature, or corrosion_allowance.
	Column string
}

func (PMSRule) kind() SourceKind { return SourcePMS }

// StandardRule resolves a field from the mandatory standard clause
// feeding it, falling back to a configured default when no clause
// matches the valve type.
type StandardRule struct {
	Field    string
	Fallback string
}

func (StandardRule) kind() SourceKind { return SourceStandard }

// MaterialRule resolves a field through material-map selection keyed by
// the PMS base material and the decoded NACE and low-temperature flags.
type MaterialRule struct {
	Component string
}

func (MaterialRule) kind() SourceKind { return SourcePMSAndStandard }

// IndexRule resolves a field from a pre-built VDS index column.
type IndexRule struct {
	Column string
}

func (IndexRule) kind() SourceKind { return SourceVDSIndex }

// CalcRule resolves a field by scaling the class's numeric design
// pressure.
type CalcRule struct {
	Factor float64
	Unit   string
}

func (CalcRule) kind() SourceKind { return SourceCalculated }

// FixedRule resolves a field to a constant.
type FixedRule struct {
	Value string
}

func (FixedRule) kind() SourceKind { return SourceFixed }

// FieldDef defines one output field: identity, placement, and the
// tagged resolution rule.
type FieldDef struct {
	Name        string
	DisplayName string
	Section     string
	Source      SourceKind
	Required    bool
	Rule        Rule
}

// SectionDef is an ordered group of field definitions.
type SectionDef struct {
	Name   string
	Fields []FieldDef
}

// CrossCheck pairs a rating field with a pressure field for
// consistency validation.
type CrossCheck struct {
	RatingField   string `yaml:"rating_field"`
	PressureField string `yaml:"pressure_field"`
}

// Schema is the ordered datasheet layout. Immutable after construction.
//
// Create instances with [LoadSchema] or [DefaultSchema].
type Schema struct {
	sections    []SectionDef
	crossChecks []CrossCheck
}

// Sections returns the ordered section definitions.
func (s *Schema) Sections() []SectionDef {
	return s.sections
}

// Fields returns every field definition in schema order.
func (s *Schema) Fields() []FieldDef {
	var out []FieldDef
	for _, sec := range s.sections {
		out = append(out, sec.Fields...)
	}

	return out
}

// Field returns the definition with the given name.
func (s *Schema) Field(name string) (FieldDef, bool) {
	for _, def := range s.Fields() {
		if def.Name == name {
			return def, true
		}
	}

	return FieldDef{}, false
}

// CrossChecks returns the configured rating/pressure consistency pairs.
func (s *Schema) CrossChecks() []CrossCheck {
	return s.crossChecks
}

// Len returns the total field count.
func (s *Schema) Len() int {
	n := 0
	for _, sec := range s.sections {
		n += len(sec.Fields)
	}

	return n
}

// Validate checks structural integrity: unique field names, known
// source kinds, and a well-formed rule payload per field.
func (s *Schema) Validate() error {
	seen := make(map[string]bool)

	for _, sec := range s.sections {
		if sec.Name == "" {
			return fmt.Errorf("%w: section without a name", ErrInvalidSchema)
		}

		for _, def := range sec.Fields {
			if def.Name == "" {
				return fmt.Errorf("%w: field without a name in section %q",
					ErrInvalidSchema, sec.Name)
			}

			if seen[def.Name] {
				return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, def.Name)
			}

			seen[def.Name] = true

			if !def.Source.Valid() {
				return fmt.Errorf("%w: field %q: unknown source kind %q",
					ErrInvalidSchema, def.Name, def.Source)
			}

			if def.Rule == nil {
				return fmt.Errorf("%w: field %q: missing rule", ErrInvalidSchema, def.Name)
			}

			if def.Rule.kind() != def.Source {
				return fmt.Errorf("%w: field %q: rule kind %q does not match source %q",
					ErrInvalidSchema, def.Name, def.Rule.kind(), def.Source)
			}

			if err := validateRule(def); err != nil {
				return fmt.Errorf("%w: field %q: %w", ErrInvalidSchema, def.Name, err)
			}
		}
	}

	for _, cc := range s.crossChecks {
		if !seen[cc.RatingField] || !seen[cc.PressureField] {
			return fmt.Errorf("%w: cross check references unknown field (%s, %s)",
				ErrInvalidSchema, cc.RatingField, cc.PressureField)
		}
	}

	return nil
}

func validateRule(def FieldDef) error {
	switch r := def.Rule.(type) {
	case VDSRule:
		if r.Attribute == "" {
			return errors.New("vds rule without attribute")
		}

		if r.Attribute == "conditional" && r.When == "" {
			return errors.New("conditional vds rule without when flag")
		}
	case PMSRule:
		if r.Column == "" {
			return errors.New("pms rule without column")
		}
	case StandardRule:
		if r.Field == "" {
			return errors.New("standard rule without field")
		}
	case MaterialRule:
		if r.Component == "" {
			return errors.New("material rule without component")
		}
	case IndexRule:
		if r.Column == "" {
			return errors.New("index rule without column")
		}
	case CalcRule:
		if r.Factor <= 0 {
			return errors.New("calculated rule without a positive factor")
		}
	case FixedRule:
		if r.Value == "" {
			return errors.New("fixed rule without value")
		}
	}

	return nil
}

// ValidateAgainst cross-checks the schema against the loaded material
// maps: every material component a field references must be defined for
// the base key. Returns warnings, not errors, so a partial map still
// loads.
func (s *Schema) ValidateAgainst(materials *Maps) []string {
	var warnings []string

	for _, def := range s.Fields() {
		r, ok := def.Rule.(MaterialRule)
		if !ok {
			continue
		}

		if !materials.HasComponent(r.Component) {
			warnings = append(warnings,
				fmt.Sprintf("field %s references material component %q not defined in any map",
					def.Name, r.Component))
		}
	}

	return warnings
}

// YAML shapes. Sections and fields are arrays so the file order is the
// output order.
type (
	schemaFile struct {
		Sections    []sectionYAML `yaml:"sections"`
		CrossChecks []CrossCheck  `yaml:"cross_checks"`
	}

	sectionYAML struct {
		Name   string      `yaml:"name"`
		Fields []fieldYAML `yaml:"fields"`
	}

	fieldYAML struct {
		Name        string     `yaml:"name"`
		DisplayName string     `yaml:"display_name"`
		Source      SourceKind `yaml:"source"`
		Required    bool       `yaml:"required"`

		Attribute string  `yaml:"attribute"`
		When      string  `yaml:"when"`
		Then      string  `yaml:"then"`
		Else      string  `yaml:"else"`
		Column    string  `yaml:"column"`
		Field     string  `yaml:"standard_field"`
		Fallback  string  `yaml:"fallback"`
		Component string  `yaml:"component"`
		Factor    float64 `yaml:"factor"`
		Unit      string  `yaml:"unit"`
		Value     string  `yaml:"value"`
	}
)

// rule builds the tagged payload for the declared source kind.
func (f fieldYAML) rule() Rule {
	switch f.Source {
	case SourceVDS:
		return VDSRule{Attribute: f.Attribute, When: f.When, Then: f.Then, Else: f.Else}
	case SourcePMS:
		return PMSRule{Column: f.Column}
	case SourceStandard:
		return StandardRule{Field: f.Field, Fallback: f.Fallback}
	case SourcePMSAndStandard:
		return MaterialRule{Component: f.Component}
	case SourceVDSIndex:
		return IndexRule{Column: f.Column}
	case SourceCalculated:
		return CalcRule{Factor: f.Factor, Unit: f.Unit}
	case SourceFixed:
		return FixedRule{Value: f.Value}
	}

	return nil
}

// LoadSchema reads and validates a field schema from YAML.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadSchema, err)
	}

	var f schemaFile

	err = yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	s := &Schema{crossChecks: f.CrossChecks}

	for _, sec := range f.Sections {
		out := SectionDef{Name: sec.Name}

		for _, fy := range sec.Fields {
			out.Fields = append(out.Fields, FieldDef{
				Name:        fy.Name,
				DisplayName: fy.DisplayName,
				Section:     sec.Name,
				Source:      fy.Source,
				Required:    fy.Required,
				Rule:        fy.rule(),
			})
		}

		s.sections = append(s.sections, out)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}
