package datasheet

import (
	"errors"
	"fmt"
	"strings"

	"go.jacobcolvin.com/vdsheet/pms"
	"go.jacobcolvin.com/vdsheet/standards"
	"go.jacobcolvin.com/vdsheet/vds"
	"go.jacobcolvin.com/vdsheet/vdsindex"
)

// FieldError is a per-field resolution failure. The field still appears
// in the output, unpopulated; the error feeds the validation report.
type FieldError struct {
	Field string
	// Kind is a stable failure name: MissingOperand, UnknownMaterial,
	// UnknownComponent, MissingIndexRow, UnknownClass.
	Kind   string
	Detail string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Kind, e.Detail)
}

// input carries the per-generation context shared by every field
// resolution: the decoded VDS, the piping-class row, and the index row.
type input struct {
	dec       *vds.Decoded
	class     pms.Class
	haveClass bool
	row       vdsindex.Row
	haveRow   bool
	size      float64
	haveSize  bool
}

// Resolver produces field values from the loaded repositories.
// Immutable; safe for concurrent use.
type Resolver struct {
	materials *Maps
	standards *standards.Repository
}

// NewResolver creates a [Resolver] over the given sources.
func NewResolver(materials *Maps, std *standards.Repository) *Resolver {
	return &Resolver{materials: materials, standards: std}
}

// Resolve produces one field. A non-nil [*FieldError] reports why the
// field could not be populated; the returned [Field] is valid either
// way.
func (r *Resolver) Resolve(def FieldDef, in input) (Field, *FieldError) {
	switch rule := def.Rule.(type) {
	case VDSRule:
		return r.fromVDS(def, rule, in), nil
	case PMSRule:
		return r.fromPMS(def, rule, in)
	case StandardRule:
		return r.fromStandard(def, rule, in), nil
	case MaterialRule:
		return r.fromMaterials(def, rule, in)
	case IndexRule:
		return r.fromIndex(def, rule, in)
	case CalcRule:
		return r.fromFormula(def, rule, in)
	case FixedRule:
		return newField(def, rule.Value, Traceability{
			SourceKind:     SourceFixed,
			SourceDocument: "Field Mappings",
		}), nil
	}

	// Unreachable for validated schemas.
	return newField(def, "", Traceability{SourceKind: def.Source}),
		&FieldError{Field: def.Name, Kind: "UnknownRule", Detail: string(def.Source)}
}

func (r *Resolver) fromVDS(def FieldDef, rule VDSRule, in input) Field {
	trace := Traceability{
		SourceKind:     SourceVDS,
		SourceDocument: "VDS No: " + in.dec.Raw,
		SourceValue:    in.dec.Raw,
	}

	var value string

	switch rule.Attribute {
	case "vds_no":
		value = in.dec.Raw
	case "piping_class":
		value = in.dec.PipingClass
	case "valve_type":
		value = in.dec.ValveType()
	case "primary_standard":
		value = in.dec.PrimaryStandard
	case "end_connections":
		value = in.dec.EndConnectionDescription
	case "conditional":
		var flag bool

		switch rule.When {
		case "nace":
			flag = in.dec.NACECompliant
		case "metal_seated":
			flag = in.dec.MetalSeated
		}

		value = rule.Else
		if flag {
			value = rule.Then
		}

		trace.DerivationRule = fmt.Sprintf("%s=%t", rule.When, flag)
	}

	return newField(def, value, trace)
}

func (r *Resolver) fromPMS(def FieldDef, rule PMSRule, in input) (Field, *FieldError) {
	trace := Traceability{SourceKind: SourcePMS}

	if !in.haveClass {
		return newField(def, "", trace), &FieldError{
			Field:  def.Name,
			Kind:   "UnknownClass",
			Detail: "piping class " + in.dec.PipingClass + " not in PMS",
		}
	}

	trace.SourceDocument = "PMS Class " + in.class.Class

	var value string

	switch rule.Column {
	case "service":
		value = in.class.Service
		trace.SourceValue = value
	case "pressure_class":
		trace.SourceValue = in.class.PressureRating

		n, ok := in.class.RatingNumeric()
		if !ok {
			return newField(def, "", trace), &FieldError{
				Field:  def.Name,
				Kind:   "MissingOperand",
				Detail: "no pressure rating for class " + in.class.Class,
			}
		}

		value = fmt.Sprintf("ASME B16.34 Class %d", n)
		trace.DerivationRule = "Rating string to ASME class"
	case "design_pressure":
		value = in.class.DesignPressureMax
		trace.SourceValue = value
	case "design_temperature":
		value = joinRange(in.class.DesignTempMin, in.class.DesignTempMax)
		trace.SourceValue = value
	case "corrosion_allowance":
		value = in.class.CorrosionAllowance
		trace.SourceValue = value
	}

	return newField(def, value, trace), nil
}

func joinRange(lo, hi string) string {
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)

	switch {
	case lo != "" && hi != "":
		return lo + " to " + hi
	case lo != "":
		return lo
	default:
		return hi
	}
}

func (r *Resolver) fromStandard(def FieldDef, rule StandardRule, in input) Field {
	value, clause, ok := r.standards.ValueForField(rule.Field, in.dec.PrefixName)
	if ok {
		return newField(def, value, Traceability{
			SourceKind:      SourceStandard,
			SourceDocument:  clause.Standard,
			SourceValue:     value,
			ClauseReference: clause.Reference(),
		})
	}

	return newField(def, rule.Fallback, Traceability{
		SourceKind:     SourceStandard,
		SourceDocument: "Field Mappings",
		Notes:          "no mandatory clause for " + in.dec.PrefixName + "; configured fallback",
	})
}

func (r *Resolver) fromMaterials(def FieldDef, rule MaterialRule, in input) (Field, *FieldError) {
	trace := Traceability{
		SourceKind:     SourcePMSAndStandard,
		SourceDocument: "Material Mappings",
	}

	if !in.haveClass {
		return newField(def, "", trace), &FieldError{
			Field:  def.Name,
			Kind:   "UnknownClass",
			Detail: "piping class " + in.dec.PipingClass + " not in PMS",
		}
	}

	base := in.class.BaseMaterial
	trace.DerivationRule = fmt.Sprintf("Material lookup: base=%s, nace=%t, low_temp=%t",
		base, in.dec.NACECompliant, in.dec.LowTemp)

	sel, err := r.materials.Select(base, in.dec.NACECompliant, in.dec.LowTemp,
		rule.Component, in.dec.EndConnectionName, in.size, in.haveSize)
	if err != nil {
		kind := "UnknownComponent"
		if errors.Is(err, ErrUnknownMaterial) {
			kind = "UnknownMaterial"
		}

		return newField(def, "", trace), &FieldError{
			Field:  def.Name,
			Kind:   kind,
			Detail: fmt.Sprintf("key %s: %v", sel.Key, err),
		}
	}

	notes := []string{"key=" + sel.Key}

	if sel.UsedKey != sel.Key {
		notes = append(notes, "served_by="+sel.UsedKey)
	}

	if sel.Branch != "" {
		notes = append(notes, "branch="+sel.Branch)
	}

	trace.SourceValue = sel.Value
	trace.Notes = strings.Join(notes, "; ")

	return newField(def, sel.Value, trace), nil
}

func (r *Resolver) fromIndex(def FieldDef, rule IndexRule, in input) (Field, *FieldError) {
	trace := Traceability{SourceKind: SourceVDSIndex}

	if !in.haveRow {
		return newField(def, "", trace), &FieldError{
			Field:  def.Name,
			Kind:   "MissingIndexRow",
			Detail: "no index row for " + in.dec.Raw,
		}
	}

	trace.SourceDocument = "VDS Index: " + in.dec.Raw

	value, _ := in.row.Field(rule.Column)
	trace.SourceValue = value

	return newField(def, value, trace), nil
}

func (r *Resolver) fromFormula(def FieldDef, rule CalcRule, in input) (Field, *FieldError) {
	trace := Traceability{
		SourceKind:     SourceCalculated,
		DerivationRule: fmt.Sprintf("%g × Max Design Pressure", rule.Factor),
	}

	if !in.haveClass {
		return newField(def, "", trace), &FieldError{
			Field:  def.Name,
			Kind:   "UnknownClass",
			Detail: "piping class " + in.dec.PipingClass + " not in PMS",
		}
	}

	trace.SourceDocument = "PMS Class " + in.class.Class
	trace.SourceValue = in.class.DesignPressureMax

	p, ok := in.class.DesignPressureValue()
	if !ok {
		return newField(def, "", trace), &FieldError{
			Field:  def.Name,
			Kind:   "MissingOperand",
			Detail: "no numeric design pressure for class " + in.class.Class,
		}
	}

	unit := rule.Unit
	if unit == "" {
		unit = "barg"
	}

	return newField(def, fmt.Sprintf("%.1f %s", p*rule.Factor, unit), trace), nil
}
