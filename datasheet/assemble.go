package datasheet

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Datasheet validation statuses.
const (
	ValidationValid    = "valid"
	ValidationWarnings = "warnings"
	ValidationInvalid  = "invalid"
)

// Completion summarizes how much of the schema was populated.
type Completion struct {
	Populated  int     `json:"populated_fields"`
	Total      int     `json:"total_fields"`
	Percentage float64 `json:"percentage"`
}

// Metadata is the generation envelope of a [Datasheet].
type Metadata struct {
	VDS               string     `json:"vds_no"`
	GeneratedAt       time.Time  `json:"generated_at"`
	GenerationVersion string     `json:"generation_version"`
	Completion        Completion `json:"completion"`
	ValidationStatus  string     `json:"validation_status"`
	ValidationErrors  []string   `json:"validation_errors"`
	Warnings          []string   `json:"warnings"`
}

// Section is an ordered group of resolved fields.
type Section struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Datasheet is one generated valve datasheet: ordered sections of
// resolved fields plus the generation metadata.
type Datasheet struct {
	Metadata Metadata  `json:"metadata"`
	Sections []Section `json:"sections"`
}

// FieldByName returns the resolved field with the given name.
func (d *Datasheet) FieldByName(name string) (Field, bool) {
	for _, sec := range d.Sections {
		for _, f := range sec.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}

	return Field{}, false
}

// Flat returns the field-name-to-value view, dropping sections and
// traceability.
func (d *Datasheet) Flat() map[string]string {
	out := make(map[string]string)

	for _, sec := range d.Sections {
		for _, f := range sec.Fields {
			out[f.Name] = f.Value
		}
	}

	return out
}

// asmeClassLimits maps ASME B16.34 class ratings to their maximum
// design pressure in barg at 38°C for material group 1.1.
var asmeClassLimits = map[int]float64{
	150:  19.6,
	300:  51.1,
	400:  68.1,
	600:  102.1,
	900:  153.2,
	1500: 255.3,
	2500: 425.5,
}

var (
	classNumberRE = regexp.MustCompile(`Class ([0-9]+)`)
	pressureRE    = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
)

// assemble composes resolved fields into a [Datasheet], computing
// completion and the validation report. fieldErrs carries the per-field
// resolution failures in schema order.
func assemble(schema *Schema, vdsNo, version string, now time.Time, fields []Field, fieldErrs []*FieldError) *Datasheet {
	d := &Datasheet{
		Metadata: Metadata{
			VDS:               vdsNo,
			GeneratedAt:       now,
			GenerationVersion: version,
		},
	}

	byName := make(map[string]Field, len(fields))

	i := 0
	for _, secDef := range schema.Sections() {
		sec := Section{Name: secDef.Name}

		for range secDef.Fields {
			sec.Fields = append(sec.Fields, fields[i])
			byName[fields[i].Name] = fields[i]
			i++
		}

		d.Sections = append(d.Sections, sec)
	}

	reasons := make(map[string]*FieldError, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons[fe.Field] = fe
	}

	populated := 0

	var errs, warnings []string

	for _, f := range fields {
		if f.Populated {
			populated++

			continue
		}

		msg := f.Name + ": not populated"
		if f.Required {
			msg = f.Name + ": required field not populated"
		}

		if fe, ok := reasons[f.Name]; ok {
			msg = fe.Error()
		}

		if f.Required {
			errs = append(errs, msg)
		} else {
			warnings = append(warnings, msg)
		}
	}

	warnings = append(warnings, crossCheckWarnings(schema, byName)...)

	total := len(fields)
	pct := 0.0

	if total > 0 {
		pct = math.Round(float64(populated)/float64(total)*1000) / 10
	}

	d.Metadata.Completion = Completion{
		Populated:  populated,
		Total:      total,
		Percentage: pct,
	}

	d.Metadata.ValidationErrors = errs
	d.Metadata.Warnings = warnings

	switch {
	case len(errs) > 0:
		d.Metadata.ValidationStatus = ValidationInvalid
	case len(warnings) > 0:
		d.Metadata.ValidationStatus = ValidationWarnings
	default:
		d.Metadata.ValidationStatus = ValidationValid
	}

	return d
}

// crossCheckWarnings verifies the configured rating/pressure pairs: the
// design pressure must not exceed the ASME limit of the rating class.
func crossCheckWarnings(schema *Schema, byName map[string]Field) []string {
	var out []string

	for _, cc := range schema.CrossChecks() {
		rating, okR := byName[cc.RatingField]
		pressure, okP := byName[cc.PressureField]

		if !okR || !okP || !rating.Populated || !pressure.Populated {
			continue
		}

		m := classNumberRE.FindStringSubmatch(rating.Value)
		if m == nil {
			continue
		}

		class, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		limit, ok := asmeClassLimits[class]
		if !ok {
			continue
		}

		ps := pressureRE.FindString(pressure.Value)
		if ps == "" {
			continue
		}

		p, err := strconv.ParseFloat(ps, 64)
		if err != nil {
			continue
		}

		if p > limit {
			out = append(out, fmt.Sprintf(
				"%s %.1f barg exceeds ASME B16.34 Class %d limit %.1f barg",
				cc.PressureField, p, class, limit))
		}
	}

	return out
}
