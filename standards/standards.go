// Package standards provides a read-only, multi-indexed repository of
// valve-standard clauses (API 6D, API 598, ASME B16.34, ...) used to
// resolve "as per valve standard" datasheet fields.
package standards

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Sentinel errors.
var (
	ErrReadData    = errors.New("read clauses")
	ErrInvalidData = errors.New("invalid clauses")
)

// RuleType classifies a clause.
type RuleType string

// Clause rule types.
const (
	RuleMandatory      RuleType = "mandatory"
	RuleRecommendation RuleType = "recommendation"
	RuleInformational  RuleType = "informational"
	RuleFormula        RuleType = "formula"
	RuleDefinition     RuleType = "definition"
)

// Clause is a single extracted clause from a valve standard.
type Clause struct {
	Standard            string   `json:"standard"`
	Section             string   `json:"section"`
	Number              string   `json:"clause"`
	Title               string   `json:"title"`
	Text                string   `json:"text"`
	Page                int      `json:"page"`
	RuleType            RuleType `json:"rule_type"`
	NormativeReferences []string `json:"normative_references"`
	// AppliesTo names the valve types the clause applies to;
	// "All Valves" applies universally.
	AppliesTo []string `json:"applies_to"`
	// DatasheetField is the output field the clause feeds, if any.
	DatasheetField string `json:"datasheet_field"`
}

// Mandatory reports whether the clause is a mandatory requirement.
func (c Clause) Mandatory() bool {
	return c.RuleType == RuleMandatory
}

// Reference returns the full clause reference, e.g. "API 598 4".
func (c Clause) Reference() string {
	if c.Number == "" {
		return c.Standard
	}

	return c.Standard + " " + c.Number
}

// appliesTo reports whether the clause applies to the given valve type.
func (c Clause) appliesTo(valveType string) bool {
	return slices.Contains(c.AppliesTo, valveType) ||
		slices.Contains(c.AppliesTo, "All Valves")
}

// Repository indexes clauses by datasheet field, valve type, and
// standard. Immutable after construction; safe for concurrent use.
//
// Create instances with [New], [LoadFile], or [DefaultClauses].
type Repository struct {
	clauses     []Clause
	byField     map[string][]Clause
	byValveType map[string][]Clause
	byStandard  map[string][]Clause
}

// New builds a repository from the given clauses.
func New(clauses ...Clause) *Repository {
	r := &Repository{
		clauses:     clauses,
		byField:     make(map[string][]Clause),
		byValveType: make(map[string][]Clause),
		byStandard:  make(map[string][]Clause),
	}

	for _, c := range clauses {
		if c.DatasheetField != "" {
			r.byField[c.DatasheetField] = append(r.byField[c.DatasheetField], c)
		}

		for _, vt := range c.AppliesTo {
			r.byValveType[vt] = append(r.byValveType[vt], c)
		}

		r.byStandard[c.Standard] = append(r.byStandard[c.Standard], c)
	}

	return r
}

// clausesFile is the extracted-standard JSON shape.
type clausesFile struct {
	Clauses []Clause `json:"clauses"`
}

// LoadFile reads clauses from an extracted-standard JSON file.
// Clauses without a standard name are skipped.
func LoadFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadData, err)
	}

	var f clausesFile

	err = json.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	kept := make([]Clause, 0, len(f.Clauses))

	for _, c := range f.Clauses {
		if strings.TrimSpace(c.Standard) == "" {
			continue
		}

		if c.RuleType == "" {
			c.RuleType = RuleInformational
		}

		kept = append(kept, c)
	}

	return New(kept...), nil
}

// ClausesForField returns the clauses feeding a datasheet field,
// optionally filtered by valve type.
func (r *Repository) ClausesForField(field, valveType string) []Clause {
	clauses := r.byField[field]
	if valveType == "" {
		return slices.Clone(clauses)
	}

	var out []Clause

	for _, c := range clauses {
		if c.appliesTo(valveType) {
			out = append(out, c)
		}
	}

	return out
}

// ClausesForValveType returns every clause applying to a valve type,
// including universal ones.
func (r *Repository) ClausesForValveType(valveType string) []Clause {
	out := slices.Clone(r.byValveType[valveType])
	out = append(out, r.byValveType["All Valves"]...)

	return out
}

// ValueForField returns the value of the single mandatory clause
// feeding a field for the given valve type, when one exists. The value
// is the clause text, or a normative-reference form when the clause
// carries references instead of text.
func (r *Repository) ValueForField(field, valveType string) (string, Clause, bool) {
	for _, c := range r.ClausesForField(field, valveType) {
		if !c.Mandatory() {
			continue
		}

		if txt := strings.TrimSpace(c.Text); txt != "" {
			return txt, c, true
		}

		if len(c.NormativeReferences) > 0 {
			refs := c.NormativeReferences
			if len(refs) > 2 {
				refs = refs[:2]
			}

			return "As per " + strings.Join(refs, ", "), c, true
		}

		return "As per " + c.Reference(), c, true
	}

	return "", Clause{}, false
}

// ClauseByNumber returns a specific clause by standard and number.
func (r *Repository) ClauseByNumber(standard, number string) (Clause, bool) {
	for _, c := range r.byStandard[standard] {
		if c.Number == number {
			return c, true
		}
	}

	return Clause{}, false
}

// ClausesByStandard returns every clause of a standard.
func (r *Repository) ClausesByStandard(standard string) []Clause {
	return slices.Clone(r.byStandard[standard])
}

// Search returns clauses whose title or text contains the keyword,
// case-insensitively.
func (r *Repository) Search(keyword string) []Clause {
	keyword = strings.ToLower(keyword)

	var out []Clause

	for _, c := range r.clauses {
		if strings.Contains(strings.ToLower(c.Title), keyword) ||
			strings.Contains(strings.ToLower(c.Text), keyword) {
			out = append(out, c)
		}
	}

	return out
}

// NormativeReferences returns the unique normative references of every
// clause feeding a field, sorted.
func (r *Repository) NormativeReferences(field, valveType string) []string {
	seen := make(map[string]bool)

	for _, c := range r.ClausesForField(field, valveType) {
		for _, ref := range c.NormativeReferences {
			seen[ref] = true
		}
	}

	out := make([]string, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}

	slices.Sort(out)

	return out
}

// Standards returns every standard name in the repository, sorted.
func (r *Repository) Standards() []string {
	out := make([]string, 0, len(r.byStandard))
	for s := range r.byStandard {
		out = append(out, s)
	}

	slices.Sort(out)

	return out
}

// Len returns the number of clauses.
func (r *Repository) Len() int {
	return len(r.clauses)
}

// DefaultClauses returns a repository with the built-in clauses, used
// when no data directory is supplied.
func DefaultClauses() *Repository {
	return New(
		Clause{
			Standard:       "API 6D",
			Number:         "1.1",
			Title:          "General",
			RuleType:       RuleInformational,
			AppliesTo:      []string{"Ball Valve", "Gate Valve", "Check Valve", "Plug Valve"},
			DatasheetField: "valve_standard",
		},
		Clause{
			Standard:            "API 598",
			Number:              "4",
			Title:               "Testing Requirements",
			Text:                "API 598 / ASME B16.34",
			RuleType:            RuleMandatory,
			AppliesTo:           []string{"All Valves"},
			DatasheetField:      "inspection_testing",
			NormativeReferences: []string{"API 598", "ASME B16.34"},
		},
		Clause{
			Standard:            "ASME B16.10",
			Title:               "Face-to-Face Dimensions",
			Text:                "ASME B16.10",
			RuleType:            RuleMandatory,
			AppliesTo:           []string{"All Valves"},
			DatasheetField:      "face_to_face",
			NormativeReferences: []string{"ASME B16.10"},
		},
		Clause{
			Standard:       "ISO 5208",
			Number:         "4.2",
			Title:          "Leakage Rates",
			Text:           "ISO 5208 Rate A (soft seated) / API 598 (metal seated)",
			RuleType:       RuleMandatory,
			AppliesTo:      []string{"All Valves"},
			DatasheetField: "leakage_rate",
		},
		Clause{
			Standard:       "API 607",
			Number:         "6",
			Title:          "Fire Type-Testing Requirements",
			Text:           "Fire safe to API 607 / API 6FA",
			RuleType:       RuleMandatory,
			AppliesTo:      []string{"Ball Valve", "Plug Valve"},
			DatasheetField: "fire_rating",
		},
		Clause{
			Standard: "API 598",
			Number:   "5.6",
			Title:    "Hydrostatic Shell Test",
			Text:     "Shell test pressure shall be 1.5 times the maximum design pressure.",
			RuleType: RuleFormula,
			AppliesTo: []string{
				"All Valves",
			},
			DatasheetField: "hydrotest_shell",
		},
		Clause{
			Standard: "API 598",
			Number:   "5.7",
			Title:    "Hydrostatic Closure Test",
			Text:     "Closure test pressure shall be 1.1 times the maximum design pressure.",
			RuleType: RuleFormula,
			AppliesTo: []string{
				"All Valves",
			},
			DatasheetField: "hydrotest_closure",
		},
		Clause{
			Standard:       "MSS SP-25",
			Number:         "2",
			Title:          "Marking",
			Text:           "MSS SP-25",
			RuleType:       RuleMandatory,
			AppliesTo:      []string{"All Valves"},
			DatasheetField: "marking_manufacturer",
		},
	)
}
