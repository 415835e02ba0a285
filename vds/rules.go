package vds

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"

	"github.com/goccy/go-yaml"
)

// Sentinel errors for rule loading and validation.
var (
	ErrInvalidRules = errors.New("invalid vds rules")
	ErrReadRules    = errors.New("read vds rules")
)

// defaultClassPattern matches a piping class at the start of a string:
// a class letter followed by one or more digits (A1, B1, G20).
const defaultClassPattern = `^[A-Z][0-9]+`

// Prefix describes a valve-type prefix (2 or 3 letters).
type Prefix struct {
	// Name is the full valve type name, e.g. "Ball Valve".
	Name string `yaml:"name"`
	// Standard is the primary design standard, e.g. "API 6D / ISO 17292".
	Standard string `yaml:"standard"`
	// MetalSeatedFlag marks valve types where metal seating is encoded
	// as a separate M character after the bore letter.
	MetalSeatedFlag bool `yaml:"metal_seated_flag"`
}

// Bore describes a single-character bore type.
type Bore struct {
	// Name is the bore description used in the valve type string,
	// e.g. "Full Bore".
	Name string `yaml:"name"`
}

// EndConnection describes a single-character end-connection code.
type EndConnection struct {
	// Name is the short form, e.g. "RF".
	Name string `yaml:"name"`
	// Description is the datasheet form, e.g. "Flanged ASME B16.5 RF".
	Description string `yaml:"description"`
}

// Modifier describes a single-letter modifier between the piping class
// and the end connection.
type Modifier struct {
	Name string `yaml:"name"`
}

// Rules is the declarative VDS grammar.
//
// Load instances from YAML with [LoadRules], or use [DefaultRules].
type Rules struct {
	Prefixes       map[string]Prefix        `yaml:"valve_type_prefixes"`
	Bores          map[string]Bore          `yaml:"bore_types"`
	EndConnections map[string]EndConnection `yaml:"end_connections"`
	Modifiers      map[string]Modifier      `yaml:"modifiers"`
	// ClassPattern overrides the piping class regular expression.
	// Empty uses the default letter-plus-digits pattern.
	ClassPattern string `yaml:"piping_class_pattern"`
}

// DefaultRules returns the built-in grammar, used when no
// vds_rules.yaml is supplied.
func DefaultRules() *Rules {
	return &Rules{
		Prefixes: map[string]Prefix{
			"BS":  {Name: "Ball Valve", Standard: "API 6D / ISO 17292", MetalSeatedFlag: true},
			"GS":  {Name: "Gate Valve", Standard: "API 6D / API 600"},
			"CS":  {Name: "Check Valve", Standard: "API 6D / API 594"},
			"PS":  {Name: "Plug Valve", Standard: "API 6D / API 599"},
			"GLS": {Name: "Globe Valve", Standard: "API 602 / BS 1873"},
		},
		Bores: map[string]Bore{
			"F": {Name: "Full Bore"},
			"R": {Name: "Reduced Bore"},
			// A bore of M means metal-seated full bore; no separate
			// flag character is consumed.
			"M": {Name: "Full Bore"},
		},
		EndConnections: map[string]EndConnection{
			"R": {Name: "RF", Description: "Flanged ASME B16.5 RF"},
			"J": {Name: "RTJ", Description: "Flanged ASME B16.5 RTJ"},
			"F": {Name: "FF", Description: "Flanged ASME B16.5 FF"},
			"W": {Name: "BW", Description: "Butt Weld ASME B16.25"},
			"S": {Name: "SW", Description: "Socket Weld ASME B16.11"},
		},
		Modifiers: map[string]Modifier{
			"N": {Name: "NACE Compliant"},
			"L": {Name: "Low Temperature"},
		},
	}
}

// LoadRules reads and validates a grammar from a YAML file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadRules, err)
	}

	var r Rules

	err = yaml.Unmarshal(data, &r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}

	err = r.Validate()
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// Validate checks that the grammar has every required section and that
// the class pattern compiles.
func (r *Rules) Validate() error {
	if len(r.Prefixes) == 0 {
		return fmt.Errorf("%w: no valve type prefixes", ErrInvalidRules)
	}

	if len(r.Bores) == 0 {
		return fmt.Errorf("%w: no bore types", ErrInvalidRules)
	}

	if len(r.EndConnections) == 0 {
		return fmt.Errorf("%w: no end connections", ErrInvalidRules)
	}

	for code := range r.Prefixes {
		if len(code) < 2 || len(code) > 3 {
			return fmt.Errorf("%w: prefix %q must be 2 or 3 characters", ErrInvalidRules, code)
		}
	}

	for code := range r.Bores {
		if len(code) != 1 {
			return fmt.Errorf("%w: bore code %q must be a single character", ErrInvalidRules, code)
		}
	}

	for code := range r.EndConnections {
		if len(code) != 1 {
			return fmt.Errorf("%w: end connection code %q must be a single character", ErrInvalidRules, code)
		}
	}

	for code := range r.Modifiers {
		if len(code) != 1 {
			return fmt.Errorf("%w: modifier code %q must be a single character", ErrInvalidRules, code)
		}
	}

	_, err := regexp.Compile(r.classPattern())
	if err != nil {
		return fmt.Errorf("%w: piping class pattern: %w", ErrInvalidRules, err)
	}

	return nil
}

func (r *Rules) classPattern() string {
	if r.ClassPattern != "" {
		return r.ClassPattern
	}

	return defaultClassPattern
}

// PrefixCodes returns the configured prefix codes, sorted.
func (r *Rules) PrefixCodes() []string {
	return sortedKeys(r.Prefixes)
}

// BoreCodes returns the configured bore codes, sorted.
func (r *Rules) BoreCodes() []string {
	return sortedKeys(r.Bores)
}

// EndConnectionCodes returns the configured end-connection codes, sorted.
func (r *Rules) EndConnectionCodes() []string {
	return sortedKeys(r.EndConnections)
}

// ModifierCodes returns the configured modifier codes, sorted.
func (r *Rules) ModifierCodes() []string {
	return sortedKeys(r.Modifiers)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
