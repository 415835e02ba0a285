package vds

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Sentinel errors for the decode failure kinds. Every decode failure
// wraps exactly one of these inside a [*DecodeError].
var (
	ErrUnknownPrefix        = errors.New("unknown prefix")
	ErrUnknownBore          = errors.New("unknown bore")
	ErrUnknownClass         = errors.New("unknown class")
	ErrUnknownModifier      = errors.New("unknown modifier")
	ErrUnknownEndConnection = errors.New("unknown end connection")
	ErrTruncatedVDS         = errors.New("truncated vds")
)

// DecodeError reports a VDS decode failure, naming the failure kind and
// the offending segment.
type DecodeError struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// VDS is the normalized input.
	VDS string
	// Segment is the offending portion of the input, if any.
	Segment string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.VDS)
	}

	return fmt.Sprintf("%v: %q in %s", e.Kind, e.Segment, e.VDS)
}

// Unwrap returns the failure kind for [errors.Is] matching.
func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// Decoded is a fully parsed VDS number. It is a value; callers own it
// and it is never mutated after [Decoder.Decode] returns.
type Decoded struct {
	// Raw is the normalized (uppercased, trailing-space-stripped) input.
	Raw string `json:"vds_no"`
	// Prefix is the valve-type prefix code, e.g. "BS".
	Prefix string `json:"valve_type_prefix"`
	// PrefixName is the valve type name, e.g. "Ball Valve".
	PrefixName string `json:"valve_type_name"`
	// Bore is the bore code, e.g. "F".
	Bore string `json:"bore_type"`
	// BoreName is the bore description, e.g. "Full Bore".
	BoreName string `json:"bore_type_name"`
	// HasMetalFlag reports that a separate M character was consumed
	// after the bore letter.
	HasMetalFlag bool `json:"-"`
	// PipingClass is the class code without modifiers, e.g. "A1".
	PipingClass string `json:"piping_class"`
	// Modifiers holds the modifier letters in the order consumed.
	Modifiers []string `json:"modifiers"`
	// EndConnection is the end-connection code, e.g. "R".
	EndConnection string `json:"end_connection"`
	// EndConnectionName is the short form, e.g. "RF".
	EndConnectionName string `json:"end_connection_name"`
	// EndConnectionDescription is the datasheet form, e.g.
	// "Flanged ASME B16.5 RF".
	EndConnectionDescription string `json:"end_connection_description"`
	// NACECompliant is set by the N modifier.
	NACECompliant bool `json:"is_nace_compliant"`
	// LowTemp is set by the L modifier.
	LowTemp bool `json:"is_low_temp"`
	// MetalSeated is set by the M bore or the separate M flag.
	MetalSeated bool `json:"is_metal_seated"`
	// PrimaryStandard is the design standard of the valve type, e.g.
	// "API 6D / ISO 17292".
	PrimaryStandard string `json:"primary_standard"`
}

// ValveType returns the combined valve type description, e.g.
// "Ball Valve, Full Bore".
func (d *Decoded) ValveType() string {
	return d.PrefixName + ", " + d.BoreName
}

// Reconstruct rebuilds the raw VDS string from the decoded segments.
// For any successfully decoded input, Reconstruct() == Raw.
func (d *Decoded) Reconstruct() string {
	var sb strings.Builder

	sb.WriteString(d.Prefix)
	sb.WriteString(d.Bore)

	if d.HasMetalFlag {
		sb.WriteString("M")
	}

	sb.WriteString(d.PipingClass)

	for _, m := range d.Modifiers {
		sb.WriteString(m)
	}

	sb.WriteString(d.EndConnection)

	return sb.String()
}

// ModifierNames returns the names of the active modifiers, e.g.
// ["Low Temperature", "NACE Compliant"].
func (d *Decoded) ModifierNames(rules *Rules) []string {
	names := make([]string, 0, len(d.Modifiers))
	for _, m := range d.Modifiers {
		names = append(names, rules.Modifiers[m].Name)
	}

	return names
}

// ClassSet confirms piping-class existence during decoding.
// [*pms.Repository] satisfies it.
type ClassSet interface {
	ClassExists(class string) bool
}

// Decoder parses VDS numbers according to a [Rules] grammar.
//
// Create instances with [NewDecoder]. A Decoder is immutable and safe
// for concurrent use.
type Decoder struct {
	rules      *Rules
	classes    ClassSet
	classRE    *regexp.Regexp
	prefixLens []int
}

// DecoderOption configures a [Decoder].
type DecoderOption func(*Decoder)

// WithClasses makes the decoder confirm that the parsed piping class
// exists; unknown classes fail with [ErrUnknownClass].
func WithClasses(cs ClassSet) DecoderOption {
	return func(d *Decoder) {
		d.classes = cs
	}
}

// NewDecoder creates a [Decoder] for the given grammar.
func NewDecoder(rules *Rules, opts ...DecoderOption) (*Decoder, error) {
	err := rules.Validate()
	if err != nil {
		return nil, err
	}

	classRE, err := regexp.Compile(rules.classPattern())
	if err != nil {
		return nil, fmt.Errorf("%w: piping class pattern: %w", ErrInvalidRules, err)
	}

	var lens []int

	for code := range rules.Prefixes {
		if !slices.Contains(lens, len(code)) {
			lens = append(lens, len(code))
		}
	}

	// Longest match first.
	slices.SortFunc(lens, func(a, b int) int { return b - a })

	d := &Decoder{
		rules:      rules,
		classRE:    classRE,
		prefixLens: lens,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Rules returns the grammar the decoder was built from.
func (d *Decoder) Rules() *Rules {
	return d.rules
}

// Decode parses a VDS number, greedy and left to right. Input is
// case-insensitive; trailing whitespace is stripped, leading or
// embedded whitespace is rejected.
func (d *Decoder) Decode(input string) (*Decoded, error) {
	raw := strings.ToUpper(strings.TrimRight(input, " \t\r\n"))

	if raw == "" {
		return nil, &DecodeError{Kind: ErrTruncatedVDS, VDS: raw}
	}

	prefix, prefixCfg, ok := d.matchPrefix(raw)
	if !ok {
		seg := raw
		if len(seg) > 3 {
			seg = seg[:3]
		}

		return nil, &DecodeError{Kind: ErrUnknownPrefix, VDS: raw, Segment: seg}
	}

	rest := raw[len(prefix):]

	// Shortest possible remainder: bore + minimal class + end connection.
	if len(rest) < 4 {
		return nil, &DecodeError{Kind: ErrTruncatedVDS, VDS: raw, Segment: rest}
	}

	bore := rest[:1]

	boreCfg, ok := d.rules.Bores[bore]
	if !ok {
		return nil, &DecodeError{Kind: ErrUnknownBore, VDS: raw, Segment: bore}
	}

	rest = rest[1:]

	// A separate metal-seated flag is consumed only for valve types
	// configured with one, only when the bore itself is not M, and only
	// when a piping class still follows (M may legitimately start a
	// class code).
	hasMetalFlag := false
	if prefixCfg.MetalSeatedFlag && bore != "M" &&
		strings.HasPrefix(rest, "M") && d.classRE.MatchString(rest[1:]) {
		hasMetalFlag = true
		rest = rest[1:]
	}

	class := d.classRE.FindString(rest)
	if class == "" {
		return nil, &DecodeError{Kind: ErrUnknownClass, VDS: raw, Segment: rest}
	}

	if d.classes != nil && !d.classes.ClassExists(class) {
		return nil, &DecodeError{Kind: ErrUnknownClass, VDS: raw, Segment: class}
	}

	rest = rest[len(class):]

	if rest == "" {
		return nil, &DecodeError{Kind: ErrTruncatedVDS, VDS: raw, Segment: class}
	}

	end := rest[len(rest)-1:]

	endCfg, ok := d.rules.EndConnections[end]
	if !ok {
		return nil, &DecodeError{Kind: ErrUnknownEndConnection, VDS: raw, Segment: end}
	}

	var (
		modifiers []string
		nace      bool
		lowTemp   bool
	)

	for _, c := range strings.Split(rest[:len(rest)-1], "") {
		if _, ok := d.rules.Modifiers[c]; !ok {
			return nil, &DecodeError{Kind: ErrUnknownModifier, VDS: raw, Segment: c}
		}

		modifiers = append(modifiers, c)

		switch c {
		case "N":
			nace = true
		case "L":
			lowTemp = true
		}
	}

	return &Decoded{
		Raw:                      raw,
		Prefix:                   prefix,
		PrefixName:               prefixCfg.Name,
		Bore:                     bore,
		BoreName:                 boreCfg.Name,
		HasMetalFlag:             hasMetalFlag,
		PipingClass:              class,
		Modifiers:                modifiers,
		EndConnection:            end,
		EndConnectionName:        endCfg.Name,
		EndConnectionDescription: endCfg.Description,
		NACECompliant:            nace,
		LowTemp:                  lowTemp,
		MetalSeated:              hasMetalFlag || bore == "M",
		PrimaryStandard:          prefixCfg.Standard,
	}, nil
}

// Validate reports whether the input decodes, without returning the
// decoded value. The returned error is nil for valid input.
func (d *Decoder) Validate(input string) error {
	_, err := d.Decode(input)

	return err
}

func (d *Decoder) matchPrefix(raw string) (string, Prefix, bool) {
	for _, n := range d.prefixLens {
		if len(raw) < n {
			continue
		}

		code := raw[:n]
		if cfg, ok := d.rules.Prefixes[code]; ok {
			return code, cfg, true
		}
	}

	return "", Prefix{}, false
}
