package datasheet

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// Sentinel errors.
var (
	ErrReadMaterials    = errors.New("read material maps")
	ErrInvalidMaterials = errors.New("invalid material maps")
	ErrUnknownMaterial  = errors.New("unknown material")
	ErrUnknownComponent = errors.New("unknown component")
)

// Component is one material-map entry. Exactly one of the three forms
// is set: a plain spec, a per-end-connection table, or a forged/cast
// pair split on a size threshold.
type Component struct {
	Spec            string
	ByEndConnection map[string]string
	Forged          string
	Cast            string
	SizeThreshold   float64
}

// componentYAML is the body-form shape.
type componentYAML struct {
	Forged        string  `yaml:"forged"`
	Cast          string  `yaml:"cast"`
	SizeThreshold float64 `yaml:"size_threshold"`
}

// UnmarshalYAML accepts a scalar spec, a forged/cast map, or an
// end-connection map.
func (c *Component) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err == nil {
		c.Spec = s

		return nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return err
	}

	_, forged := raw["forged"]
	_, cast := raw["cast"]

	if forged || cast {
		var body componentYAML
		if err := yaml.Unmarshal(b, &body); err != nil {
			return err
		}

		c.Forged = body.Forged
		c.Cast = body.Cast
		c.SizeThreshold = body.SizeThreshold

		return nil
	}

	byEnd := make(map[string]string, len(raw))

	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("component entry %q: expected string, got %T", k, v)
		}

		byEnd[strings.ToUpper(k)] = s
	}

	c.ByEndConnection = byEnd

	return nil
}

// MaterialMap is the component table for one material key. A map may
// inherit another map's components; inheritance is single level, so a
// parent may not itself inherit.
type MaterialMap struct {
	Inherits   string               `yaml:"inherits"`
	Components map[string]Component `yaml:"components"`
}

// Maps holds every material map keyed by material key (CS, CS_NACE,
// LTCS, LTCS_NACE, ...). Immutable after construction.
//
// Create instances with [LoadMaterials] or [DefaultMaterials].
type Maps struct {
	maps map[string]MaterialMap
}

// materialsFile is the YAML shape.
type materialsFile struct {
	BaseMaterials map[string]MaterialMap `yaml:"base_materials"`
}

// LoadMaterials reads and validates material maps from YAML.
func LoadMaterials(path string) (*Maps, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadMaterials, err)
	}

	var f materialsFile

	err = yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMaterials, err)
	}

	m := &Maps{maps: f.BaseMaterials}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMaps builds material maps from explicit entries. Used by tests.
func NewMaps(maps map[string]MaterialMap) (*Maps, error) {
	m := &Maps{maps: maps}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks that every inherits target exists and does not itself
// inherit. Rejecting inheriting parents keeps resolution single level
// and rules out cycles.
func (m *Maps) Validate() error {
	for key, mm := range m.maps {
		if mm.Inherits == "" {
			continue
		}

		if mm.Inherits == key {
			return fmt.Errorf("%w: map %q inherits itself", ErrInvalidMaterials, key)
		}

		parent, ok := m.maps[mm.Inherits]
		if !ok {
			return fmt.Errorf("%w: map %q inherits unknown map %q",
				ErrInvalidMaterials, key, mm.Inherits)
		}

		if parent.Inherits != "" {
			return fmt.Errorf("%w: map %q inherits %q, which itself inherits %q",
				ErrInvalidMaterials, key, mm.Inherits, parent.Inherits)
		}
	}

	return nil
}

// Keys returns every material key, sorted.
func (m *Maps) Keys() []string {
	out := make([]string, 0, len(m.maps))
	for k := range m.maps {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}

// HasComponent reports whether any map defines the component.
func (m *Maps) HasComponent(component string) bool {
	for key := range m.maps {
		if _, ok := m.components(key)[component]; ok {
			return true
		}
	}

	return false
}

// ComposeKey derives the material key from the PMS base material and
// the decoded service flags: NACE appends "_NACE", low temperature
// prepends "LT".
func ComposeKey(base string, nace, lowTemp bool) string {
	key := strings.ToUpper(strings.TrimSpace(base))

	if lowTemp {
		key = "LT" + key
	}

	if nace {
		key += "_NACE"
	}

	return key
}

// fallbackKeys returns the lookup chain for the composed key, from most
// to least specific: both flags, then NACE only, then the base.
func fallbackKeys(base string, nace, lowTemp bool) []string {
	keys := []string{ComposeKey(base, nace, lowTemp)}

	if nace && lowTemp {
		keys = append(keys, ComposeKey(base, true, false))
	}

	if nace || lowTemp {
		keys = append(keys, ComposeKey(base, false, false))
	}

	return keys
}

// components returns the merged component table for a key, parent
// entries overlaid by the map's own.
func (m *Maps) components(key string) map[string]Component {
	mm, ok := m.maps[key]
	if !ok {
		return nil
	}

	merged := make(map[string]Component)

	if mm.Inherits != "" {
		for k, v := range m.maps[mm.Inherits].Components {
			merged[k] = v
		}
	}

	for k, v := range mm.Components {
		merged[k] = v
	}

	return merged
}

// Selection is the outcome of one material lookup, carrying everything
// traceability needs.
type Selection struct {
	Value string
	// Key is the composed material key; UsedKey is the map that
	// actually served the lookup after ancestor fallback.
	Key     string
	UsedKey string
	// Branch names the end-connection or size branch taken, if any.
	Branch string
}

// Select resolves one component for the composed material key. endConn
// is the end-connection short name (RF, RTJ, ...) for per-connection
// components; size is the representative size in inches for
// forged/cast components, with haveSize false when no size is known.
func (m *Maps) Select(base string, nace, lowTemp bool, component, endConn string, size float64, haveSize bool) (Selection, error) {
	keys := fallbackKeys(base, nace, lowTemp)
	sel := Selection{Key: keys[0]}

	for _, key := range keys {
		comps := m.components(key)
		if comps == nil {
			continue
		}

		c, ok := comps[component]
		if !ok {
			return sel, fmt.Errorf("%w: %s has no component %q",
				ErrUnknownComponent, key, component)
		}

		sel.UsedKey = key

		return m.pick(sel, c, endConn, size, haveSize)
	}

	return sel, fmt.Errorf("%w: no material map for key %s (base %s)",
		ErrUnknownMaterial, keys[0], base)
}

func (m *Maps) pick(sel Selection, c Component, endConn string, size float64, haveSize bool) (Selection, error) {
	switch {
	case c.Spec != "":
		sel.Value = c.Spec
	case c.ByEndConnection != nil:
		v, ok := c.ByEndConnection[strings.ToUpper(endConn)]
		if !ok {
			return sel, fmt.Errorf("%w: no entry for end connection %q",
				ErrUnknownComponent, endConn)
		}

		sel.Value = v
		sel.Branch = "end_connection=" + strings.ToUpper(endConn)
	default:
		threshold := c.SizeThreshold
		if threshold == 0 {
			threshold = 1.5
		}

		switch {
		case !haveSize:
			sel.Value = fmt.Sprintf(`Forged - %s (%g" and below), Cast - %s (above %g")`,
				c.Forged, threshold, c.Cast, threshold)
			sel.Branch = "size=unknown"
		case size <= threshold:
			sel.Value = "Forged - " + c.Forged
			sel.Branch = fmt.Sprintf(`size<=%g"`, threshold)
		default:
			sel.Value = "Cast - " + c.Cast
			sel.Branch = fmt.Sprintf(`size>%g"`, threshold)
		}
	}

	return sel, nil
}

// DefaultMaterials returns the built-in material maps, mirroring
// config/material_mappings.yaml. Every service variant inherits CS
// directly so resolution stays single level.
func DefaultMaterials() *Maps {
	m := &Maps{maps: map[string]MaterialMap{
		"CS": {
			Components: map[string]Component{
				"body": {Forged: "ASTM A105N", Cast: "ASTM A216 WCB", SizeThreshold: 1.5},
				"stem": {Spec: "ASTM A182-F316"},
				"gland_packing": {
					Spec: "Graphite, Fire safe",
				},
				"gaskets": {ByEndConnection: map[string]string{
					"RF":  "Spiral Wound SS316 / Graphite",
					"FF":  "CNAF Full Face",
					"RTJ": "SS316L Ring Joint",
					"BW":  "Integral (welded)",
					"SW":  "Integral (welded)",
				}},
				"bolts": {Spec: "ASTM A193 Gr. B7"},
				"nuts":  {Spec: "ASTM A194 Gr. 2H"},
			},
		},
		"CS_NACE": {
			Inherits: "CS",
			Components: map[string]Component{
				"bolts": {Spec: "ASTM A193 Gr. B7M"},
				"nuts":  {Spec: "ASTM A194 Gr. 2HM"},
			},
		},
		"LTCS": {
			Inherits: "CS",
			Components: map[string]Component{
				"body":  {Forged: "ASTM A350 LF2", Cast: "ASTM A352 LCC", SizeThreshold: 1.5},
				"bolts": {Spec: "ASTM A320 Gr. L7"},
				"nuts":  {Spec: "ASTM A194 Gr. 7"},
			},
		},
		"LTCS_NACE": {
			Inherits: "CS",
			Components: map[string]Component{
				"body":  {Forged: "ASTM A350 LF2", Cast: "ASTM A352 LCC", SizeThreshold: 1.5},
				"bolts": {Spec: "ASTM A320 Gr. L7M"},
				"nuts":  {Spec: "ASTM A194 Gr. 7M"},
			},
		},
	}}

	return m
}
