package vds_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vdsheet/vds"
)

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	rules := vds.DefaultRules()
	require.NoError(t, rules.Validate())

	assert.Equal(t, []string{"BS", "CS", "GLS", "GS", "PS"}, rules.PrefixCodes())
	assert.Equal(t, []string{"F", "M", "R"}, rules.BoreCodes())
	assert.Equal(t, []string{"F", "J", "R", "S", "W"}, rules.EndConnectionCodes())
	assert.Equal(t, []string{"L", "N"}, rules.ModifierCodes())
}

func TestLoadRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
valve_type_prefixes:
  BS:
    name: Ball Valve
    standard: API 6D
bore_types:
  F:
    name: Full Bore
end_connections:
  R:
    name: RF
    description: Flanged ASME B16.5 RF
modifiers:
  N:
    name: NACE Compliant
`), 0o644))

	rules, err := vds.LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "Ball Valve", rules.Prefixes["BS"].Name)
	assert.Equal(t, "Flanged ASME B16.5 RF", rules.EndConnections["R"].Description)
}

func TestLoadRulesErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content string
		kind    error
	}{
		"malformed yaml": {
			content: "valve_type_prefixes: [",
			kind:    vds.ErrInvalidRules,
		},
		"no prefixes": {
			content: "bore_types:\n  F:\n    name: Full Bore\n",
			kind:    vds.ErrInvalidRules,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "rules.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			_, err := vds.LoadRules(path)
			require.ErrorIs(t, err, tc.kind)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := vds.LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
		require.ErrorIs(t, err, vds.ErrReadRules)
	})
}

func TestRulesValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		mutate func(*vds.Rules)
	}{
		"prefix too short": {
			mutate: func(r *vds.Rules) {
				r.Prefixes["B"] = vds.Prefix{Name: "Bad"}
			},
		},
		"prefix too long": {
			mutate: func(r *vds.Rules) {
				r.Prefixes["BSXX"] = vds.Prefix{Name: "Bad"}
			},
		},
		"multi character bore": {
			mutate: func(r *vds.Rules) {
				r.Bores["FF"] = vds.Bore{Name: "Bad"}
			},
		},
		"multi character end connection": {
			mutate: func(r *vds.Rules) {
				r.EndConnections["RR"] = vds.EndConnection{Name: "Bad"}
			},
		},
		"multi character modifier": {
			mutate: func(r *vds.Rules) {
				r.Modifiers["NN"] = vds.Modifier{Name: "Bad"}
			},
		},
		"bad class pattern": {
			mutate: func(r *vds.Rules) {
				r.ClassPattern = "["
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rules := vds.DefaultRules()
			tc.mutate(rules)
			require.ErrorIs(t, rules.Validate(), vds.ErrInvalidRules)
		})
	}
}

func TestCustomClassPattern(t *testing.T) {
	t.Parallel()

	rules := vds.DefaultRules()
	rules.ClassPattern = `^[A-Z][0-9]+[XY]?`

	dec, err := vds.NewDecoder(rules)
	require.NoError(t, err)

	got, err := dec.Decode("BSFA1XR")
	require.NoError(t, err)
	assert.Equal(t, "A1X", got.PipingClass)
}
