package vds_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vdsheet/vds"
)

// classSet is a fixed piping-class set for decoder tests.
type classSet map[string]bool

func (c classSet) ClassExists(class string) bool {
	return c[class]
}

func TestDecode(t *testing.T) {
	t.Parallel()

	dec, err := vds.NewDecoder(vds.DefaultRules())
	require.NoError(t, err)

	tcs := map[string]struct {
		input string
		want  vds.Decoded
	}{
		"ball full bore flanged": {
			input: "BSFA1R",
			want: vds.Decoded{
				Raw:                      "BSFA1R",
				Prefix:                   "BS",
				PrefixName:               "Ball Valve",
				Bore:                     "F",
				BoreName:                 "Full Bore",
				PipingClass:              "A1",
				EndConnection:            "R",
				EndConnectionName:        "RF",
				EndConnectionDescription: "Flanged ASME B16.5 RF",
				PrimaryStandard:          "API 6D / ISO 17292",
			},
		},
		"nace modifier": {
			input: "BSFB1NR",
			want: vds.Decoded{
				Raw:                      "BSFB1NR",
				Prefix:                   "BS",
				PrefixName:               "Ball Valve",
				Bore:                     "F",
				BoreName:                 "Full Bore",
				PipingClass:              "B1",
				Modifiers:                []string{"N"},
				EndConnection:            "R",
				EndConnectionName:        "RF",
				EndConnectionDescription: "Flanged ASME B16.5 RF",
				NACECompliant:            true,
				PrimaryStandard:          "API 6D / ISO 17292",
			},
		},
		"gate reduced bore butt weld": {
			input: "GSRD1W",
			want: vds.Decoded{
				Raw:                      "GSRD1W",
				Prefix:                   "GS",
				PrefixName:               "Gate Valve",
				Bore:                     "R",
				BoreName:                 "Reduced Bore",
				PipingClass:              "D1",
				EndConnection:            "W",
				EndConnectionName:        "BW",
				EndConnectionDescription: "Butt Weld ASME B16.25",
				PrimaryStandard:          "API 6D / API 600",
			},
		},
		"metal flag with modifiers": {
			input: "BSFMG1LNJ",
			want: vds.Decoded{
				Raw:                      "BSFMG1LNJ",
				Prefix:                   "BS",
				PrefixName:               "Ball Valve",
				Bore:                     "F",
				BoreName:                 "Full Bore",
				HasMetalFlag:             true,
				PipingClass:              "G1",
				Modifiers:                []string{"L", "N"},
				EndConnection:            "J",
				EndConnectionName:        "RTJ",
				EndConnectionDescription: "Flanged ASME B16.5 RTJ",
				NACECompliant:            true,
				LowTemp:                  true,
				MetalSeated:              true,
				PrimaryStandard:          "API 6D / ISO 17292",
			},
		},
		"metal bore without flag": {
			input: "BSMA1R",
			want: vds.Decoded{
				Raw:                      "BSMA1R",
				Prefix:                   "BS",
				PrefixName:               "Ball Valve",
				Bore:                     "M",
				BoreName:                 "Full Bore",
				PipingClass:              "A1",
				EndConnection:            "R",
				EndConnectionName:        "RF",
				EndConnectionDescription: "Flanged ASME B16.5 RF",
				MetalSeated:              true,
				PrimaryStandard:          "API 6D / ISO 17292",
			},
		},
		"class starting with m is not a flag": {
			input: "BSFM1R",
			want: vds.Decoded{
				Raw:                      "BSFM1R",
				Prefix:                   "BS",
				PrefixName:               "Ball Valve",
				Bore:                     "F",
				BoreName:                 "Full Bore",
				PipingClass:              "M1",
				EndConnection:            "R",
				EndConnectionName:        "RF",
				EndConnectionDescription: "Flanged ASME B16.5 RF",
				PrimaryStandard:          "API 6D / ISO 17292",
			},
		},
		"three letter prefix wins longest match": {
			input: "GLSFA1R",
			want: vds.Decoded{
				Raw:                      "GLSFA1R",
				Prefix:                   "GLS",
				PrefixName:               "Globe Valve",
				Bore:                     "F",
				BoreName:                 "Full Bore",
				PipingClass:              "A1",
				EndConnection:            "R",
				EndConnectionName:        "RF",
				EndConnectionDescription: "Flanged ASME B16.5 RF",
				PrimaryStandard:          "API 602 / BS 1873",
			},
		},
		"lowercase input": {
			input: "bsfa1r",
			want: vds.Decoded{
				Raw:                      "BSFA1R",
				Prefix:                   "BS",
				PrefixName:               "Ball Valve",
				Bore:                     "F",
				BoreName:                 "Full Bore",
				PipingClass:              "A1",
				EndConnection:            "R",
				EndConnectionName:        "RF",
				EndConnectionDescription: "Flanged ASME B16.5 RF",
				PrimaryStandard:          "API 6D / ISO 17292",
			},
		},
		"trailing whitespace stripped": {
			input: "BSFA1R \n",
			want: vds.Decoded{
				Raw:                      "BSFA1R",
				Prefix:                   "BS",
				PrefixName:               "Ball Valve",
				Bore:                     "F",
				BoreName:                 "Full Bore",
				PipingClass:              "A1",
				EndConnection:            "R",
				EndConnectionName:        "RF",
				EndConnectionDescription: "Flanged ASME B16.5 RF",
				PrimaryStandard:          "API 6D / ISO 17292",
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := dec.Decode(tc.input)
			require.NoError(t, err)
			assert.Equal(t, &tc.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	dec, err := vds.NewDecoder(vds.DefaultRules())
	require.NoError(t, err)

	tcs := map[string]struct {
		input string
		kind  error
	}{
		"unknown prefix":         {input: "XYZA1R", kind: vds.ErrUnknownPrefix},
		"leading whitespace":     {input: " BSFA1R", kind: vds.ErrUnknownPrefix},
		"empty input":            {input: "", kind: vds.ErrTruncatedVDS},
		"prefix only":            {input: "BS", kind: vds.ErrTruncatedVDS},
		"missing end connection": {input: "BSFA1", kind: vds.ErrTruncatedVDS},
		"unknown bore":           {input: "BSXA1R", kind: vds.ErrUnknownBore},
		"unknown class":          {input: "BSF11R", kind: vds.ErrUnknownClass},
		"unknown modifier":       {input: "BSFA1XR", kind: vds.ErrUnknownModifier},
		"unknown end connection": {input: "BSFA1NZ", kind: vds.ErrUnknownEndConnection},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := dec.Decode(tc.input)
			require.Error(t, err)
			require.ErrorIs(t, err, tc.kind)

			var derr *vds.DecodeError

			require.ErrorAs(t, err, &derr)
			assert.NotEmpty(t, derr.Error())
		})
	}
}

func TestDecodeWithClasses(t *testing.T) {
	t.Parallel()

	dec, err := vds.NewDecoder(vds.DefaultRules(),
		vds.WithClasses(classSet{"A1": true}))
	require.NoError(t, err)

	got, err := dec.Decode("BSFA1R")
	require.NoError(t, err)
	assert.Equal(t, "A1", got.PipingClass)

	_, err = dec.Decode("BSFB1R")
	require.ErrorIs(t, err, vds.ErrUnknownClass)
}

func TestReconstructRoundTrip(t *testing.T) {
	t.Parallel()

	dec, err := vds.NewDecoder(vds.DefaultRules())
	require.NoError(t, err)

	for _, input := range []string{
		"BSFA1R", "BSRA1R", "BSFB1NR", "GSRD1W", "BSFMG1LNJ",
		"BSMA1R", "BSFM1R", "GLSFA1R", "CSFE1S", "PSRF1LF",
	} {
		got, err := dec.Decode(input)
		require.NoError(t, err, input)
		assert.Equal(t, input, got.Reconstruct(), input)
	}
}

func TestModifierNames(t *testing.T) {
	t.Parallel()

	rules := vds.DefaultRules()

	dec, err := vds.NewDecoder(rules)
	require.NoError(t, err)

	got, err := dec.Decode("BSFG1LNJ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Low Temperature", "NACE Compliant"}, got.ModifierNames(rules))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	dec, err := vds.NewDecoder(vds.DefaultRules())
	require.NoError(t, err)

	require.NoError(t, dec.Validate("BSFA1R"))
	require.ErrorIs(t, dec.Validate("XYZA1R"), vds.ErrUnknownPrefix)
}
