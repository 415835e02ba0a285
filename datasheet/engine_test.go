package datasheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vdsheet/datasheet"
	"go.jacobcolvin.com/vdsheet/pms"
	"go.jacobcolvin.com/vdsheet/vds"
	"go.jacobcolvin.com/vdsheet/vdsindex"
)

// fixedClock pins GeneratedAt so outputs compare byte for byte.
func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func newTestEngine(t *testing.T, opts ...datasheet.Option) *datasheet.Engine {
	t.Helper()

	engine, err := datasheet.New(append(opts, datasheet.WithClock(fixedClock))...)
	require.NoError(t, err)

	return engine
}

// fieldValue fetches a field by name, requiring it to exist.
func fieldValue(t *testing.T, d *datasheet.Datasheet, name string) datasheet.Field {
	t.Helper()

	f, ok := d.FieldByName(name)
	require.True(t, ok, name)

	return f
}

func TestGenerateBallValve(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	d, err := engine.Generate(context.Background(), "BSFA1R")
	require.NoError(t, err)

	want := map[string]string{
		"vds_no":              "BSFA1R",
		"piping_class":        "A1",
		"size_range":          `1/2" - 24"`,
		"valve_type":          "Ball Valve, Full Bore",
		"service":             "Cooling Water, Diesel, Steam",
		"valve_standard":      "API 6D / ISO 17292",
		"pressure_class":      "ASME B16.34 Class 150",
		"design_pressure":     "19.6 barg @ 38°C",
		"design_temperature":  "-29°C to 200°C",
		"corrosion_allowance": "3 mm",
		"sour_service":        "-",
		"end_connections":     "Flanged ASME B16.5 RF",
		"face_to_face":        "ASME B16.10",
		"seat_construction":   "Soft seated, Renewable",
		"body_material":       "Cast - ASTM A216 WCB",
		"ball_material":       "Forged - ASTM A182-F316",
		"seat_material":       "Reinforced PTFE",
		"seal_material":       "Viton / HNBR",
		"stem_material":       "ASTM A182-F316",
		"gland_packing":       "Graphite, Fire safe",
		"gaskets":             "Spiral Wound SS316 / Graphite",
		"bolts":               "ASTM A193 Gr. B7",
		"nuts":                "ASTM A194 Gr. 2H",
		"inspection_testing":  "API 598 / ASME B16.34",
		"leakage_rate":        "ISO 5208 Rate A (soft seated) / API 598 (metal seated)",
		"hydrotest_shell":     "29.4 barg",
		"hydrotest_closure":   "21.6 barg",
		"fire_rating":         "Fire safe to API 607 / API 6FA",

		"marking_manufacturer":   "MSS SP-25",
		"material_certification": "EN 10204 3.1",
	}

	flat := d.Flat()
	for name, value := range want {
		assert.Equal(t, value, flat[name], name)
	}

	// The index row has no trim material, which is the only gap.
	assert.Equal(t, 39, d.Metadata.Completion.Populated)
	assert.Equal(t, 40, d.Metadata.Completion.Total)
	assert.InDelta(t, 97.5, d.Metadata.Completion.Percentage, 0.001)
	assert.Equal(t, datasheet.ValidationWarnings, d.Metadata.ValidationStatus)
	assert.Empty(t, d.Metadata.ValidationErrors)
	assert.Equal(t, []string{"trim_material: not populated"}, d.Metadata.Warnings)
	assert.Equal(t, fixedClock(), d.Metadata.GeneratedAt)
}

func TestGenerateTraceability(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	d, err := engine.Generate(context.Background(), "BSFA1R")
	require.NoError(t, err)

	bolts := fieldValue(t, d, "bolts")
	assert.Equal(t, datasheet.SourcePMSAndStandard, bolts.Traceability.SourceKind)
	assert.Equal(t, "Material Mappings", bolts.Traceability.SourceDocument)
	assert.Equal(t, "Material lookup: base=CS, nace=false, low_temp=false",
		bolts.Traceability.DerivationRule)
	assert.Equal(t, "key=CS", bolts.Traceability.Notes)
	assert.InDelta(t, 1.0, bolts.Traceability.Confidence, 0.001)

	shell := fieldValue(t, d, "hydrotest_shell")
	assert.Equal(t, datasheet.SourceCalculated, shell.Traceability.SourceKind)
	assert.Equal(t, "PMS Class A1", shell.Traceability.SourceDocument)
	assert.Equal(t, "19.6 barg @ 38°C", shell.Traceability.SourceValue)
	assert.Equal(t, "1.5 × Max Design Pressure", shell.Traceability.DerivationRule)

	f2f := fieldValue(t, d, "face_to_face")
	assert.Equal(t, "ASME B16.10", f2f.Traceability.ClauseReference)

	service := fieldValue(t, d, "service")
	assert.Equal(t, "PMS Class A1", service.Traceability.SourceDocument)

	gaskets := fieldValue(t, d, "gaskets")
	assert.Contains(t, gaskets.Traceability.Notes, "branch=end_connection=RF")

	body := fieldValue(t, d, "body_material")
	assert.Contains(t, body.Traceability.Notes, `branch=size>1.5"`)
}

func TestGenerateNACEClass(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	d, err := engine.Generate(context.Background(), "BSFB1NR")
	require.NoError(t, err)

	flat := d.Flat()
	assert.Equal(t, "NACE MR0175 / ISO 15156", flat["sour_service"])
	assert.Equal(t, "ASTM A193 Gr. B7M", flat["bolts"])
	assert.Equal(t, "ASTM A194 Gr. 2HM", flat["nuts"])
	assert.Equal(t, "ASME B16.34 Class 300", flat["pressure_class"])
	assert.Equal(t, "75.0 barg", flat["hydrotest_shell"])
	assert.Equal(t, "55.0 barg", flat["hydrotest_closure"])
	assert.Equal(t, "Forged - ASTM A182-F316L", flat["ball_material"])

	// 50.0 barg sits inside the Class 300 limit; no cross-check warning.
	for _, w := range d.Metadata.Warnings {
		assert.NotContains(t, w, "exceeds")
	}
}

func TestGenerateGateValve(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	d, err := engine.Generate(context.Background(), "GSRD1W")
	require.NoError(t, err)

	flat := d.Flat()
	assert.Equal(t, "Gate Valve, Reduced Bore", flat["valve_type"])
	assert.Equal(t, "API 6D / API 600", flat["valve_standard"])
	assert.Equal(t, "Butt Weld ASME B16.25", flat["end_connections"])
	assert.Equal(t, "Integral (welded)", flat["gaskets"])
	assert.Equal(t, "13Cr / Stellite", flat["seat_material"])
	assert.Equal(t, "ASME B16.34 Class 600", flat["pressure_class"])

	// No fire type-testing clause applies to gate valves; the
	// configured fallback fills the field.
	fire := fieldValue(t, d, "fire_rating")
	assert.Equal(t, "API 607 / API 6FA", fire.Value)
	assert.Contains(t, fire.Traceability.Notes, "configured fallback")
}

func TestGenerateMetalSeatedLowTempNACE(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	d, err := engine.Generate(context.Background(), "BSFMG1LNJ")
	require.NoError(t, err)

	flat := d.Flat()
	assert.Equal(t, "G1", flat["piping_class"])
	assert.Equal(t, "ASME B16.34 Class 2500", flat["pressure_class"])
	assert.Equal(t, "NACE MR0175 / ISO 15156", flat["sour_service"])
	assert.Equal(t, "Metal seated, hard faced, Renewable", flat["seat_construction"])
	assert.Equal(t, "Flanged ASME B16.5 RTJ", flat["end_connections"])
	assert.Equal(t, "SS316L Ring Joint", flat["gaskets"])
	assert.Equal(t, "ASTM A320 Gr. L7M", flat["bolts"])
	assert.Equal(t, "ASTM A194 Gr. 7M", flat["nuts"])

	// No representative size: the body entry keeps both branches.
	assert.Equal(t,
		`Forged - ASTM A350 LF2 (1.5" and below), Cast - ASTM A352 LCC (above 1.5")`,
		flat["body_material"])

	// No index row: the five index-sourced fields stay empty.
	assert.Equal(t, 35, d.Metadata.Completion.Populated)
	assert.InDelta(t, 87.5, d.Metadata.Completion.Percentage, 0.001)
	assert.Equal(t, datasheet.ValidationWarnings, d.Metadata.ValidationStatus)
	assert.Len(t, d.Metadata.Warnings, 5)
	assert.Contains(t, d.Metadata.Warnings[0], "MissingIndexRow")
}

func TestGenerateDecodeFailure(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	_, err := engine.Generate(context.Background(), "XYZA1R")
	require.ErrorIs(t, err, vds.ErrUnknownPrefix)

	var derr *vds.DecodeError

	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "XYZA1R", derr.VDS)
}

func TestGenerateMissingDesignPressure(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	// C1 has a rating but no design pressure.
	d, err := engine.Generate(context.Background(), "BSFC1R")
	require.NoError(t, err)

	assert.Equal(t, "ASME B16.34 Class 400", d.Flat()["pressure_class"])
	assert.Equal(t, datasheet.ValidationInvalid, d.Metadata.ValidationStatus)
	assert.Contains(t, d.Metadata.ValidationErrors,
		"design_pressure: required field not populated")
	assert.Contains(t, d.Metadata.ValidationErrors,
		"hydrotest_shell: MissingOperand (no numeric design pressure for class C1)")
	assert.Contains(t, d.Metadata.ValidationErrors,
		"hydrotest_closure: MissingOperand (no numeric design pressure for class C1)")
}

func TestGenerateCrossCheckWarning(t *testing.T) {
	t.Parallel()

	// B9 claims Class 300 but a design pressure above its limit.
	engine := newTestEngine(t, datasheet.WithPMS(pms.New(pms.Class{
		Class:              "B9",
		PressureRating:     "300#",
		BaseMaterial:       "CS",
		CorrosionAllowance: "3 mm",
		Service:            "Process",
		DesignPressureMin:  "-1.0 barg @ -29°C",
		DesignPressureMax:  "60.0 barg @ 38°C",
		DesignTempMin:      "-29°C",
		DesignTempMax:      "200°C",
	})))

	d, err := engine.Generate(context.Background(), "BSFB9R")
	require.NoError(t, err)

	assert.Contains(t, d.Metadata.Warnings,
		"design_pressure 60.0 barg exceeds ASME B16.34 Class 300 limit 51.1 barg")
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	first, err := engine.Generate(context.Background(), "BSFA1R")
	require.NoError(t, err)

	second, err := engine.Generate(context.Background(), "BSFA1R")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateTimeout(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Generate(ctx, "BSFA1R")
	require.ErrorIs(t, err, datasheet.ErrTimeout)

	_, err = engine.GenerateBatch(ctx, []string{"BSFA1R"})
	require.ErrorIs(t, err, datasheet.ErrTimeout)
}

func TestGenerateBatchMixed(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	res, err := engine.GenerateBatch(context.Background(),
		[]string{"BSFA1R", "XYZA1R", "GSRD1W"})
	require.NoError(t, err)

	require.Len(t, res.Items, 3)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)

	assert.Equal(t, "BSFA1R", res.Items[0].VDS)
	assert.Equal(t, datasheet.BatchSuccess, res.Items[0].Status)
	require.NotNil(t, res.Items[0].Datasheet)

	assert.Equal(t, "XYZA1R", res.Items[1].VDS)
	assert.Equal(t, datasheet.BatchError, res.Items[1].Status)
	assert.Nil(t, res.Items[1].Datasheet)
	assert.Contains(t, res.Items[1].Error, "unknown prefix")

	assert.Equal(t, datasheet.BatchSuccess, res.Items[2].Status)
}

func TestEngineIntrospection(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	health := engine.Health()
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.DataLoaded)
	assert.Equal(t, 7, health.PipingClasses)
	assert.Equal(t, 40, health.SchemaFields)
	assert.Positive(t, health.Clauses)
	assert.Equal(t, 4, health.IndexRows)

	caps := engine.Capabilities()
	assert.Equal(t, "Ball Valve", caps.Prefixes["BS"])
	assert.Equal(t, "Flanged ASME B16.5 RF", caps.EndConnections["R"])
	assert.Equal(t, []string{"A1", "B1", "C1", "D1", "E1", "F1", "G1"}, caps.PipingClasses)
	assert.Equal(t, []string{"150", "300", "400", "600", "900", "1500", "2500"},
		caps.PressureClasses)

	codes, total := engine.ListVDS(vdsindex.Filter{ValveType: "ball"})
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"BSFA1R", "BSFB1NR", "BSRA1R"}, codes)
}

func TestValidateAndDecode(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	require.NoError(t, engine.Validate("BSFA1R"))
	require.ErrorIs(t, engine.Validate("BSFZ9R"), vds.ErrUnknownClass)

	dec, err := engine.Decode("BSFB1NR")
	require.NoError(t, err)
	assert.True(t, dec.NACECompliant)
	assert.Equal(t, "BSFB1NR", dec.Reconstruct())
}
