package pms_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vdsheet/pms"
)

func TestRatingNumeric(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		class pms.Class
		want  int
		ok    bool
	}{
		"hash suffix":          {class: pms.Class{PressureRating: "150#"}, want: 150, ok: true},
		"lb suffix":            {class: pms.Class{PressureRating: "300lb"}, want: 300, ok: true},
		"bare number":          {class: pms.Class{PressureRating: "600"}, want: 600, ok: true},
		"padded":               {class: pms.Class{PressureRating: " 900# "}, want: 900, ok: true},
		"letter derived":       {class: pms.Class{Class: "G1", PressureRating: "special"}, want: 2500, ok: true},
		"no rating no letter":  {class: pms.Class{PressureRating: "special"}, ok: false},
		"unknown class letter": {class: pms.Class{Class: "Z9", PressureRating: "special"}, ok: false},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := tc.class.RatingNumeric()
			assert.Equal(t, tc.ok, ok)

			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDesignPressureValue(t *testing.T) {
	t.Parallel()

	c := pms.Class{DesignPressureMax: "19.6 barg @ 38°C"}

	v, ok := c.DesignPressureValue()
	require.True(t, ok)
	assert.InDelta(t, 19.6, v, 0.001)

	_, ok = pms.Class{}.DesignPressureValue()
	assert.False(t, ok)
}

func TestDefaultClasses(t *testing.T) {
	t.Parallel()

	repo := pms.DefaultClasses()

	assert.Equal(t, 7, repo.Len())
	assert.Equal(t, []string{"A1", "B1", "C1", "D1", "E1", "F1", "G1"}, repo.AllClasses())
	assert.True(t, repo.ClassExists("A1"))
	assert.True(t, repo.ClassExists("a1"))
	assert.False(t, repo.ClassExists("Z1"))

	n, s, ok := repo.PressureRatingOf("B1")
	require.True(t, ok)
	assert.Equal(t, 300, n)
	assert.Equal(t, "300#", s)

	// C1 carries a rating but no design pressure.
	c1, ok := repo.ClassFor("C1")
	require.True(t, ok)
	assert.Empty(t, c1.DesignPressureMax)

	_, ok = c1.DesignPressureValue()
	assert.False(t, ok)
}

func TestPressureRatings(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"150", "300", "400", "600", "900", "1500", "2500"},
		pms.DefaultClasses().PressureRatings())

	// Duplicate ratings collapse; a rating-less row derives its rating
	// from the class letter.
	repo := pms.New(
		pms.Class{Class: "A1", PressureRating: "150#"},
		pms.Class{Class: "A2", PressureRating: "150 lb"},
		pms.Class{Class: "C1"},
	)
	assert.Equal(t, []string{"150", "400"}, repo.PressureRatings())
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "piping_specification.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "sheets": [
    {
      "sheet_name": "Index",
      "tables": [
        {"headers": ["Notes"], "rows": [{"Notes": "not a class table"}]}
      ]
    },
    {
      "sheet_name": "Piping Classes",
      "tables": [
        {
          "headers": ["Piping Class", "Rating", "Material", "Service", "C.A", "Design Pressure Max"],
          "rows": [
            {
              "Piping Class": "A1",
              "Rating": "150#",
              "Material": "CS",
              "Service": "Cooling Water",
              "C.A": 3,
              "Design Pressure Max": "19.6 barg @ 38°C"
            },
            {
              "Piping Class": "G1LN",
              "Rating": "2500#",
              "Material": "CS",
              "Service": "High Pressure Process"
            },
            {"Piping Class": "not-a-class", "Rating": "150#"}
          ]
        }
      ]
    }
  ]
}`), 0o644))

	repo, err := pms.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Len())

	a1, ok := repo.ClassFor("A1")
	require.True(t, ok)
	assert.Equal(t, "CS", a1.BaseMaterial)
	assert.Equal(t, "3", a1.CorrosionAllowance)
	assert.False(t, a1.NACEClass)

	g1ln, ok := repo.ClassFor("G1LN")
	require.True(t, ok)
	assert.True(t, g1ln.NACEClass)
	assert.True(t, g1ln.LowTempClass)
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := pms.LoadFile(filepath.Join(t.TempDir(), "absent.json"))
		require.ErrorIs(t, err, pms.ErrReadData)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

		_, err := pms.LoadFile(path)
		require.ErrorIs(t, err, pms.ErrInvalidData)
	})
}
