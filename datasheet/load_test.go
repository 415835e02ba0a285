package datasheet_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/vdsheet/datasheet"
)

func TestFromDirsEmpty(t *testing.T) {
	t.Parallel()

	opts, err := datasheet.FromDirs("", "")
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestFromDirsShippedConfig(t *testing.T) {
	t.Parallel()

	opts, err := datasheet.FromDirs(filepath.Join("..", "config"), "")
	require.NoError(t, err)
	// Rules, schema, and material maps all load.
	assert.Len(t, opts, 3)

	engine, err := datasheet.New(append(opts, datasheet.WithClock(fixedClock))...)
	require.NoError(t, err)

	d, err := engine.Generate(context.Background(), "BSFA1R")
	require.NoError(t, err)
	assert.Equal(t, "Ball Valve, Full Bore", d.Flat()["valve_type"])
}

func TestFromDirsMissingFilesFallBack(t *testing.T) {
	t.Parallel()

	// Directories exist but hold none of the well-known files.
	opts, err := datasheet.FromDirs(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestFromDirsDataDir(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, datasheet.IndexFile), []byte(`[
  {"vds_no": "BSFA1R", "size_range": "1/2\" - 1\"", "valve_type": "Ball Valve, Full Bore"}
]`), 0o644))

	opts, err := datasheet.FromDirs("", dataDir)
	require.NoError(t, err)
	require.Len(t, opts, 1)

	engine, err := datasheet.New(opts...)
	require.NoError(t, err)

	d, err := engine.Generate(context.Background(), "BSFA1R")
	require.NoError(t, err)

	// The loaded index row replaces the built-in one: the small upper
	// bound flips the body material to the forged branch.
	assert.Equal(t, "Forged - ASTM A105N", d.Flat()["body_material"])
}

func TestFromDirsMalformed(t *testing.T) {
	t.Parallel()

	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(configDir, datasheet.MaterialsFile), []byte("base_materials: ["), 0o644))

	_, err := datasheet.FromDirs(configDir, "")
	require.ErrorIs(t, err, datasheet.ErrInvalidMaterials)
}
