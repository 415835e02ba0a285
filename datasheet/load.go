package datasheet

import (
	"errors"
	"io/fs"
	"path/filepath"

	"go.jacobcolvin.com/vdsheet/pms"
	"go.jacobcolvin.com/vdsheet/standards"
	"go.jacobcolvin.com/vdsheet/vds"
	"go.jacobcolvin.com/vdsheet/vdsindex"
)

// Well-known file names inside the configuration and data directories.
const (
	RulesFile     = "vds_rules.yaml"
	SchemaFile    = "field_mappings.yaml"
	MaterialsFile = "material_mappings.yaml"

	PMSFile       = "piping_specification.json"
	StandardsFile = "standard_clauses.json"
	IndexFile     = "vds_index.json"
)

// FromDirs builds engine options from a configuration directory (YAML
// grammar, schema, and material maps) and a data directory (extracted
// JSON). Either directory may be empty; files absent from a given
// directory fall back to the built-in defaults. Malformed files fail
// the load.
func FromDirs(configDir, dataDir string) ([]Option, error) {
	var opts []Option

	if configDir != "" {
		rules, err := loadIfPresent(filepath.Join(configDir, RulesFile), vds.LoadRules)
		if err != nil {
			return nil, err
		} else if rules != nil {
			opts = append(opts, WithRules(rules))
		}

		schema, err := loadIfPresent(filepath.Join(configDir, SchemaFile), LoadSchema)
		if err != nil {
			return nil, err
		} else if schema != nil {
			opts = append(opts, WithSchema(schema))
		}

		materials, err := loadIfPresent(filepath.Join(configDir, MaterialsFile), LoadMaterials)
		if err != nil {
			return nil, err
		} else if materials != nil {
			opts = append(opts, WithMaterials(materials))
		}
	}

	if dataDir != "" {
		classes, err := loadIfPresent(filepath.Join(dataDir, PMSFile), pms.LoadFile)
		if err != nil {
			return nil, err
		} else if classes != nil {
			opts = append(opts, WithPMS(classes))
		}

		clauses, err := loadIfPresent(filepath.Join(dataDir, StandardsFile), standards.LoadFile)
		if err != nil {
			return nil, err
		} else if clauses != nil {
			opts = append(opts, WithStandards(clauses))
		}

		index, err := loadIfPresent(filepath.Join(dataDir, IndexFile), vdsindex.LoadFile)
		if err != nil {
			return nil, err
		} else if index != nil {
			opts = append(opts, WithIndex(index))
		}
	}

	return opts, nil
}

// loadIfPresent loads with fn, treating a missing file as absent rather
// than an error.
func loadIfPresent[T any](path string, fn func(string) (*T, error)) (*T, error) {
	v, err := fn(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	return v, nil
}
