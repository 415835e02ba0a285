// Package vdsindex provides a read-only repository over the pre-built
// VDS index: per-VDS rows of datasheet values that cannot be
// reconstructed from rules alone (size ranges, trim materials, ...).
package vdsindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Sentinel errors.
var (
	ErrReadData    = errors.New("read vds index")
	ErrInvalidData = errors.New("invalid vds index")
)

// Row is one pre-computed VDS index entry. Columns are free-form; the
// extractor controls the set.
type Row struct {
	VDS    string
	Fields map[string]string
}

// Field returns the named column's value. ok is false when the column
// is absent or empty.
func (r Row) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}

	return v, true
}

// SizeRange returns the size_range column, e.g. `1/2" - 24"`.
func (r Row) SizeRange() string {
	v, _ := r.Field("size_range")

	return v
}

// RepresentativeSize returns the upper bound of the size range in
// inches, e.g. 24 from `1/2" - 24"`. ok is false when the row has no
// parseable size.
func (r Row) RepresentativeSize() (float64, bool) {
	sr := r.SizeRange()
	if sr == "" {
		return 0, false
	}

	parts := strings.Split(sr, "-")
	last := strings.TrimSpace(parts[len(parts)-1])

	return parseInches(last)
}

// parseInches parses a size like `24"`, `1.5"`, or `1/2"`.
func parseInches(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), `"`))
	if s == "" {
		return 0, false
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)

		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}

		return n / d, true
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// Repository is an in-memory index keyed by VDS code. Immutable after
// construction; safe for concurrent use.
//
// Create instances with [New], [LoadFile], or [DefaultRows].
type Repository struct {
	rows map[string]Row
}

// New builds a repository from the given rows.
func New(rows ...Row) *Repository {
	r := &Repository{rows: make(map[string]Row, len(rows))}

	for _, row := range rows {
		r.rows[strings.ToUpper(strings.TrimSpace(row.VDS))] = row
	}

	return r
}

// LoadFile reads the index from JSON: a top-level array of row objects,
// each carrying a "vds_no" column. Rows without one are skipped;
// non-string values are stringified.
func LoadFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadData, err)
	}

	var raw []map[string]any

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	rows := make([]Row, 0, len(raw))

	for _, obj := range raw {
		row := Row{Fields: make(map[string]string, len(obj))}

		for k, v := range obj {
			s := stringify(v)
			if k == "vds_no" {
				row.VDS = strings.ToUpper(strings.TrimSpace(s))

				continue
			}

			if s != "" {
				row.Fields[k] = s
			}
		}

		if row.VDS == "" {
			continue
		}

		rows = append(rows, row)
	}

	return New(rows...), nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// RowFor returns the row for a VDS code.
func (r *Repository) RowFor(vds string) (Row, bool) {
	row, ok := r.rows[strings.ToUpper(strings.TrimSpace(vds))]

	return row, ok
}

// Filter narrows and pages [Repository.AllCodes].
type Filter struct {
	// ValveType keeps rows whose valve_type column contains the value,
	// case-insensitively. Empty keeps everything.
	ValveType string
	// Offset and Limit page the result. A zero Limit means no limit.
	Offset int
	Limit  int
}

// AllCodes returns matching VDS codes in sorted order plus the total
// match count before paging.
func (r *Repository) AllCodes(f Filter) ([]string, int) {
	var codes []string

	needle := strings.ToLower(f.ValveType)

	for code, row := range r.rows {
		if needle != "" {
			vt, _ := row.Field("valve_type")
			if !strings.Contains(strings.ToLower(vt), needle) {
				continue
			}
		}

		codes = append(codes, code)
	}

	slices.Sort(codes)

	total := len(codes)

	if f.Offset > 0 {
		if f.Offset >= len(codes) {
			codes = nil
		} else {
			codes = codes[f.Offset:]
		}
	}

	if f.Limit > 0 && f.Limit < len(codes) {
		codes = codes[:f.Limit]
	}

	return codes, total
}

// Len returns the number of indexed rows.
func (r *Repository) Len() int {
	return len(r.rows)
}

// DefaultRows returns a repository with the built-in index entries,
// used when no data directory is supplied.
func DefaultRows() *Repository {
	return New(
		Row{
			VDS: "BSFA1R",
			Fields: map[string]string{
				"piping_class":    "A1",
				"size_range":      `1/2" - 24"`,
				"valve_type":      "Ball Valve, Full Bore",
				"end_connections": "Flanged ASME B16.5 RF",
				"ball_material":   "Forged - ASTM A182-F316",
				"seat_material":   "Reinforced PTFE",
				"seal_material":   "Viton / HNBR",
				"revision":        "C0",
			},
		},
		Row{
			VDS: "BSRA1R",
			Fields: map[string]string{
				"piping_class":    "A1",
				"size_range":      `1/2" - 24"`,
				"valve_type":      "Ball Valve, Reduced Bore",
				"end_connections": "Flanged ASME B16.5 RF",
				"ball_material":   "Forged - ASTM A182-F316",
				"seat_material":   "Reinforced PTFE",
				"seal_material":   "Viton / HNBR",
				"revision":        "C0",
			},
		},
		Row{
			VDS: "BSFB1NR",
			Fields: map[string]string{
				"piping_class":    "B1N",
				"size_range":      `1/2" - 24"`,
				"valve_type":      "Ball Valve, Full Bore",
				"end_connections": "Flanged ASME B16.5 RF",
				"ball_material":   "Forged - ASTM A182-F316L",
				"seat_material":   "Reinforced PTFE",
				"seal_material":   "Viton / HNBR",
				"revision":        "C0",
			},
		},
		Row{
			VDS: "GSRD1W",
			Fields: map[string]string{
				"piping_class":    "D1",
				"size_range":      `2" - 24"`,
				"valve_type":      "Gate Valve, Reduced Bore",
				"end_connections": "Butt Weld ASME B16.25",
				"seat_material":   "13Cr / Stellite",
				"revision":        "C0",
			},
		},
	)
}
