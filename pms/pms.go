// Package pms provides a read-only repository over piping-class rows
// extracted from the PMS (Piping Material Specification).
//
// Rows are loaded from extracted-Excel JSON with [LoadFile] or built in
// with [DefaultClasses]. The repository is immutable after construction
// and safe for concurrent use.
package pms

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Sentinel errors.
var (
	ErrReadData    = errors.New("read pms data")
	ErrInvalidData = errors.New("invalid pms data")
)

// letterRatings maps the class letter to its ASME pressure rating, used
// when a row carries no parseable rating string.
var letterRatings = map[byte]int{
	'A': 150,
	'B': 300,
	'C': 400,
	'D': 600,
	'E': 900,
	'F': 1500,
	'G': 2500,
}

var numberRE = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// Class is one piping-class row. String fields hold the verbatim source
// text; numeric forms are derived on demand.
type Class struct {
	Class              string `json:"piping_class"`
	PressureRating     string `json:"pressure_rating"`
	MaterialGroup      string `json:"material_group"`
	BaseMaterial       string `json:"base_material"`
	CorrosionAllowance string `json:"corrosion_allowance"`
	Service            string `json:"service"`
	DesignPressureMin  string `json:"design_pressure_min"`
	DesignPressureMax  string `json:"design_pressure_max"`
	DesignTempMin      string `json:"design_temp_min"`
	DesignTempMax      string `json:"design_temp_max"`
	SheetNo            string `json:"sheet_no"`
	NACEClass          bool   `json:"is_nace_class"`
	LowTempClass       bool   `json:"is_low_temp_class"`
}

// RatingNumeric returns the numeric pressure rating (150, 300, ...).
// It parses the rating string, stripping a trailing "#" or "lb"; when
// the string has no number, the class letter derives the rating
// (A=150 ... G=2500). ok is false when neither form applies.
func (c Class) RatingNumeric() (int, bool) {
	s := strings.TrimSpace(c.PressureRating)
	s = strings.TrimSuffix(s, "#")
	s = strings.TrimSuffix(s, "lb")
	s = strings.TrimSpace(s)

	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}

	if c.Class != "" {
		if n, ok := letterRatings[c.Class[0]]; ok {
			return n, true
		}
	}

	return 0, false
}

// DesignPressureValue returns the numeric part of DesignPressureMax,
// e.g. 19.6 from "19.6 barg @ 38°C". ok is false when no number is
// present.
func (c Class) DesignPressureValue() (float64, bool) {
	m := numberRE.FindString(c.DesignPressureMax)
	if m == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// Repository is an in-memory index of piping classes keyed by class
// code.
//
// Create instances with [New], [LoadFile], or [DefaultClasses].
type Repository struct {
	classes map[string]Class
	source  string
}

// New builds a repository from the given rows. Later duplicates of the
// same class replace earlier ones.
func New(classes ...Class) *Repository {
	r := &Repository{
		classes: make(map[string]Class, len(classes)),
		source:  "PMS",
	}

	for _, c := range classes {
		r.classes[strings.ToUpper(strings.TrimSpace(c.Class))] = c
	}

	return r
}

// extracted-Excel JSON shapes produced by the offline extractor.
type (
	specFile struct {
		Sheets []specSheet `json:"sheets"`
	}

	specSheet struct {
		SheetName string      `json:"sheet_name"`
		Tables    []specTable `json:"tables"`
	}

	specTable struct {
		Headers []string                     `json:"headers"`
		Rows    []map[string]json.RawMessage `json:"rows"`
	}
)

// LoadFile reads piping classes from an extracted piping-specification
// JSON file. It scans every sheet for tables whose headers include
// "Piping Class" and indexes each well-formed row.
func LoadFile(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadData, err)
	}

	var f specFile

	err = json.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	r := &Repository{
		classes: make(map[string]Class),
		source:  "PMS",
	}

	classRE := regexp.MustCompile(`^[A-Z][0-9]+[LN]*$`)

	for _, sheet := range f.Sheets {
		for _, table := range sheet.Tables {
			if !slices.Contains(table.Headers, "Piping Class") {
				continue
			}

			for _, row := range table.Rows {
				c, ok := rowToClass(row, classRE)
				if ok {
					r.classes[c.Class] = c
				}
			}
		}
	}

	return r, nil
}

func rowToClass(row map[string]json.RawMessage, classRE *regexp.Regexp) (Class, bool) {
	class := cell(row, "Piping Class", "piping_class")
	if class == "" || !classRE.MatchString(class) {
		return Class{}, false
	}

	c := Class{
		Class:              class,
		PressureRating:     cell(row, "Rating", "pressure_rating"),
		MaterialGroup:      cell(row, "Material Group", "material_group"),
		BaseMaterial:       cell(row, "Material", "base_material"),
		CorrosionAllowance: cell(row, "C.A", "corrosion_allowance", "CA"),
		Service:            cell(row, "Service", "service"),
		DesignPressureMin:  cell(row, "Design Pressure Min", "design_pressure_min"),
		DesignPressureMax:  cell(row, "Design Pressure Max", "design_pressure_max"),
		DesignTempMin:      cell(row, "Design Temp Min", "design_temp_min"),
		DesignTempMax:      cell(row, "Design Temp Max", "design_temp_max"),
		SheetNo:            cell(row, "Sheet No.", "sheet_no"),
	}

	c.NACEClass = strings.Contains(trailingLetters(class), "N")
	c.LowTempClass = strings.Contains(trailingLetters(class), "L")

	return c, true
}

// trailingLetters returns the modifier letters after the digits of a
// class code, e.g. "LN" from "G1LN".
func trailingLetters(class string) string {
	i := len(class)
	for i > 0 && class[i-1] >= 'A' && class[i-1] <= 'Z' {
		i--
	}

	if i == 0 {
		return ""
	}

	return class[i:]
}

// cell extracts a string cell trying several header spellings.
func cell(row map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := row[k]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}

		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}

	return ""
}

// ClassFor returns the row for a piping class.
func (r *Repository) ClassFor(class string) (Class, bool) {
	c, ok := r.classes[strings.ToUpper(strings.TrimSpace(class))]

	return c, ok
}

// ClassExists reports whether a piping class is indexed. It satisfies
// [vds.ClassSet].
func (r *Repository) ClassExists(class string) bool {
	_, ok := r.ClassFor(class)

	return ok
}

// PressureRatingOf returns the numeric and string forms of a class's
// pressure rating. ok is false for unknown classes or unratable rows.
func (r *Repository) PressureRatingOf(class string) (int, string, bool) {
	c, ok := r.ClassFor(class)
	if !ok {
		return 0, "", false
	}

	n, ok := c.RatingNumeric()
	if !ok {
		return 0, c.PressureRating, false
	}

	return n, c.PressureRating, true
}

// AllClasses returns every indexed class code, sorted.
func (r *Repository) AllClasses() []string {
	out := make([]string, 0, len(r.classes))
	for k := range r.classes {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}

// PressureRatings returns the distinct numeric pressure ratings across
// all classes, ascending, as strings ("150", "300", ...).
func (r *Repository) PressureRatings() []string {
	seen := make(map[int]struct{}, len(r.classes))

	for _, c := range r.classes {
		if n, ok := c.RatingNumeric(); ok {
			seen[n] = struct{}{}
		}
	}

	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}

	slices.Sort(nums)

	out := make([]string, 0, len(nums))
	for _, n := range nums {
		out = append(out, strconv.Itoa(n))
	}

	return out
}

// Len returns the number of indexed classes.
func (r *Repository) Len() int {
	return len(r.classes)
}

// Source identifies the repository in traceability records.
func (r *Repository) Source() string {
	return r.source
}

// DefaultClasses returns a repository with the built-in piping classes,
// used when no data directory is supplied. Pressure values are barg for
// carbon steel per ASME B16.34; B1 carries the project value of
// 50.0 barg. C1 (400#) intentionally has no design pressure.
func DefaultClasses() *Repository {
	return New(
		Class{
			Class:              "A1",
			PressureRating:     "150#",
			MaterialGroup:      "1.1",
			BaseMaterial:       "CS",
			CorrosionAllowance: "3 mm",
			Service:            "Cooling Water, Diesel, Steam",
			DesignPressureMin:  "-1.0 barg @ -29°C",
			DesignPressureMax:  "19.6 barg @ 38°C",
			DesignTempMin:      "-29°C",
			DesignTempMax:      "200°C",
			SheetNo:            "24",
		},
		Class{
			Class:              "B1",
			PressureRating:     "300#",
			MaterialGroup:      "1.1",
			BaseMaterial:       "CS",
			CorrosionAllowance: "3 mm",
			Service:            "Process",
			DesignPressureMin:  "-1.0 barg @ -29°C",
			DesignPressureMax:  "50.0 barg @ 38°C",
			DesignTempMin:      "-29°C",
			DesignTempMax:      "200°C",
			SheetNo:            "25",
		},
		Class{
			Class:              "C1",
			PressureRating:     "400#",
			MaterialGroup:      "1.1",
			BaseMaterial:       "CS",
			CorrosionAllowance: "3 mm",
			Service:            "Process",
			DesignTempMin:      "-29°C",
			DesignTempMax:      "200°C",
			SheetNo:            "26",
		},
		Class{
			Class:              "D1",
			PressureRating:     "600#",
			MaterialGroup:      "1.1",
			BaseMaterial:       "CS",
			CorrosionAllowance: "3 mm",
			Service:            "Process",
			DesignPressureMin:  "-1.0 barg @ -29°C",
			DesignPressureMax:  "102.1 barg @ 38°C",
			DesignTempMin:      "-29°C",
			DesignTempMax:      "200°C",
			SheetNo:            "27",
		},
		Class{
			Class:              "E1",
			PressureRating:     "900#",
			MaterialGroup:      "1.1",
			BaseMaterial:       "CS",
			CorrosionAllowance: "3 mm",
			Service:            "High Pressure Process",
			DesignPressureMin:  "-1.0 barg @ -29°C",
			DesignPressureMax:  "153.2 barg @ 38°C",
			DesignTempMin:      "-29°C",
			DesignTempMax:      "200°C",
			SheetNo:            "28",
		},
		Class{
			Class:              "F1",
			PressureRating:     "1500#",
			MaterialGroup:      "1.1",
			BaseMaterial:       "CS",
			CorrosionAllowance: "3 mm",
			Service:            "High Pressure Process",
			DesignPressureMin:  "-1.0 barg @ -29°C",
			DesignPressureMax:  "255.3 barg @ 38°C",
			DesignTempMin:      "-29°C",
			DesignTempMax:      "200°C",
			SheetNo:            "29",
		},
		Class{
			Class:              "G1",
			PressureRating:     "2500#",
			MaterialGroup:      "1.1",
			BaseMaterial:       "CS",
			CorrosionAllowance: "3 mm",
			Service:            "High Pressure Process",
			DesignPressureMin:  "-1.0 barg @ -46°C",
			DesignPressureMax:  "425.5 barg @ 38°C",
			DesignTempMin:      "-46°C",
			DesignTempMax:      "200°C",
			SheetNo:            "30",
		},
	)
}
