package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
)

// Column names shared by the metadata and study result files.
const (
	ColSubjectID  = "Mouse ID"
	ColRegimen    = "Drug Regimen"
	ColSex        = "Sex"
	ColAge        = "Age_months"
	ColWeight     = "Weight (g)"
	ColTimepoint  = "Timepoint"
	ColVolume     = "Tumor Volume (mm3)"
	ColMetastatic = "Metastatic Sites"
)

// Sex of a study subject.
type Sex string

const (
	SexFemale Sex = "Female"
	SexMale   Sex = "Male"
)

// ParseSex accepts the two known values case-insensitively.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female", "f":
		return SexFemale, nil
	case "male", "m":
		return SexMale, nil
	}
	return "", fmt.Errorf("unknown sex %q (want Female or Male)", s)
}

// Column is a named, typed column. Check, when set, validates the trimmed raw
// cell and returns its canonical form.
type Column struct {
	Name  string
	Type  series.Type
	Check func(raw string) (string, error)
}

// Schema is the explicit column layout a table must satisfy at load time.
type Schema struct {
	Name    string
	Columns []Column
}

// Types returns the column types keyed by name, as gota expects them.
func (s Schema) Types() map[string]series.Type {
	out := make(map[string]series.Type, len(s.Columns))
	for _, c := range s.Columns {
		out[c.Name] = c.Type
	}
	return out
}

// Names lists column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

var (
	// MetadataSchema describes the one-row-per-subject metadata file.
	MetadataSchema = Schema{
		Name: "mouse metadata",
		Columns: []Column{
			{Name: ColSubjectID, Type: series.String, Check: nonEmpty},
			{Name: ColRegimen, Type: series.String, Check: nonEmpty},
			{Name: ColSex, Type: series.String, Check: checkSex},
			{Name: ColAge, Type: series.Int, Check: nonNegativeInt},
			{Name: ColWeight, Type: series.Float, Check: positiveFloat},
		},
	}
	// ResultsSchema describes the longitudinal measurement file.
	ResultsSchema = Schema{
		Name: "study results",
		Columns: []Column{
			{Name: ColSubjectID, Type: series.String, Check: nonEmpty},
			{Name: ColTimepoint, Type: series.Int, Check: nonNegativeInt},
			{Name: ColVolume, Type: series.Float, Check: nonNegativeFloat},
			{Name: ColMetastatic, Type: series.Int, Check: nonNegativeInt},
		},
	}
)

func nonEmpty(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty value")
	}
	return s, nil
}

func checkSex(s string) (string, error) {
	sex, err := ParseSex(s)
	if err != nil {
		return "", err
	}
	return string(sex), nil
}

func nonNegativeInt(s string) (string, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		// Accept integral floats such as "5.0" exported by spreadsheets.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return "", fmt.Errorf("not an integer: %q", s)
		}
		n = int(f)
	}
	if n < 0 {
		return "", fmt.Errorf("negative value %d", n)
	}
	return strconv.Itoa(n), nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

func nonNegativeFloat(s string) (string, error) {
	f, err := parseFloat(s)
	if err != nil {
		return "", err
	}
	if f < 0 {
		return "", fmt.Errorf("negative value %g", f)
	}
	return s, nil
}

func positiveFloat(s string) (string, error) {
	f, err := parseFloat(s)
	if err != nil {
		return "", err
	}
	if f <= 0 {
		return "", fmt.Errorf("must be positive, got %g", f)
	}
	return s, nil
}
