package dataset

import (
	"fmt"
	"io"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Observation is one joined (subject, timepoint) row.
type Observation struct {
	SubjectID       string  `json:"subject_id"`
	Timepoint       int     `json:"timepoint"`
	Volume          float64 `json:"volume"`
	MetastaticSites int     `json:"metastatic_sites"`
	// Metadata fields are zero when HasMetadata is false.
	Regimen     string  `json:"regimen,omitempty"`
	Sex         Sex     `json:"sex,omitempty"`
	AgeMonths   int     `json:"age_months,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	HasMetadata bool    `json:"has_metadata"`
}

// Cleaned is the merged study with every subject that broke the
// (subject, timepoint) uniqueness invariant removed.
type Cleaned struct {
	Frame        dataframe.DataFrame `json:"-"`
	Observations []Observation       `json:"-"`
	// DuplicateIDs lists excluded subjects in order of first appearance.
	DuplicateIDs []string `json:"duplicate_ids"`
	// Duplicates holds every merged row of the excluded subjects.
	Duplicates     []Observation `json:"duplicates"`
	RowsBefore     int           `json:"rows_before"`
	SubjectsBefore int           `json:"subjects_before"`
	SubjectsAfter  int           `json:"subjects_after"`
}

// Merge left-joins metadata onto results by subject id. Metadata must hold
// exactly one row per subject.
func Merge(results, metadata dataframe.DataFrame) (dataframe.DataFrame, error) {
	ids, err := column(metadata, ColSubjectID)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	seen := make(map[string]struct{}, ids.Len())
	for _, id := range ids.Records() {
		if _, dup := seen[id]; dup {
			return dataframe.DataFrame{}, &FormatError{Column: ColSubjectID, Reason: fmt.Sprintf("subject %q has more than one metadata row", id)}
		}
		seen[id] = struct{}{}
	}
	merged := results.LeftJoin(metadata, ColSubjectID)
	if merged.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("merge: %w", merged.Err)
	}
	return merged, nil
}

// Clean drops every subject that has two or more rows at the same timepoint.
// Exclusion is all-or-nothing: none of the subject's rows survive.
func Clean(merged dataframe.DataFrame) (*Cleaned, error) {
	all, err := Observations(merged)
	if err != nil {
		return nil, err
	}
	dupIDs := DuplicateSubjects(all)
	excluded := make(map[string]struct{}, len(dupIDs))
	for _, id := range dupIDs {
		excluded[id] = struct{}{}
	}

	c := &Cleaned{
		Frame:          merged,
		DuplicateIDs:   dupIDs,
		RowsBefore:     len(all),
		SubjectsBefore: CountSubjects(all),
	}
	for _, o := range all {
		if _, bad := excluded[o.SubjectID]; bad {
			c.Duplicates = append(c.Duplicates, o)
			continue
		}
		c.Observations = append(c.Observations, o)
	}
	c.SubjectsAfter = CountSubjects(c.Observations)

	if len(excluded) > 0 {
		keep := func(el series.Element) bool {
			_, bad := excluded[el.String()]
			return !bad
		}
		c.Frame = merged.Filter(dataframe.F{Colname: ColSubjectID, Comparator: series.CompFunc, Comparando: keep})
		if c.Frame.Err != nil {
			return nil, fmt.Errorf("filter duplicates: %w", c.Frame.Err)
		}
	}
	return c, nil
}

// DuplicateSubjects returns the ids that occur more than once at the same
// timepoint, in order of first appearance.
func DuplicateSubjects(obs []Observation) []string {
	type key struct {
		id string
		tp int
	}
	seen := make(map[key]struct{}, len(obs))
	flagged := map[string]struct{}{}
	var out []string
	for _, o := range obs {
		k := key{o.SubjectID, o.Timepoint}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			continue
		}
		if _, ok := flagged[o.SubjectID]; !ok {
			flagged[o.SubjectID] = struct{}{}
			out = append(out, o.SubjectID)
		}
	}
	return out
}

// CountSubjects returns the number of distinct subject ids.
func CountSubjects(obs []Observation) int {
	ids := make(map[string]struct{})
	for _, o := range obs {
		ids[o.SubjectID] = struct{}{}
	}
	return len(ids)
}

// Observations converts a merged frame into typed rows. Rows without a
// metadata match are kept with HasMetadata=false.
func Observations(frame dataframe.DataFrame) ([]Observation, error) {
	names := []string{ColSubjectID, ColTimepoint, ColVolume, ColMetastatic, ColRegimen, ColSex, ColAge, ColWeight}
	cols := make(map[string]series.Series, len(names))
	for _, n := range names {
		s, err := column(frame, n)
		if err != nil {
			return nil, err
		}
		cols[n] = s
	}
	ids := cols[ColSubjectID].Records()
	tps := cols[ColTimepoint].Float()
	vols := cols[ColVolume].Float()
	sites := cols[ColMetastatic].Float()
	regimens := cols[ColRegimen].Records()
	missing := cols[ColRegimen].IsNaN()
	sexes := cols[ColSex].Records()
	ages := cols[ColAge].Float()
	weights := cols[ColWeight].Float()

	out := make([]Observation, frame.Nrow())
	for i := range out {
		o := Observation{
			SubjectID:       ids[i],
			Timepoint:       int(tps[i]),
			Volume:          vols[i],
			MetastaticSites: int(sites[i]),
		}
		if !missing[i] && !math.IsNaN(weights[i]) {
			o.HasMetadata = true
			o.Regimen = regimens[i]
			o.Sex = Sex(sexes[i])
			o.AgeMonths = int(ages[i])
			o.Weight = weights[i]
		}
		out[i] = o
	}
	return out, nil
}

// WriteCSV writes the cleaned frame with a header row.
func WriteCSV(w io.Writer, c *Cleaned) error {
	if err := c.Frame.WriteCSV(w); err != nil {
		return fmt.Errorf("write cleaned csv: %w", err)
	}
	return nil
}

func column(frame dataframe.DataFrame, name string) (series.Series, error) {
	s := frame.Col(name)
	if s.Err != nil {
		return series.Series{}, &FormatError{Column: name, Reason: "column not found", Err: s.Err}
	}
	return s, nil
}
