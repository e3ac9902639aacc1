package analysis

import (
	"errors"

	"github.com/KaramelBytes/tumorstat/internal/dataset"
)

// FenceFactor scales the IQR to form Tukey's fences.
const FenceFactor = 1.5

// Outlier is a final volume outside its regimen's fences.
type Outlier struct {
	SubjectID string  `json:"subject_id"`
	Volume    float64 `json:"volume"`
}

// OutlierBounds summarizes final tumor volumes of one regimen.
type OutlierBounds struct {
	Regimen string `json:"regimen"`
	// Values are final volumes in subject order of first appearance.
	Values []float64 `json:"values"`
	Q1     float64   `json:"q1"`
	Median float64   `json:"median"`
	Q3     float64   `json:"q3"`
	IQR    float64   `json:"iqr"`
	Lower  float64   `json:"lower_bound"`
	Upper  float64   `json:"upper_bound"`
	// Whiskers are the most extreme values still inside the fences.
	WhiskerLow  float64   `json:"whisker_low"`
	WhiskerHigh float64   `json:"whisker_high"`
	Outliers    []Outlier `json:"outliers"`
}

// FinalObservations returns, for every subject, its row at the maximum
// timepoint. On a tie the first row encountered wins. If regimens is
// non-empty only subjects of those regimens are returned. Output follows
// the order in which subjects first appear.
func FinalObservations(obs []dataset.Observation, regimens []string) []dataset.Observation {
	want := make(map[string]struct{}, len(regimens))
	for _, r := range regimens {
		want[r] = struct{}{}
	}
	idx := map[string]int{}
	var out []dataset.Observation
	for _, o := range obs {
		if !o.HasMetadata {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[o.Regimen]; !ok {
				continue
			}
		}
		i, ok := idx[o.SubjectID]
		if !ok {
			idx[o.SubjectID] = len(out)
			out = append(out, o)
			continue
		}
		if o.Timepoint > out[i].Timepoint {
			out[i] = o
		}
	}
	return out
}

// DetectOutliers computes quartiles, IQR and fences over final volumes for
// each requested regimen, in the requested order. An empty regimens list
// means every regimen present. Regimens with no subjects produce an
// *EmptyGroupError in the joined error; bounds for the rest are still returned.
func DetectOutliers(obs []dataset.Observation, regimens []string) ([]OutlierBounds, error) {
	if len(regimens) == 0 {
		regimens = Regimens(obs)
	}
	byRegimen := map[string][]dataset.Observation{}
	for _, o := range FinalObservations(obs, regimens) {
		byRegimen[o.Regimen] = append(byRegimen[o.Regimen], o)
	}
	var out []OutlierBounds
	var errs []error
	for _, r := range regimens {
		rows := byRegimen[r]
		if len(rows) == 0 {
			errs = append(errs, &EmptyGroupError{Regimen: r})
			continue
		}
		out = append(out, bounds(r, rows))
	}
	return out, errors.Join(errs...)
}

func bounds(regimen string, rows []dataset.Observation) OutlierBounds {
	vals := make([]float64, len(rows))
	for i, o := range rows {
		vals[i] = o.Volume
	}
	sorted := sortedCopy(vals)
	b := OutlierBounds{
		Regimen: regimen,
		Values:  vals,
		Q1:      quantile(sorted, 0.25),
		Median:  quantile(sorted, 0.5),
		Q3:      quantile(sorted, 0.75),
	}
	b.IQR = b.Q3 - b.Q1
	b.Lower = b.Q1 - FenceFactor*b.IQR
	b.Upper = b.Q3 + FenceFactor*b.IQR
	b.WhiskerLow, b.WhiskerHigh = b.Q1, b.Q3
	for _, v := range sorted {
		if v >= b.Lower && v < b.WhiskerLow {
			b.WhiskerLow = v
		}
		if v <= b.Upper && v > b.WhiskerHigh {
			b.WhiskerHigh = v
		}
	}
	for _, o := range rows {
		if o.Volume < b.Lower || o.Volume > b.Upper {
			b.Outliers = append(b.Outliers, Outlier{SubjectID: o.SubjectID, Volume: o.Volume})
		}
	}
	return b
}
