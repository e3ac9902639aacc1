package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/tumorstat/internal/dataset"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Point is one (timepoint, volume) measurement.
type Point struct {
	Timepoint int     `json:"timepoint"`
	Volume    float64 `json:"volume"`
}

// TimeSeries is the longitudinal volume of one subject.
type TimeSeries struct {
	Regimen   string  `json:"regimen"`
	SubjectID string  `json:"subject_id"`
	Points    []Point `json:"points"`
}

// SubjectSeries returns the (timepoint, volume) sequence of subject within
// regimen, ordered by timepoint.
func SubjectSeries(obs []dataset.Observation, regimen, subject string) (*TimeSeries, error) {
	ts := &TimeSeries{Regimen: regimen, SubjectID: subject}
	for _, o := range obs {
		if o.HasMetadata && o.Regimen == regimen && o.SubjectID == subject {
			ts.Points = append(ts.Points, Point{Timepoint: o.Timepoint, Volume: o.Volume})
		}
	}
	if len(ts.Points) == 0 {
		return nil, &EmptyGroupError{Regimen: regimen, Subject: subject}
	}
	sort.SliceStable(ts.Points, func(i, j int) bool { return ts.Points[i].Timepoint < ts.Points[j].Timepoint })
	return ts, nil
}

// SubjectAverage is the mean weight and mean tumor volume of one subject.
type SubjectAverage struct {
	SubjectID string  `json:"subject_id"`
	N         int     `json:"n"`
	Weight    float64 `json:"weight"`
	Volume    float64 `json:"volume"`
}

// SubjectAverages averages weight and volume per subject of regimen, sorted
// by subject id.
func SubjectAverages(obs []dataset.Observation, regimen string) ([]SubjectAverage, error) {
	type acc struct {
		n      int
		weight float64
		volume float64
	}
	by := map[string]*acc{}
	for _, o := range obs {
		if !o.HasMetadata || o.Regimen != regimen {
			continue
		}
		a := by[o.SubjectID]
		if a == nil {
			a = &acc{}
			by[o.SubjectID] = a
		}
		a.n++
		a.weight += o.Weight
		a.volume += o.Volume
	}
	if len(by) == 0 {
		return nil, &EmptyGroupError{Regimen: regimen}
	}
	out := make([]SubjectAverage, 0, len(by))
	for id, a := range by {
		out = append(out, SubjectAverage{
			SubjectID: id,
			N:         a.n,
			Weight:    a.weight / float64(a.n),
			Volume:    a.volume / float64(a.n),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

// Variable is a named sample used as a regression input.
type Variable struct {
	Name   string
	Values []float64
}

// WeightVolume splits subject averages into the named regression inputs:
// average weight (x) and average tumor volume (y).
func WeightVolume(avgs []SubjectAverage) (x, y Variable) {
	x = Variable{Name: "average weight (g)", Values: make([]float64, len(avgs))}
	y = Variable{Name: "average tumor volume (mm3)", Values: make([]float64, len(avgs))}
	for i, a := range avgs {
		x.Values[i] = a.Weight
		y.Values[i] = a.Volume
	}
	return x, y
}

// Regression is an ordinary least-squares fit y = Intercept + Slope*x.
type Regression struct {
	X         string  `json:"x"`
	Y         string  `json:"y"`
	N         int     `json:"n"`
	R         float64 `json:"r"`
	RSquared  float64 `json:"r_squared"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	// Undefined for fewer than three points.
	SlopeStdErr Estimate `json:"slope_std_err"`
	PValue      Estimate `json:"p_value"`
}

// Predict evaluates the fitted line at x.
func (r *Regression) Predict(x float64) float64 { return r.Intercept + r.Slope*x }

// Regress fits y on x and computes the Pearson correlation between them.
func Regress(x, y Variable) (*Regression, error) {
	if len(x.Values) != len(y.Values) {
		return nil, fmt.Errorf("regress %s on %s: length mismatch %d != %d", y.Name, x.Name, len(y.Values), len(x.Values))
	}
	n := len(x.Values)
	if n < 2 {
		return nil, fmt.Errorf("regress %s on %s: need at least 2 points, got %d", y.Name, x.Name, n)
	}
	vx := stat.Variance(x.Values, nil)
	vy := stat.Variance(y.Values, nil)
	if vx == 0 || vy == 0 {
		return nil, fmt.Errorf("regress %s on %s: correlation undefined for a constant variable", y.Name, x.Name)
	}
	alpha, beta := stat.LinearRegression(x.Values, y.Values, nil, false)
	r := stat.Correlation(x.Values, y.Values, nil)
	r = math.Max(-1, math.Min(1, r))

	reg := &Regression{
		X:           x.Name,
		Y:           y.Name,
		N:           n,
		R:           r,
		RSquared:    r * r,
		Slope:       beta,
		Intercept:   alpha,
		SlopeStdErr: Missing(),
		PValue:      Missing(),
	}
	if n > 2 {
		df := float64(n - 2)
		if reg.RSquared >= 1 {
			reg.SlopeStdErr, reg.PValue = 0, 0
		} else {
			reg.SlopeStdErr = Estimate(math.Sqrt((1 - reg.RSquared) * vy / vx / df))
			t := r * math.Sqrt(df/(1-reg.RSquared))
			dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
			reg.PValue = Estimate(2 * (1 - dist.CDF(math.Abs(t))))
		}
	}
	return reg, nil
}
