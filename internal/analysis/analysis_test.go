package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/KaramelBytes/tumorstat/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(id, regimen string, tp int, vol, weight float64) dataset.Observation {
	return dataset.Observation{
		SubjectID:   id,
		Timepoint:   tp,
		Volume:      vol,
		Regimen:     regimen,
		Sex:         dataset.SexFemale,
		Weight:      weight,
		HasMetadata: true,
	}
}

func TestSummarize_SingleRegimenMean(t *testing.T) {
	rows := []dataset.Observation{
		obs("A", "Capomulin", 0, 45, 20),
		obs("A", "Capomulin", 5, 40, 20),
		obs("A", "Capomulin", 10, 38, 20),
		obs("B", "Capomulin", 0, 45, 22),
		obs("B", "Capomulin", 5, 50, 22),
	}
	got, warns := Summarize(rows)
	require.Len(t, got, 1)
	assert.Empty(t, warns)

	g := got[0]
	assert.Equal(t, 5, g.N)
	assert.InDelta(t, 43.6, g.Mean, 1e-9)
	assert.InDelta(t, 45.0, g.Median, 1e-9)
	assert.InDelta(t, 22.3, float64(g.Variance), 1e-9)
	assert.InDelta(t, math.Sqrt(float64(g.Variance)), float64(g.StdDev), 1e-12)
	assert.InDelta(t, float64(g.StdDev)/math.Sqrt(5), float64(g.SEM), 1e-12)
	assert.GreaterOrEqual(t, g.Median, g.Min)
	assert.LessOrEqual(t, g.Median, g.Max)
}

func TestSummarize_GroupsSortedAndSmallGroupsMissing(t *testing.T) {
	rows := []dataset.Observation{
		obs("C", "Ramicane", 0, 45, 20),
		obs("A", "Capomulin", 0, 45, 20),
		obs("A", "Capomulin", 5, 41, 20),
		{SubjectID: "Z", Timepoint: 0, Volume: 99},
	}
	got, warns := Summarize(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "Capomulin", got[0].Regimen)
	assert.Equal(t, "Ramicane", got[1].Regimen)

	single := got[1]
	assert.Equal(t, 1, single.N)
	assert.Equal(t, 45.0, single.Mean)
	assert.False(t, single.Variance.Defined())
	assert.False(t, single.StdDev.Defined())
	assert.False(t, single.SEM.Defined())
	require.Len(t, warns, 1)
	assert.Equal(t, "Ramicane", warns[0].Regimen)

	b, err := json.Marshal(single)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"variance":null`)
}

func TestCounts(t *testing.T) {
	rows := []dataset.Observation{
		obs("A", "Capomulin", 0, 45, 20),
		obs("A", "Capomulin", 5, 41, 20),
		obs("B", "Ramicane", 0, 45, 20),
		obs("C", "Ramicane", 0, 45, 20),
		obs("C", "Ramicane", 5, 45, 20),
	}
	rows[2].Sex = dataset.SexMale
	assert.Equal(t, []Count{{"Ramicane", 3}, {"Capomulin", 2}}, CountByRegimen(rows))
	assert.Equal(t, []Count{{"Female", 2}, {"Male", 1}}, SexDistribution(rows))
}

func TestFinalObservations_MaxTimepointFirstTieWins(t *testing.T) {
	rows := []dataset.Observation{
		obs("A", "Capomulin", 0, 45, 20),
		obs("A", "Capomulin", 10, 38, 20),
		obs("A", "Capomulin", 5, 40, 20),
		obs("B", "Ramicane", 5, 50, 22),
		obs("B", "Ramicane", 5, 51, 22),
		obs("C", "Propriva", 15, 60, 22),
	}
	got := FinalObservations(rows, []string{"Capomulin", "Ramicane"})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].SubjectID)
	assert.Equal(t, 10, got[0].Timepoint)
	assert.Equal(t, 38.0, got[0].Volume)
	assert.Equal(t, "B", got[1].SubjectID)
	assert.Equal(t, 50.0, got[1].Volume, "first row at the max timepoint wins")
}

func TestDetectOutliers_BoundsAndFlags(t *testing.T) {
	vols := []float64{10, 11, 12, 13, 14, 15, 40}
	var rows []dataset.Observation
	for i, v := range vols {
		id := string(rune('a' + i))
		rows = append(rows, obs(id, "Infubinol", 0, 45, 20), obs(id, "Infubinol", 45, v, 20))
	}
	got, err := DetectOutliers(rows, []string{"Infubinol"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	b := got[0]
	assert.InDelta(t, 11.5, b.Q1, 1e-9)
	assert.InDelta(t, 13.0, b.Median, 1e-9)
	assert.InDelta(t, 14.5, b.Q3, 1e-9)
	assert.InDelta(t, 3.0, b.IQR, 1e-9)
	assert.InDelta(t, 7.0, b.Lower, 1e-9)
	assert.InDelta(t, 19.0, b.Upper, 1e-9)
	assert.Equal(t, []Outlier{{SubjectID: "g", Volume: 40}}, b.Outliers)
	assert.Equal(t, 10.0, b.WhiskerLow)
	assert.Equal(t, 15.0, b.WhiskerHigh)

	assert.GreaterOrEqual(t, b.IQR, 0.0)
	assert.LessOrEqual(t, b.Lower, b.Q1)
	assert.LessOrEqual(t, b.Q1, b.Q3)
	assert.LessOrEqual(t, b.Q3, b.Upper)
}

func TestDetectOutliers_EmptyRegimenReported(t *testing.T) {
	rows := []dataset.Observation{
		obs("A", "Capomulin", 0, 45, 20),
		obs("A", "Capomulin", 5, 41, 20),
	}
	got, err := DetectOutliers(rows, []string{"Capomulin", "Ceftamin"})
	require.Len(t, got, 1)
	assert.Equal(t, "Capomulin", got[0].Regimen)
	assert.Empty(t, got[0].Outliers)

	var eg *EmptyGroupError
	require.True(t, errors.As(err, &eg))
	assert.Equal(t, "Ceftamin", eg.Regimen)
}

func TestSubjectSeries(t *testing.T) {
	rows := []dataset.Observation{
		obs("l509", "Capomulin", 10, 44, 17),
		obs("l509", "Capomulin", 0, 45, 17),
		obs("x001", "Capomulin", 0, 45, 17),
		obs("l509", "Capomulin", 5, 46, 17),
	}
	ts, err := SubjectSeries(rows, "Capomulin", "l509")
	require.NoError(t, err)
	assert.Equal(t, []Point{{0, 45}, {5, 46}, {10, 44}}, ts.Points)

	_, err = SubjectSeries(rows, "Ramicane", "l509")
	var eg *EmptyGroupError
	require.ErrorAs(t, err, &eg)
	assert.Equal(t, "l509", eg.Subject)
}

func TestSubjectAverages(t *testing.T) {
	rows := []dataset.Observation{
		obs("b", "Capomulin", 0, 45, 22),
		obs("a", "Capomulin", 0, 45, 20),
		obs("a", "Capomulin", 5, 41, 20),
		obs("c", "Ramicane", 0, 45, 25),
	}
	avgs, err := SubjectAverages(rows, "Capomulin")
	require.NoError(t, err)
	assert.Equal(t, []SubjectAverage{
		{SubjectID: "a", N: 2, Weight: 20, Volume: 43},
		{SubjectID: "b", N: 1, Weight: 22, Volume: 45},
	}, avgs)

	_, err = SubjectAverages(rows, "Infubinol")
	var eg *EmptyGroupError
	require.ErrorAs(t, err, &eg)
}

func TestRegress_ExactLine(t *testing.T) {
	x := Variable{Name: "x", Values: []float64{1, 2, 3, 4}}
	y := Variable{Name: "y", Values: []float64{3, 5, 7, 9}}
	reg, err := Regress(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, reg.Slope, 1e-9)
	assert.InDelta(t, 1.0, reg.Intercept, 1e-9)
	assert.InDelta(t, 1.0, reg.R, 1e-9)
	assert.InDelta(t, 11.0, reg.Predict(5), 1e-9)
	assert.Equal(t, 4, reg.N)
}

func TestRegress_NoisyData(t *testing.T) {
	x := Variable{Name: "weight", Values: []float64{15, 17, 19, 20, 21, 22, 23, 25}}
	y := Variable{Name: "volume", Values: []float64{36, 35, 39, 40, 39, 42, 41, 45}}
	reg, err := Regress(x, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, reg.R, -1.0)
	assert.LessOrEqual(t, reg.R, 1.0)
	assert.Greater(t, reg.R, 0.8)
	assert.InDelta(t, reg.R*reg.R, reg.RSquared, 1e-12)
	require.True(t, reg.PValue.Defined())
	assert.Less(t, float64(reg.PValue), 0.05)
	assert.Greater(t, float64(reg.SlopeStdErr), 0.0)
}

func TestRegress_Errors(t *testing.T) {
	_, err := Regress(Variable{Name: "x", Values: []float64{1, 2}}, Variable{Name: "y", Values: []float64{1}})
	assert.Error(t, err)
	_, err = Regress(Variable{Name: "x", Values: []float64{1}}, Variable{Name: "y", Values: []float64{1}})
	assert.Error(t, err)
	_, err = Regress(Variable{Name: "x", Values: []float64{2, 2, 2}}, Variable{Name: "y", Values: []float64{1, 2, 3}})
	assert.Error(t, err)
}

func TestRegress_TwoPointsHasNoPValue(t *testing.T) {
	reg, err := Regress(Variable{Name: "x", Values: []float64{1, 2}}, Variable{Name: "y", Values: []float64{2, 1}})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, reg.R, 1e-9)
	assert.False(t, reg.PValue.Defined())
}

func TestQuantile(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, quantile(s, 0))
	assert.Equal(t, 4.0, quantile(s, 1))
	assert.InDelta(t, 1.75, quantile(s, 0.25), 1e-12)
	assert.InDelta(t, 2.5, quantile(s, 0.5), 1e-12)
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}
