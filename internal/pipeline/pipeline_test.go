package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/tumorstat/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const metadata = `Mouse ID,Drug Regimen,Sex,Age_months,Weight (g)
l509,Capomulin,Male,17,21
s185,Capomulin,Female,3,17
r944,Capomulin,Male,12,25
k403,Ramicane,Male,21,16
g989,Propriva,Female,21,26
`

const results = `Mouse ID,Timepoint,Tumor Volume (mm3),Metastatic Sites
l509,0,45.0,0
l509,5,45.85,0
l509,10,46.76,0
s185,0,45.0,0
s185,5,43.88,0
s185,10,37.61,0
r944,0,45.0,0
r944,5,47.37,0
r944,10,48.11,1
k403,0,45.0,0
k403,5,38.83,0
g989,0,45.0,0
g989,0,45.0,0
g989,5,48.79,0
`

func writeInputs(t *testing.T, meta, res string) Config {
	t.Helper()
	dir := t.TempDir()
	mp := filepath.Join(dir, "Mouse_metadata.csv")
	rp := filepath.Join(dir, "Study_results.csv")
	require.NoError(t, os.WriteFile(mp, []byte(meta), 0o644))
	require.NoError(t, os.WriteFile(rp, []byte(res), 0o644))
	return Config{
		MetadataPath:    mp,
		ResultsPath:     rp,
		OutlierRegimens: []string{"Capomulin", "Ramicane", "Ceftamin"},
		FocusRegimen:    "Capomulin",
		FocusSubject:    "l509",
	}
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := writeInputs(t, metadata, results)
	res, err := Run(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 14, res.MergedRows)
	assert.Equal(t, []string{"g989"}, res.Cleaned.DuplicateIDs)
	assert.Equal(t, 5, res.Cleaned.SubjectsBefore)
	assert.Equal(t, 4, res.Cleaned.SubjectsAfter)

	require.Len(t, res.Summaries, 2)
	assert.Equal(t, "Capomulin", res.Summaries[0].Regimen)
	assert.Equal(t, 9, res.Summaries[0].N)
	for _, s := range res.Summaries {
		assert.NotEqual(t, "Propriva", s.Regimen)
	}

	require.Len(t, res.Outliers, 2)
	assert.Equal(t, []float64{46.76, 37.61, 48.11}, res.Outliers[0].Values)

	require.NotNil(t, res.Series)
	assert.Len(t, res.Series.Points, 3)

	require.Len(t, res.Averages, 3)
	require.NotNil(t, res.Regression)
	assert.Equal(t, 3, res.Regression.N)

	// Ceftamin was requested but has no subjects.
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Ceftamin")
}

func TestRun_FormatErrorIsFatal(t *testing.T) {
	cfg := writeInputs(t, metadata, strings.Replace(results, "k403,5,38.83,0", "k403,5,38.83", 1))
	_, err := Run(cfg, nil)
	var fe *dataset.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 12, fe.Line)
}

func TestRun_MissingFocusSubjectIsWarning(t *testing.T) {
	cfg := writeInputs(t, metadata, results)
	cfg.FocusSubject = "zzz"
	cfg.OutlierRegimens = nil
	res, err := Run(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Series)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "zzz")
	// Empty regimen list means every regimen present.
	assert.Len(t, res.Outliers, 2)
}

func TestRun_DuplicateMetadataNamesFile(t *testing.T) {
	cfg := writeInputs(t, metadata+"l509,Ramicane,Male,17,21\n", results)
	_, err := Run(cfg, nil)
	var fe *dataset.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, cfg.MetadataPath, fe.Path)
	assert.Contains(t, err.Error(), "Mouse_metadata.csv")
	assert.Contains(t, err.Error(), "l509")
}
