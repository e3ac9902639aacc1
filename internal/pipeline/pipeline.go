// Package pipeline wires the study stages together. Each stage receives the
// previous stage's output as an argument; nothing is shared implicitly.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/tumorstat/internal/analysis"
	"github.com/KaramelBytes/tumorstat/internal/dataset"
	"go.uber.org/zap"
)

// Config names the inputs and the focus of one run.
type Config struct {
	MetadataPath string
	ResultsPath  string
	Load         dataset.LoadOptions
	// OutlierRegimens restricts quartile/outlier analysis; empty means all.
	OutlierRegimens []string
	// FocusRegimen and FocusSubject select the time series; FocusRegimen
	// also selects the weight/volume regression.
	FocusRegimen string
	FocusSubject string
}

// Result is everything the reporter consumes.
type Result struct {
	MetadataPath  string                    `json:"metadata_path"`
	ResultsPath   string                    `json:"results_path"`
	MergedRows    int                       `json:"merged_rows"`
	Cleaned       *dataset.Cleaned          `json:"cleaning"`
	Summaries     []analysis.GroupSummary   `json:"summaries"`
	RegimenCounts []analysis.Count          `json:"regimen_counts"`
	SexCounts     []analysis.Count          `json:"sex_counts"`
	Outliers      []analysis.OutlierBounds  `json:"outliers"`
	Series        *analysis.TimeSeries      `json:"series,omitempty"`
	Averages      []analysis.SubjectAverage `json:"subject_averages,omitempty"`
	Regression    *analysis.Regression      `json:"regression,omitempty"`
	Warnings      []string                  `json:"warnings,omitempty"`
}

// Prepare loads, merges and cleans the two input tables. Any error is fatal.
func Prepare(cfg Config, log *zap.Logger) (*dataset.Cleaned, error) {
	if log == nil {
		log = zap.NewNop()
	}
	meta, err := dataset.Load(cfg.MetadataPath, dataset.MetadataSchema, cfg.Load)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded table", zap.String("schema", dataset.MetadataSchema.Name), zap.String("path", cfg.MetadataPath), zap.Int("rows", meta.Nrow()))
	results, err := dataset.Load(cfg.ResultsPath, dataset.ResultsSchema, cfg.Load)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded table", zap.String("schema", dataset.ResultsSchema.Name), zap.String("path", cfg.ResultsPath), zap.Int("rows", results.Nrow()))

	merged, err := dataset.Merge(results, meta)
	if err != nil {
		var fe *dataset.FormatError
		if errors.As(err, &fe) && fe.Path == "" {
			fe.Path = cfg.MetadataPath
		}
		return nil, err
	}
	cleaned, err := dataset.Clean(merged)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	log.Debug("cleaned study",
		zap.Int("rows_before", cleaned.RowsBefore),
		zap.Int("rows_after", len(cleaned.Observations)),
		zap.Strings("duplicate_subjects", cleaned.DuplicateIDs),
	)
	return cleaned, nil
}

// Run executes every stage in order. Format errors abort the run; empty
// groups and undefined statistics are collected as warnings.
func Run(cfg Config, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cleaned, err := Prepare(cfg, log)
	if err != nil {
		return nil, err
	}
	res := &Result{
		MetadataPath: cfg.MetadataPath,
		ResultsPath:  cfg.ResultsPath,
		MergedRows:   cleaned.RowsBefore,
		Cleaned:      cleaned,
	}
	obs := cleaned.Observations
	if orphans := countOrphans(obs); orphans > 0 {
		res.warn(log, fmt.Errorf("%d observations have no matching metadata and are excluded from regimen groups", orphans))
	}

	summaries, undefined := analysis.Summarize(obs)
	res.Summaries = summaries
	for _, w := range undefined {
		res.warn(log, w)
	}
	res.RegimenCounts = analysis.CountByRegimen(obs)
	res.SexCounts = analysis.SexDistribution(obs)

	bounds, err := analysis.DetectOutliers(obs, cfg.OutlierRegimens)
	res.Outliers = bounds
	res.warnAll(log, err)
	for _, b := range bounds {
		log.Debug("final volume quartiles", zap.String("regimen", b.Regimen), zap.Float64("iqr", b.IQR), zap.Int("outliers", len(b.Outliers)))
	}

	if cfg.FocusRegimen != "" && cfg.FocusSubject != "" {
		ts, err := analysis.SubjectSeries(obs, cfg.FocusRegimen, cfg.FocusSubject)
		res.Series = ts
		res.warnAll(log, err)
	}
	if cfg.FocusRegimen != "" {
		avgs, err := analysis.SubjectAverages(obs, cfg.FocusRegimen)
		res.Averages = avgs
		res.warnAll(log, err)
		if err == nil {
			x, y := analysis.WeightVolume(avgs)
			reg, err := analysis.Regress(x, y)
			res.Regression = reg
			res.warnAll(log, err)
		}
	}
	return res, nil
}

func (r *Result) warn(log *zap.Logger, err error) {
	log.Warn("analysis warning", zap.Error(err))
	r.Warnings = append(r.Warnings, err.Error())
}

// warnAll records each error of a joined error separately.
func (r *Result) warnAll(log *zap.Logger, err error) {
	if err == nil {
		return
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			r.warn(log, e)
		}
		return
	}
	r.warn(log, err)
}

func countOrphans(obs []dataset.Observation) int {
	n := 0
	for _, o := range obs {
		if !o.HasMetadata {
			n++
		}
	}
	return n
}
