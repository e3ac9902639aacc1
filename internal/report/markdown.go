package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tumorstat/internal/analysis"
	"github.com/KaramelBytes/tumorstat/internal/pipeline"
	"github.com/KaramelBytes/tumorstat/internal/utils"
)

// Markdown renders the run as a compact, sectioned report.
func Markdown(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString("[STUDY SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Metadata: %s\n", filepath.Base(res.MetadataPath)))
	b.WriteString(fmt.Sprintf("Results: %s\n", filepath.Base(res.ResultsPath)))
	if c := res.Cleaned; c != nil {
		b.WriteString(fmt.Sprintf("Observations: %d merged, %d after cleaning\n", c.RowsBefore, len(c.Observations)))
		b.WriteString(fmt.Sprintf("Subjects: %d merged, %d after cleaning\n", c.SubjectsBefore, c.SubjectsAfter))

		b.WriteString("\n[CLEANING]\n")
		if len(c.DuplicateIDs) == 0 {
			b.WriteString("- no duplicate (subject, timepoint) records\n")
		} else {
			b.WriteString(fmt.Sprintf("- excluded subjects with duplicate timepoints: %s (%d rows)\n", strings.Join(c.DuplicateIDs, ", "), len(c.Duplicates)))
		}
	}

	if len(res.Summaries) > 0 {
		b.WriteString("\n[TUMOR VOLUME BY REGIMEN]\n")
		b.WriteString("| Regimen | N | Mean | Median | Variance | Std. Dev. | Std. Err. |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
		for _, g := range res.Summaries {
			b.WriteString(fmt.Sprintf("| %s | %d | %.3f | %.3f | %s | %s | %s |\n",
				safeVal(g.Regimen), g.N, g.Mean, g.Median, est(g.Variance), est(g.StdDev), est(g.SEM)))
		}
	}

	if len(res.RegimenCounts) > 0 {
		b.WriteString("\n[OBSERVATIONS PER REGIMEN]\n")
		for _, c := range res.RegimenCounts {
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(c.Label), c.Count))
		}
	}

	if len(res.SexCounts) > 0 {
		b.WriteString("\n[SEX DISTRIBUTION]\n")
		total := 0
		for _, c := range res.SexCounts {
			total += c.Count
		}
		for _, c := range res.SexCounts {
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", c.Label, c.Count, float64(c.Count)*100/float64(total)))
		}
	}

	if len(res.Outliers) > 0 {
		b.WriteString("\n[FINAL VOLUME OUTLIERS]\n")
		for _, o := range res.Outliers {
			b.WriteString(fmt.Sprintf("- %s (n=%d): Q1 %.3f, median %.3f, Q3 %.3f, IQR %.3f; bounds [%.3f, %.3f]",
				safeVal(o.Regimen), len(o.Values), o.Q1, o.Median, o.Q3, o.IQR, o.Lower, o.Upper))
			if len(o.Outliers) == 0 {
				b.WriteString("; no potential outliers\n")
				continue
			}
			parts := make([]string, len(o.Outliers))
			for i, x := range o.Outliers {
				parts[i] = fmt.Sprintf("%s=%.3f", x.SubjectID, x.Volume)
			}
			b.WriteString("; potential outliers: " + strings.Join(parts, ", ") + "\n")
		}
	}

	if ts := res.Series; ts != nil {
		b.WriteString(fmt.Sprintf("\n[SUBJECT TIME SERIES]\n%s treated with %s\n", ts.SubjectID, ts.Regimen))
		b.WriteString("| Timepoint | Tumor Volume (mm3) |\n| --- | --- |\n")
		for _, p := range ts.Points {
			b.WriteString(fmt.Sprintf("| %d | %.3f |\n", p.Timepoint, p.Volume))
		}
	}

	if reg := res.Regression; reg != nil {
		b.WriteString("\n[WEIGHT VS VOLUME]\n")
		b.WriteString(fmt.Sprintf("- %s ~ %s over %d subjects\n", reg.Y, reg.X, reg.N))
		b.WriteString(fmt.Sprintf("- correlation r=%.3f (r²=%.3f)\n", reg.R, reg.RSquared))
		b.WriteString(fmt.Sprintf("- fit: y = %.4f·x + %.4f; slope std. err. %s, p-value %s\n", reg.Slope, reg.Intercept, est(reg.SlopeStdErr), pval(reg.PValue)))
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range res.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// JSON returns the run as indented JSON.
func JSON(res *pipeline.Result) ([]byte, error) {
	return utils.PrettyJSON(res)
}

func est(e analysis.Estimate) string {
	if !e.Defined() {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", float64(e))
}

func pval(e analysis.Estimate) string {
	if !e.Defined() {
		return "n/a"
	}
	if float64(e) < 1e-4 {
		return "<0.0001"
	}
	return fmt.Sprintf("%.4f", float64(e))
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
