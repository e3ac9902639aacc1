package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/tumorstat/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// GroupSummary holds descriptive statistics of tumor volume for one regimen.
type GroupSummary struct {
	Regimen  string   `json:"regimen"`
	N        int      `json:"n"`
	Mean     float64  `json:"mean"`
	Median   float64  `json:"median"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Variance Estimate `json:"variance"`
	StdDev   Estimate `json:"std_dev"`
	SEM      Estimate `json:"sem"`
}

// Count is a labelled frequency.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summarize groups observations by regimen (sorted by name) and computes
// mean, median, sample variance, sample standard deviation and SEM of the
// tumor volume. Rows without metadata belong to no regimen and are skipped.
func Summarize(obs []dataset.Observation) ([]GroupSummary, []*UndefinedStatisticWarning) {
	groups, order := volumesByRegimen(obs)
	out := make([]GroupSummary, 0, len(order))
	var warns []*UndefinedStatisticWarning
	for _, r := range order {
		vals := groups[r]
		sorted := sortedCopy(vals)
		g := GroupSummary{
			Regimen:  r,
			N:        len(vals),
			Mean:     stat.Mean(vals, nil),
			Median:   quantile(sorted, 0.5),
			Min:      sorted[0],
			Max:      sorted[len(sorted)-1],
			Variance: Missing(),
			StdDev:   Missing(),
			SEM:      Missing(),
		}
		if g.N >= 2 {
			v := stat.Variance(vals, nil)
			sd := math.Sqrt(v)
			g.Variance = Estimate(v)
			g.StdDev = Estimate(sd)
			g.SEM = Estimate(stat.StdErr(sd, float64(g.N)))
		} else {
			warns = append(warns, &UndefinedStatisticWarning{Regimen: r, N: g.N})
		}
		out = append(out, g)
	}
	return out, warns
}

// CountByRegimen counts observed timepoints per regimen, most frequent first.
func CountByRegimen(obs []dataset.Observation) []Count {
	counts := map[string]int{}
	for _, o := range obs {
		if !o.HasMetadata {
			continue
		}
		counts[o.Regimen]++
	}
	return sortCounts(counts)
}

// SexDistribution counts unique subjects by sex, using each subject's first row.
func SexDistribution(obs []dataset.Observation) []Count {
	seen := map[string]struct{}{}
	counts := map[string]int{}
	for _, o := range obs {
		if !o.HasMetadata {
			continue
		}
		if _, ok := seen[o.SubjectID]; ok {
			continue
		}
		seen[o.SubjectID] = struct{}{}
		counts[string(o.Sex)]++
	}
	return sortCounts(counts)
}

// Regimens lists the distinct regimens present, sorted by name.
func Regimens(obs []dataset.Observation) []string {
	_, order := volumesByRegimen(obs)
	return order
}

func volumesByRegimen(obs []dataset.Observation) (map[string][]float64, []string) {
	groups := map[string][]float64{}
	for _, o := range obs {
		if !o.HasMetadata {
			continue
		}
		groups[o.Regimen] = append(groups[o.Regimen], o.Volume)
	}
	order := make([]string, 0, len(groups))
	for r := range groups {
		order = append(order, r)
	}
	sort.Strings(order)
	return groups, order
}

func sortCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Label < out[j].Label
		}
		return out[i].Count > out[j].Count
	})
	return out
}
