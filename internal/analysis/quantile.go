package analysis

import (
	"encoding/json"
	"math"
	"sort"
)

// Estimate is a statistic that may be undefined; undefined values are NaN
// and encode as JSON null.
type Estimate float64

// Missing is the undefined Estimate.
func Missing() Estimate { return Estimate(math.NaN()) }

// Defined reports whether the value was computable.
func (e Estimate) Defined() bool { return !math.IsNaN(float64(e)) }

func (e Estimate) MarshalJSON() ([]byte, error) {
	if !e.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(e))
}

// quantile interpolates linearly between the closest ranks of sorted values,
// at position q*(n-1).
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func sortedCopy(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}
