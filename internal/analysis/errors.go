package analysis

import (
	"fmt"
)

// EmptyGroupError reports a requested regimen (or subject within a regimen)
// that has no observations. It is surfaced to the user, never skipped.
type EmptyGroupError struct {
	Regimen string
	Subject string
}

func (e *EmptyGroupError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("no observations for subject %q in regimen %q", e.Subject, e.Regimen)
	}
	return fmt.Sprintf("no observations for regimen %q", e.Regimen)
}

// UndefinedStatisticWarning marks a dispersion statistic that cannot be
// computed for a group with fewer than two observations. The value is
// reported as missing.
type UndefinedStatisticWarning struct {
	Regimen string
	N       int
}

func (w *UndefinedStatisticWarning) Error() string {
	return fmt.Sprintf("variance, std and SEM undefined for regimen %q (n=%d, need at least 2)", w.Regimen, w.N)
}
