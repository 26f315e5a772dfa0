package pipeline

import (
	"fmt"
	"time"
)

// Result is one league's run: every output table plus the warnings and
// stage errors collected on the way.
type Result struct {
	League    string        `json:"league,omitempty"`
	Seasons   []int         `json:"seasons"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Outputs   Outputs       `json:"outputs"`
	Warnings  []string      `json:"warnings"`
	Errors    []string      `json:"errors"`
}

// AddWarning records a non-fatal notice.
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddWarningf records a formatted non-fatal notice.
func (r *Result) AddWarningf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// AddError records a stage failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted stage failure.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// OK reports whether every stage completed.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	o := &r.Outputs
	return fmt.Sprintf(
		"seasons=%d picks=%d manager_seasons=%d lifecycle=%d trades=%d champions=%d warnings=%d errors=%d",
		len(r.Seasons), len(o.NormalizedDraft), len(o.ManagerSeasons),
		len(o.Lifecycle), len(o.Trades.Impacts), len(o.Blueprint.Rows),
		len(r.Warnings), len(r.Errors),
	)
}
