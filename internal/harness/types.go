package harness

import "fmt"

// TraceEvent records what one step did.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Ref     string `json:"ref,omitempty"`
	Outcome string `json:"outcome"`
	// Deleted is the number of entities removed by a delete step.
	Deleted int `json:"deleted,omitempty"`
}

// Result holds the trace and failures of one scenario run.
type Result struct {
	Trace  []TraceEvent
	Errors []string
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{Trace: []TraceEvent{}, Errors: []string{}}
}

// Passed reports whether every step and assertion held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// AddError records a failure.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
