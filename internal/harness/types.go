package harness

import "github.com/roach88/fluentchain/internal/trace"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when no step failed and every assertion held.
	Pass bool `json:"pass"`

	// Session is the session token the steps were recorded under.
	Session string `json:"session"`

	// Trace contains every resolve and invoke in seq order.
	Trace []trace.Event `json:"trace"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stored is the chain's store at the end, snapshotted.
	Stored map[string]any `json:"stored"`

	// FinalProxy is a snapshot of the proxy at the end.
	FinalProxy any `json:"final_proxy"`

	// StepsRun counts the steps that ran before the scenario stopped.
	StepsRun int `json:"steps_run"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Event{},
		Errors: []string{},
		Stored: map[string]any{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
