package harness

import (
	"github.com/roach88/nested/internal/ir"
)

// StepRecord is the log-side outcome of one scenario step.
type StepRecord struct {
	Seq      int64  `json:"seq,omitempty"` // Log seq of the appended entry; 0 when nothing was appended
	Op       string `json:"op"`
	Key      string `json:"key,omitempty"`
	Position string `json:"position,omitempty"` // Recorded position, formatted
	Error    string `json:"error,omitempty"`    // Expected error the step failed with
}

// LiveEntry is one live entry of the final view, newest first.
type LiveEntry struct {
	Key      string `json:"key"`
	Position string `json:"position,omitempty"` // Empty for unpositioned entries
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Steps records what each step appended.
	Steps []StepRecord `json:"steps"`

	// Live lists the live entries after the last step.
	Live []LiveEntry `json:"live"`

	// State is the materialized view after the last step.
	State *ir.Tree `json:"state"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepRecord{},
		Live:   []LiveEntry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep records a step outcome.
func (r *Result) AddStep(rec StepRecord) {
	r.Steps = append(r.Steps, rec)
}
