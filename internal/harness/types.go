package harness

// RunResult is the outcome of one query run.
type RunResult struct {
	Step        string   `json:"step"`
	Matches     []string `json:"matches"`
	Resolutions int      `json:"resolutions"`
	Entries     int      `json:"entries"`
	Error       string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Runs holds one entry for the initial run and one per step.
	Runs []RunResult `json:"runs"`

	// Match is the final root match predicate.
	Match string `json:"match"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
