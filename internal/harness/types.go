package harness

// Outcome of a step that succeeded.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Actor   string `json:"actor"`
	Op      string `json:"op"`
	Target  string `json:"target,omitempty"`
	Value   *int   `json:"value,omitempty"`
	Outcome string `json:"outcome"`           // OutcomeOK or an error code
	Seq     int64  `json:"seq,omitempty"`     // Event seq; 0 for rejected steps
	Kind    string `json:"kind,omitempty"`    // Event kind; empty for rejected steps
	Message string `json:"message,omitempty"` // Notification message
	Stored  *int   `json:"stored,omitempty"`  // Value after the step
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step matched its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Notifications is every message delivered to the notifier, in order.
	Notifications []string `json:"notifications"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Errors:        []string{},
		Notifications: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
