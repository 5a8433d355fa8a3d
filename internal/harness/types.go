package harness

import "github.com/roach88/actionkit/internal/ir"

// Trace event kinds.
const (
	EventCreated    = "created"
	EventDispatched = "dispatched"
	EventRejected   = "rejected"
)

func isEventKind(kind string) bool {
	switch kind {
	case EventCreated, EventDispatched, EventRejected:
		return true
	}
	return false
}

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type   string `json:"type"` // "created", "dispatched" or "rejected"
	Step   int    `json:"step"`
	Action string `json:"action"`           // action name or dispatch type
	Object any    `json:"object,omitempty"` // flattened action object
	Code   string `json:"code,omitempty"`   // error code of a rejected creator call
	Seq    int64  `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// RunID identifies this execution. It is not part of golden output.
	RunID string `json:"run_id"`

	// Trace contains every created, dispatched and rejected action in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state per store key.
	State map[string]any `json:"state,omitempty"`

	// Actions are the actions created or dispatched per step index.
	Actions map[int]ir.Action `json:"-"`

	// StepErrors are the creator errors per step index.
	StepErrors map[int]error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(runID string) *Result {
	return &Result{
		Pass:       true,
		RunID:      runID,
		Trace:      []TraceEvent{},
		Errors:     []string{},
		State:      make(map[string]any),
		Actions:    make(map[int]ir.Action),
		StepErrors: make(map[int]error),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addCreated(step int, action ir.Action, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventCreated,
		Step:   step,
		Action: dispatchName(action),
		Object: action.Map(),
		Seq:    seq,
	})
}

func (r *Result) addDispatched(step int, action ir.Action, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventDispatched,
		Step:   step,
		Action: dispatchName(action),
		Object: action.Map(),
		Seq:    seq,
	})
}

func (r *Result) addRejected(step int, name, code string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventRejected,
		Step:   step,
		Action: name,
		Code:   code,
		Seq:    seq,
	})
}

// dispatchName is the type of a sync action or the action name behind the
// lifecycle tags of an async one.
func dispatchName(a ir.Action) string {
	if a.IsAsync() {
		if _, name, ok := ir.SplitLifecycleType(a.Types[0]); ok {
			return name
		}
	}
	return a.Type
}
