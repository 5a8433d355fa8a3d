package harness

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/actionkit/internal/compiler"
	"github.com/roach88/actionkit/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", event.Seq, event.Type, event.Action)
			if event.Code != "" {
				fmt.Fprintf(&buf, " (%s)", event.Code)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// assertState checks the final state of a store key (subset match).
func assertState(result *Result, a Assertion) error {
	actual, ok := result.State[a.Store]
	if !ok {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("state for store %q", a.Store),
			Actual:   fmt.Sprintf("no reducer registered under %q", a.Store),
		}
	}
	if !matchSubset(actual, a.Expect) {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("store %q state matching %s", a.Store, describe(a.Expect)),
			Actual:   describe(actual),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertAction checks the action produced at a step (subset match on the
// flattened action object).
func assertAction(result *Result, a Assertion) error {
	if a.Step == nil {
		return fmt.Errorf("%s assertion requires a step", a.Type)
	}
	step := *a.Step
	action, ok := result.Actions[step]
	if !ok {
		actual := "no action"
		if err, failed := result.StepErrors[step]; failed {
			actual = fmt.Sprintf("creator failed: %v", err)
		}
		return &AssertionError{
			Type:     AssertAction,
			Expected: fmt.Sprintf("step %d action matching %s", step, describe(a.Expect)),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	if !matchSubset(action.Map(), a.Expect) {
		return &AssertionError{
			Type:     AssertAction,
			Expected: fmt.Sprintf("step %d action matching %s", step, describe(a.Expect)),
			Actual:   describe(action),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertError checks that the creator call at a step failed with a code.
func assertError(result *Result, a Assertion) error {
	if a.Step == nil {
		return fmt.Errorf("%s assertion requires a step", a.Type)
	}
	step := *a.Step
	err, ok := result.StepErrors[step]
	if !ok {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("step %d to fail with %s", step, a.Code),
			Actual:   "creator succeeded",
			Trace:    result.Trace,
		}
	}
	if code := compiler.CodeOf(err); code != a.Code {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("step %d to fail with %s", step, a.Code),
			Actual:   fmt.Sprintf("failed with %s: %v", code, err),
			Trace:    result.Trace,
		}
	}
	return nil
}

// countEvents counts trace events of the assertion's kind for its action.
func countEvents(trace []TraceEvent, a Assertion) int {
	kind := a.Event
	if kind == "" {
		kind = EventDispatched
	}

	count := 0
	for _, event := range trace {
		if event.Type == kind && event.Action == a.Action {
			count++
		}
	}
	return count
}

// assertTraceContains checks the trace for at least one matching event.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	if countEvents(trace, a) > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s event for %s", eventKind(a), a.Action),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks the exact number of matching events.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := countEvents(trace, a)
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events for %s", a.Count, eventKind(a), a.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func eventKind(a Assertion) string {
	if a.Event == "" {
		return EventDispatched
	}
	return a.Event
}

// matchSubset reports whether actual contains expected. Maps match when
// every expected key is present with a matching value; extra keys in actual
// are ignored. Other values must be equal.
func matchSubset(actual, expected any) bool {
	expMap, ok := asMap(expected)
	if !ok {
		return valuesEqual(actual, expected)
	}
	actMap, ok := asMap(actual)
	if !ok {
		return false
	}
	for key, expVal := range expMap {
		actVal, exists := actMap[key]
		if !exists || !matchSubset(actVal, expVal) {
			return false
		}
	}
	return true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case ir.Payload:
		return m, true
	}
	return nil, false
}

// valuesEqual compares two values by their canonical JSON form, so numbers
// decoded as int, int64 or integral float64 compare equal.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	a, errA := ir.MarshalCanonical(actual)
	e, errE := ir.MarshalCanonical(expected)
	if errA != nil || errE != nil {
		return reflect.DeepEqual(actual, expected)
	}
	return bytes.Equal(a, e)
}

// describe renders a value for failure messages.
func describe(v any) string {
	if data, err := ir.MarshalCanonical(v); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", v)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertState:
			err = assertState(result, a)
		case AssertAction:
			err = assertAction(result, a)
		case AssertError:
			err = assertError(result, a)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
