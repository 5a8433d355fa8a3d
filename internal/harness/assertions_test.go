package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/actionkit/internal/compiler"
	"github.com/roach88/actionkit/internal/ir"
)

func sampleResult() *Result {
	r := NewResult("run")
	created := ir.Action{Type: "increment", Payload: ir.Payload{"by": 2, "meta": map[string]any{"src": "ui"}}}
	r.Actions[0] = created
	r.addCreated(0, created, 1)
	r.addDispatched(0, created, 2)
	r.StepErrors[1] = &compiler.ConfigError{Code: compiler.CodeMissingPromise, Action: "ping", Err: compiler.ErrMissingPromise}
	r.addRejected(1, "ping", compiler.CodeMissingPromise, 3)
	r.State["counter"] = map[string]any{"count": int64(2), "history": []any{int64(2)}}
	return r
}

func TestMatchSubset(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"equal scalars", 1, 1, true},
		{"int and int64", int64(3), 3, true},
		{"int and integral float", 3, 3.0, true},
		{"different scalars", 1, 2, false},
		{"strings", "a", "a", true},
		{"nil and nil", nil, nil, true},
		{"nil and value", nil, 0, false},
		{"subset map", map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1}, true},
		{"missing key", map[string]any{"a": 1}, map[string]any{"b": 1}, false},
		{"nested subset", map[string]any{"a": map[string]any{"x": 1, "y": 2}}, map[string]any{"a": map[string]any{"y": 2}}, true},
		{"map against scalar", 1, map[string]any{"a": 1}, false},
		{"payload", ir.Payload{"a": "v", "b": 1}, map[string]any{"a": "v"}, true},
		{"lists exact", []any{1, 2}, []any{1, 2}, true},
		{"lists differ", []any{1, 2}, []any{1}, false},
		{"empty expected map", map[string]any{"a": 1}, map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchSubset(tt.actual, tt.expected))
		})
	}
}

func TestAssertState(t *testing.T) {
	r := sampleResult()

	require.NoError(t, assertState(r, Assertion{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 2}}))
	require.NoError(t, assertState(r, Assertion{Type: AssertState, Store: "counter", Expect: map[string]any{"history": []any{2}}}))

	err := assertState(r, Assertion{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 3}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertState, ae.Type)
	assert.Contains(t, ae.Expected, `{"count":3}`)
	assert.Equal(t, `{"count":2,"history":[2]}`, ae.Actual)

	err = assertState(r, Assertion{Type: AssertState, Store: "users", Expect: map[string]any{}})
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, `no reducer registered under "users"`)
}

func TestAssertAction(t *testing.T) {
	r := sampleResult()

	require.NoError(t, assertAction(r, Assertion{Type: AssertAction, Step: intp(0), Expect: map[string]any{"type": "increment"}}))
	require.NoError(t, assertAction(r, Assertion{Type: AssertAction, Step: intp(0), Expect: map[string]any{"meta": map[string]any{"src": "ui"}}}))

	err := assertAction(r, Assertion{Type: AssertAction, Step: intp(0), Expect: map[string]any{"by": 5}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, `"by":2`)

	err = assertAction(r, Assertion{Type: AssertAction, Step: intp(1), Expect: map[string]any{}})
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, "creator failed")

	err = assertAction(r, Assertion{Type: AssertAction, Step: intp(7), Expect: map[string]any{}})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "no action", ae.Actual)

	err = assertAction(r, Assertion{Type: AssertAction, Expect: map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a step")
}

func TestAssertError(t *testing.T) {
	r := sampleResult()

	require.NoError(t, assertError(r, Assertion{Type: AssertError, Step: intp(1), Code: "E206"}))

	err := assertError(r, Assertion{Type: AssertError, Step: intp(1), Code: "E210"})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, "failed with E206")

	err = assertError(r, Assertion{Type: AssertError, Step: intp(0), Code: "E206"})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "creator succeeded", ae.Actual)

	r.StepErrors[2] = errors.New("plain")
	err = assertError(r, Assertion{Type: AssertError, Step: intp(2), Code: "E210"})
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, "failed with : plain")
}

func TestTraceAssertions(t *testing.T) {
	trace := sampleResult().Trace

	require.NoError(t, assertTraceContains(trace, Assertion{Action: "increment"}))
	require.NoError(t, assertTraceContains(trace, Assertion{Action: "ping", Event: EventRejected}))
	require.Error(t, assertTraceContains(trace, Assertion{Action: "ping"}))

	require.NoError(t, assertTraceCount(trace, Assertion{Action: "increment", Count: 1}))
	require.NoError(t, assertTraceCount(trace, Assertion{Action: "increment", Event: EventCreated, Count: 1}))
	require.NoError(t, assertTraceCount(trace, Assertion{Action: "reset", Count: 0}))

	err := assertTraceCount(trace, Assertion{Type: AssertTraceCount, Action: "increment", Count: 3})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "3 dispatched events for increment", ae.Expected)
	assert.Equal(t, "1 occurrences", ae.Actual)
}

func TestAssertionErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 dispatched events for increment",
		Actual:   "1 occurrences",
		Trace: []TraceEvent{
			{Type: EventDispatched, Action: "increment", Seq: 1},
			{Type: EventRejected, Action: "ping", Code: "E206", Seq: 2},
		},
	}

	want := "Assertion failed: trace_count\n" +
		"  Expected: 2 dispatched events for increment\n" +
		"  Actual: 1 occurrences\n" +
		"\nFull trace:\n" +
		"  [1] dispatched increment\n" +
		"  [2] rejected ping (E206)\n"
	assert.Equal(t, want, err.Error())
}

func TestEvaluateAssertions(t *testing.T) {
	r := sampleResult()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 2}},
		{Type: AssertTraceCount, Action: "increment", Count: 9},
		{Type: "bogus"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "trace_count")
	assert.Equal(t, `assertion[2]: unknown assertion type "bogus"`, errs[1])

	assert.Empty(t, EvaluateAssertions(r, nil))
}
