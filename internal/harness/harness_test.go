package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/actionkit/internal/compiler"
	"github.com/roach88/actionkit/internal/ir"
)

var counterCUE = filepath.Join("testdata", "definitions", "counter.cue")

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// counterCatalog implements the references used by counter.cue.
func counterCatalog() compiler.Catalog {
	return compiler.NewCatalog().
		Register("counter.increment", func(state map[string]any, a ir.Action) map[string]any {
			return map[string]any{"count": toInt(state["count"]) + toInt(a.Payload["by"])}
		}).
		Register("counter.reset", func(map[string]any, ir.Action) map[string]any {
			return map[string]any{"count": 0}
		}).
		Register("counter.by", func(args ir.Args) (ir.Payload, error) {
			rec, _ := args[0].(map[string]any)
			return ir.Payload{"by": rec["by"]}, nil
		}).
		Register("users.wait", func(state map[string]any, _ ir.Action) map[string]any {
			return map[string]any{"loading": true, "name": state["name"]}
		}).
		Register("users.ok", func(_ map[string]any, a ir.Action) map[string]any {
			return map[string]any{"loading": false, "name": a.Payload["name"]}
		}).
		Register("users.fail", func(state map[string]any, a ir.Action) map[string]any {
			return map[string]any{"loading": false, "name": state["name"], "error": a.Payload["error"]}
		}).
		Register("users.fetch", func(args ir.Args) (ir.Payload, error) {
			rec, _ := args[0].(map[string]any)
			return ir.Payload{
				"id":          rec["id"],
				ir.PromiseKey: ir.PromiseFunc(func(context.Context) (any, error) { return rec["id"], nil }),
			}, nil
		})
}

func intp(i int) *int { return &i }

func counterScenario(steps []Step, assertions []Assertion) *Scenario {
	return &Scenario{
		Name:        "counter",
		Definitions: counterCUE,
		RunID:       "run-test",
		Steps:       steps,
		Assertions:  assertions,
	}
}

func TestRunDispatchesCreatedAction(t *testing.T) {
	s := counterScenario(
		[]Step{
			{Create: "increment", Args: []any{map[string]any{"by": 2}}, Dispatch: &Dispatch{Created: true}},
			{Create: "increment", Args: []any{map[string]any{"by": 4}}, Dispatch: &Dispatch{Created: true}},
		},
		[]Assertion{
			{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 6}},
			{Type: AssertAction, Step: intp(0), Expect: map[string]any{"type": "increment", "by": 2}},
		},
	)

	result, err := Run(s, counterCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "run-test", result.RunID)
	assert.Equal(t, map[string]any{"count": 6}, result.State["counter"])
	require.Len(t, result.Trace, 4)
	assert.Equal(t, EventCreated, result.Trace[0].Type)
	assert.Equal(t, EventDispatched, result.Trace[1].Type)
}

func TestRunResolvesInitialStates(t *testing.T) {
	s := counterScenario(
		[]Step{{Dispatch: &Dispatch{Type: "unrelated"}}},
		[]Assertion{
			{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 0}},
			{Type: AssertState, Store: "users", Expect: map[string]any{"loading": false}},
		},
	)

	result, err := Run(s, counterCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]any{"count": int64(0)}, result.State["counter"])
}

func TestRunCreateWithoutDispatchLeavesState(t *testing.T) {
	s := counterScenario(
		[]Step{{Create: "increment", Args: []any{map[string]any{"by": 9}}}},
		[]Assertion{{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 0}}},
	)

	result, err := Run(s, counterCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, EventCreated, result.Trace[0].Type)
}

func TestRunAsyncLifecycle(t *testing.T) {
	s := counterScenario(
		[]Step{
			{Create: "fetchUser", Args: []any{map[string]any{"id": 1}}},
			{Dispatch: &Dispatch{Type: "WAIT@fetchUser"}},
			{Dispatch: &Dispatch{Type: "FAIL@fetchUser", Payload: map[string]any{"error": "timeout"}}},
		},
		[]Assertion{
			{Type: AssertAction, Step: intp(0), Expect: map[string]any{"id": 1}},
			{Type: AssertState, Store: "users", Expect: map[string]any{"loading": false, "error": "timeout"}},
			{Type: AssertTraceContains, Action: "fetchUser", Event: EventCreated},
			{Type: AssertTraceCount, Action: "FAIL@fetchUser", Count: 1},
		},
	)

	result, err := Run(s, counterCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	created := result.Actions[0]
	assert.True(t, created.IsAsync())
	require.NotNil(t, created.Promise)
	v, err := created.Promise(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRunRejectsDispatchOfAsyncAction(t *testing.T) {
	s := counterScenario(
		[]Step{{Create: "fetchUser", Args: []any{map[string]any{"id": 1}}, Dispatch: &Dispatch{Created: true}}},
		nil,
	)

	_, err := Run(s, counterCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0")
	assert.Contains(t, err.Error(), "is async")
}

func TestRunRecordsCreatorErrors(t *testing.T) {
	s := counterScenario(
		[]Step{{Create: "ping"}},
		[]Assertion{
			{Type: AssertError, Step: intp(0), Code: compiler.CodeMissingPromise},
			{Type: AssertTraceCount, Action: "ping", Event: EventRejected, Count: 1},
		},
	)

	result, err := Run(s, counterCatalog())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.ErrorIs(t, result.StepErrors[0], compiler.ErrMissingPromise)
	_, ok := result.Actions[0]
	assert.False(t, ok)
}

func TestRunFailedAssertionsMarkResult(t *testing.T) {
	s := counterScenario(
		[]Step{{Create: "increment", Args: []any{map[string]any{"by": 1}}, Dispatch: &Dispatch{Created: true}}},
		[]Assertion{{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 2}}},
	)

	result, err := Run(s, counterCatalog())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `{"count":1}`)
}

func TestRunUnknownAction(t *testing.T) {
	s := counterScenario([]Step{{Create: "decrement"}}, nil)

	_, err := Run(s, counterCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action "decrement"`)
}

func TestRunUnknownCatalogReference(t *testing.T) {
	s := counterScenario([]Step{{Create: "increment"}}, nil)

	_, err := Run(s, compiler.NewCatalog())
	require.Error(t, err)
	assert.Equal(t, compiler.CodeUnknownReference, compiler.CodeOf(err))
}

func TestRunHandlerPanicBecomesError(t *testing.T) {
	cat := counterCatalog().Register("counter.increment", func(map[string]any, ir.Action) map[string]any {
		panic("boom")
	})
	s := counterScenario(
		[]Step{{Create: "increment", Args: []any{map[string]any{"by": 1}}, Dispatch: &Dispatch{Created: true}}},
		nil,
	)

	_, err := Run(s, cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Contains(t, err.Error(), "boom")
}

func TestRunGeneratesRunID(t *testing.T) {
	s := counterScenario([]Step{{Dispatch: &Dispatch{Type: "noop"}}}, nil)
	s.RunID = ""

	result, err := Run(s, counterCatalog(), WithRunIDGenerator(NewFixedGenerator("generated-1")))
	require.NoError(t, err)
	assert.Equal(t, "generated-1", result.RunID)
}

func TestRunIsIsolated(t *testing.T) {
	s := counterScenario(
		[]Step{{Create: "increment", Args: []any{map[string]any{"by": 1}}, Dispatch: &Dispatch{Created: true}}},
		[]Assertion{{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 1}}},
	)

	for range 3 {
		result, err := Run(s, counterCatalog())
		require.NoError(t, err)
		assert.True(t, result.Pass, "errors: %v", result.Errors)
	}
}

func TestRunLogsSteps(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := counterScenario(
		[]Step{
			{Create: "increment", Args: []any{map[string]any{"by": 1}}, Dispatch: &Dispatch{Created: true}},
			{Create: "ping"},
		},
		nil,
	)

	_, err := Run(s, counterCatalog(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("action created").Len())
	assert.Equal(t, 1, logs.FilterMessage("action dispatched").Len())
	rejected := logs.FilterMessage("creator rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "E206", rejected[0].ContextMap()["code"])
	assert.Equal(t, "run-test", rejected[0].ContextMap()["run_id"])
}

func TestRunInvalidScenario(t *testing.T) {
	_, err := Run(&Scenario{Name: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestRunWithStubCatalog(t *testing.T) {
	s := counterScenario(
		[]Step{{Create: "increment", Args: []any{"a", 1}, Dispatch: &Dispatch{Created: true}}},
		[]Assertion{
			{Type: AssertState, Store: "counter", Expect: map[string]any{"count": 0}},
			{Type: AssertAction, Step: intp(0), Expect: map[string]any{"args": []any{"a", 1}}},
		},
	)

	result, err := Run(s, nil)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestLoadDefinitions(t *testing.T) {
	set, err := LoadDefinitions(counterCUE)
	require.NoError(t, err)
	assert.Equal(t, "counter", set.StoreKey)
	assert.Len(t, set.Actions, 4)

	_, err = LoadDefinitions("testdata/definitions/missing.cue")
	require.Error(t, err)
}
