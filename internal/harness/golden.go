package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/actionkit/internal/compiler"
	"github.com/roach88/actionkit/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run. The run ID is left out
// so snapshots stay stable across runs.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Trace        []TraceEvent   `json:"trace"`
	State        map[string]any `json:"state"`
}

// toCanonicalMap converts the snapshot to plain maps for ir.MarshalCanonical.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type":   event.Type,
			"step":   event.Step,
			"action": event.Action,
			"seq":    event.Seq,
		}
		if event.Object != nil {
			eventMap["object"] = event.Object
		}
		if event.Code != "" {
			eventMap["code"] = event.Code
		}
		traceList[i] = eventMap
	}

	state := make(map[string]any, len(s.State))
	for k, v := range s.State {
		state[k] = v
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"state":         state,
	}
}

// Snapshot renders the golden form of a result as canonical JSON.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// RunWithGolden runs a scenario and compares its trace and final state
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// A returned error means the scenario could not be run or snapshotted; a
// mismatch fails t through goldie.
func RunWithGolden(t *testing.T, s *Scenario, cat compiler.Catalog, opts ...Option) error {
	t.Helper()

	result, err := Run(s, cat, opts...)
	if err != nil {
		return err
	}
	return AssertGolden(t, s.Name, result)
}

// AssertGolden compares an existing result against the golden file for
// scenarioName without re-running it.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	newGoldie(t).Assert(t, scenarioName, data)
	return nil
}
