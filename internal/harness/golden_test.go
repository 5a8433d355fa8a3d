package harness

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenCounterFlow(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/counter_flow.yaml")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, s, counterCatalog()))
}

func TestGoldenCreatorErrors(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/creator_errors.yaml")
	require.NoError(t, err)

	result, err := Run(s, nil)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.NoError(t, AssertGolden(t, s.Name, result))
}

func TestGoldenIgnoresRunID(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/counter_flow.yaml")
	require.NoError(t, err)
	s.RunID = ""

	for _, id := range []string{"a", "b"} {
		result, err := Run(s, counterCatalog(), WithRunIDGenerator(NewFixedGenerator(id)))
		require.NoError(t, err)
		assert.Equal(t, id, result.RunID)
		require.NoError(t, AssertGolden(t, "counter_flow", result))
	}
}

func TestRunWithGoldenPropagatesRunError(t *testing.T) {
	err := RunWithGolden(t, &Scenario{Name: "broken"}, nil)
	require.Error(t, err)
}

func TestTraceSnapshotCanonicalMap(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "s",
		Trace: []TraceEvent{
			{Type: EventRejected, Step: 0, Action: "ping", Code: "E206", Seq: 1},
		},
		State: map[string]any{"k": 1},
	}

	m := snap.toCanonicalMap()
	assert.Equal(t, "s", m["scenario_name"])
	assert.Equal(t, map[string]any{"k": 1}, m["state"])

	events := m["trace"].([]any)
	require.Len(t, events, 1)
	event := events[0].(map[string]any)
	assert.Equal(t, "E206", event["code"])
	assert.NotContains(t, event, "object")
}

func TestSnapshotMatchesGoldenFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/counter_flow.yaml")
	require.NoError(t, err)
	result, err := Run(s, counterCatalog())
	require.NoError(t, err)

	data, err := Snapshot(s.Name, result)
	require.NoError(t, err)

	want, err := os.ReadFile("testdata/golden/counter_flow.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(data))
}
