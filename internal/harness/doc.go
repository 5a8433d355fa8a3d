// Package harness runs YAML scenarios against compiled action definitions.
//
// A scenario names a CUE definitions file, a list of steps and a list of
// assertions. Each run registers the definitions into a fresh registry,
// dispatches an init action to every store key, then executes the steps in
// order.
//
// # Scenario Format
//
//	name: counter_increments
//	description: "increment twice from zero"
//	definitions: counter.cue
//	run_id: "fixed-run-id"        # optional
//	steps:
//	  - create: increment
//	    args: [{by: 2}]
//	    dispatch: true            # dispatch the created action
//	  - dispatch:                 # dispatch a literal action
//	      type: "SUCCESS@fetchUser"
//	      payload: {id: 7}
//	assertions:
//	  - type: state
//	    store: counter
//	    expect: {count: 2}
//	  - type: action
//	    step: 0
//	    expect: {type: increment}
//	  - type: error
//	    step: 2
//	    code: E206
//	  - type: trace_contains
//	    action: increment
//	  - type: trace_count
//	    action: increment
//	    event: created
//	    count: 1
//
// Relative definitions paths resolve against the scenario file's directory.
//
// # Assertion Types
//
//   - state: subset match on the final state of a store key
//   - action: subset match on the flattened action produced at a step
//   - error: the creator call at a step failed with the given code
//   - trace_contains: at least one trace event of a kind for an action
//   - trace_count: exactly N trace events of a kind for an action
//
// Event kinds are created, dispatched (the default) and rejected.
//
// # Deterministic Output
//
// Trace sequence numbers come from a per-run logical clock, and golden
// snapshots leave out the run ID, so repeated runs of a scenario produce
// byte-identical canonical JSON.
//
// # Catalogs
//
// Handler and builder references in the definitions resolve through a
// compiler.Catalog. Passing nil uses StubCatalog, which binds identity
// handlers and echo builders so definitions can be checked without the
// program that owns them.
package harness
