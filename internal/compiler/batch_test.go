package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/actionkit/internal/ir"
	"github.com/roach88/actionkit/internal/registry"
)

func TestRegisterAllKeysMatchInput(t *testing.T) {
	reg := registry.NewMemory()
	c := New(reg)

	creators, err := c.RegisterAll(Batch{
		InitialState: "S0",
		StoreKey:     "K",
		Actions: map[string]Options{
			"a": {Handler: identityHandler},
			"b": {Handler: identityHandler},
		},
	})
	require.NoError(t, err)

	require.Len(t, creators, 2)
	for _, name := range []string{"a", "b"} {
		create, ok := creators[name]
		require.True(t, ok, name)
		action, err := create(nil)
		require.NoError(t, err)
		assert.Equal(t, name, action.Type)
	}

	assert.Equal(t, []string{"K"}, reg.Keys())
	state, err := reg.Reduce("K", nil, ir.Action{Type: "a"})
	require.NoError(t, err)
	assert.Equal(t, "S0", state)
}

func TestRegisterAllOverridesTakePrecedence(t *testing.T) {
	reg := registry.NewMemory()
	c := New(reg)

	_, err := c.RegisterAll(Batch{
		InitialState: "global",
		StoreKey:     "shared",
		Actions: map[string]Options{
			"a": {Handler: identityHandler},
			"b": {Handler: identityHandler, StoreKey: "own", InitialState: "local"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"own", "shared"}, reg.Keys())

	own, err := reg.Reduce("own", nil, ir.Action{Type: "noop"})
	require.NoError(t, err)
	assert.Equal(t, "local", own)

	shared, err := reg.Reduce("shared", nil, ir.Action{Type: "noop"})
	require.NoError(t, err)
	assert.Equal(t, "global", shared)
}

func TestRegisterAllHandlersImplyAsync(t *testing.T) {
	reg := registry.NewMemory()
	c := New(reg)

	creators, err := c.RegisterAll(Batch{
		InitialState: "idle",
		StoreKey:     "users",
		Actions: map[string]Options{
			"fetchUser": {
				Action: func(args ir.Args) ir.Payload {
					return ir.Payload{"promise": func() (any, error) { return nil, nil }}
				},
				Handlers: &Handlers{
					OnWait:    tagHandler("waiting"),
					OnSuccess: tagHandler("loaded"),
					OnFail:    tagHandler("failed"),
				},
			},
		},
	})
	require.NoError(t, err)

	action, err := creators["fetchUser"](nil)
	require.NoError(t, err)
	assert.True(t, action.IsAsync())

	state, err := reg.Reduce("users", nil, ir.Action{Type: "SUCCESS@fetchUser"})
	require.NoError(t, err)
	assert.Equal(t, "loaded", state)
}

func TestRegisterAllExplicitFalseWithHandlers(t *testing.T) {
	reg := registry.NewMemory()
	c := New(reg)

	_, err := c.RegisterAll(Batch{
		InitialState: 0,
		StoreKey:     "k",
		Actions: map[string]Options{
			"a": {Async: Bool(false), Handlers: &Handlers{OnWait: identityHandler, OnSuccess: identityHandler, OnFail: identityHandler}},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingHandlers)
	assert.Equal(t, 0, reg.Len())
}

func TestRegisterAllEmpty(t *testing.T) {
	c := New(registry.NewMemory())

	for name, actions := range map[string]map[string]Options{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			creators, err := c.RegisterAll(Batch{Actions: actions, InitialState: 0, StoreKey: "k"})
			require.Error(t, err)
			assert.Nil(t, creators)
			assert.ErrorIs(t, err, ErrNoActions)
			assert.Equal(t, "[E207] actions: no actions supplied", err.Error())
		})
	}
}

func TestRegisterAllNoPartialRegistration(t *testing.T) {
	reg := registry.NewMemory()
	c := New(reg)

	_, err := c.RegisterAll(Batch{
		InitialState: 0,
		StoreKey:     "k",
		Actions: map[string]Options{
			"a": {Handler: identityHandler},
			"b": {Handler: identityHandler},
			"z": {Handler: "not a function"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidSyncHandler, CodeOf(err))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "z", cfgErr.Action)

	assert.Zero(t, reg.Len())
}

func TestCompileBatchSortedOrder(t *testing.T) {
	descriptors, err := CompileBatch(Batch{
		InitialState: 0,
		StoreKey:     "k",
		Actions: map[string]Options{
			"c": {Handler: identityHandler},
			"a": {Handler: identityHandler},
			"b": {Handler: identityHandler},
		},
	})
	require.NoError(t, err)

	var names []string
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestCompileBatchFirstFailureInNameOrder(t *testing.T) {
	_, err := CompileBatch(Batch{
		StoreKey: "k",
		Actions: map[string]Options{
			"b": {Handler: identityHandler},
			"a": {Handler: identityHandler},
		},
	})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "a", cfgErr.Action)
	assert.Equal(t, CodeMissingInitialState, cfgErr.Code)
}

func TestRegisterAllSharedStoreKeyCombinesInNameOrder(t *testing.T) {
	reg := registry.NewMemory()
	c := New(reg)

	add := func(n int) ir.Handler {
		return func(state any, _ ir.Action) any { return state.(int) + n }
	}

	_, err := c.RegisterAll(Batch{
		InitialState: 0,
		StoreKey:     "counter",
		Actions: map[string]Options{
			"addOne": {Handler: add(1)},
			"addTen": {Handler: add(10)},
		},
	})
	require.NoError(t, err)

	state, err := reg.Reduce("counter", nil, ir.Action{Type: "addTen"})
	require.NoError(t, err)
	assert.Equal(t, 10, state)

	state, err = reg.Reduce("counter", state, ir.Action{Type: "addOne"})
	require.NoError(t, err)
	assert.Equal(t, 11, state)
}

// cappedRegistry rejects every merge after the first failAt.
type cappedRegistry struct {
	*registry.Memory
	failAt int
	merged int
}

func (r *cappedRegistry) Merge(storeKey string, reducer ir.Reducer) error {
	if r.merged == r.failAt {
		return errors.New("registry full")
	}
	r.merged++
	return r.Memory.Merge(storeKey, reducer)
}

func TestRegisterAllMergeFailureKeepsEarlierMerges(t *testing.T) {
	reg := &cappedRegistry{Memory: registry.NewMemory(), failAt: 1}
	c := New(reg)

	creators, err := c.RegisterAll(Batch{
		InitialState: 0,
		StoreKey:     "counter",
		Actions: map[string]Options{
			"a": {Handler: identityHandler},
			"b": {Handler: identityHandler},
		},
	})
	require.Error(t, err)
	assert.Nil(t, creators)
	assert.Contains(t, err.Error(), `merge reducer for action "b"`)

	// "a" sorts first and was merged before the failure.
	assert.Equal(t, []registry.Entry{{StoreKey: "counter", Fragments: 1}}, reg.Entries())
}

func TestRegisterAllInvalidEntryMergesNothing(t *testing.T) {
	reg := &cappedRegistry{Memory: registry.NewMemory(), failAt: 10}
	c := New(reg)

	_, err := c.RegisterAll(Batch{
		InitialState: 0,
		StoreKey:     "counter",
		Actions: map[string]Options{
			"a": {Handler: identityHandler},
			"z": {Handler: "not a function"},
		},
	})
	require.Error(t, err)
	assert.Zero(t, reg.merged)
	assert.Zero(t, reg.Len())
}
