// Package actionkit compiles declarative action configurations into reducers
// merged into a shared registry, and returns creators that build
// dispatch-ready action objects.
//
// A synchronous action reduces a single dispatch type with one handler:
//
//	reg := actionkit.NewRegistry()
//	increment, err := actionkit.Register(reg, "increment", actionkit.Options{
//		StoreKey:     "counter",
//		InitialState: 0,
//		Handler:      func(state int, _ actionkit.Action) int { return state + 1 },
//	})
//
// An asynchronous action reduces its WAIT@, SUCCESS@ and FAIL@ lifecycle
// types with three handlers, and its creator must return a payload carrying
// an invocable promise under the "promise" key. Creators never run the
// promise; that belongs to dispatch middleware.
package actionkit

import (
	"go.uber.org/zap"

	"github.com/roach88/actionkit/internal/compiler"
	"github.com/roach88/actionkit/internal/ir"
	"github.com/roach88/actionkit/internal/registry"
)

type (
	// Options configures one action. See Register.
	Options = compiler.Options
	// Handlers holds the lifecycle handlers of an asynchronous action.
	Handlers = compiler.Handlers
	// Batch is a set of actions registered together with shared defaults.
	Batch = compiler.Batch
	// Builder turns a creator's arguments into a payload.
	Builder = compiler.Builder
	// ConfigError is returned for every invalid configuration.
	ConfigError = compiler.ConfigError
	// Option configures registration.
	Option = compiler.Option

	// Action is a dispatch-ready action object.
	Action = ir.Action
	// Payload is the data a builder attaches to an action.
	Payload = ir.Payload
	// Args is the argument record passed to a creator.
	Args = ir.Args
	// Creator builds a dispatch-ready action from its arguments.
	Creator = ir.Creator
	// Reducer computes the next state from a state and an action.
	Reducer = ir.Reducer
	// PromiseFunc is the deferred work of an asynchronous action.
	PromiseFunc = ir.PromiseFunc
	// Lifecycle holds the WAIT@, SUCCESS@ and FAIL@ types of an action.
	Lifecycle = ir.Lifecycle

	// Registry receives reducers per store key.
	Registry = registry.Registry
	// Memory is the in-memory Registry returned by NewRegistry.
	Memory = registry.Memory
)

// Sentinels carried by ConfigError. Match them with errors.Is.
var (
	ErrInvalidName         = compiler.ErrInvalidName
	ErrMissingInitialState = compiler.ErrMissingInitialState
	ErrMissingStoreKey     = compiler.ErrMissingStoreKey
	ErrHandlersRequired    = compiler.ErrHandlersRequired
	ErrInvalidHandler      = compiler.ErrInvalidHandler
	ErrInvalidSyncHandler  = compiler.ErrInvalidSyncHandler
	ErrMissingPromise      = compiler.ErrMissingPromise
	ErrNoActions           = compiler.ErrNoActions
	ErrConflictingHandlers = compiler.ErrConflictingHandlers
	ErrInvalidBuilder      = compiler.ErrInvalidBuilder
	ErrBuilderFailed       = compiler.ErrBuilderFailed
)

// NewRegistry returns an empty in-memory registry.
func NewRegistry() *Memory {
	return registry.NewMemory()
}

// WithLogger logs registrations to l.
func WithLogger(l *zap.Logger) Option {
	return compiler.WithLogger(l)
}

// Bool returns a pointer to b, for Options.Async.
func Bool(b bool) *bool {
	return compiler.Bool(b)
}

// Bind adapts a builder taking one typed argument record.
func Bind[A any](fn func(A) (Payload, error)) Builder {
	return compiler.Bind(fn)
}

// LifecycleOf returns the lifecycle dispatch types of an action name.
func LifecycleOf(name string) Lifecycle {
	return ir.LifecycleOf(name)
}

// Register validates opts, merges the action's reducer into reg under
// opts.StoreKey and returns its creator. Nothing is merged when an error is
// returned.
func Register(reg Registry, name string, opts Options, options ...Option) (Creator, error) {
	return compiler.New(reg, options...).Register(name, opts)
}

// RegisterAll registers every action of b. Missing initial states and store
// keys fall back to the batch defaults, and actions with Handlers default to
// asynchronous. An invalid action fails the batch before anything is merged.
// A merge error from reg leaves the actions merged before it in place.
func RegisterAll(reg Registry, b Batch, options ...Option) (map[string]Creator, error) {
	return compiler.New(reg, options...).RegisterAll(b)
}
