package compiler

import (
	"fmt"
	"reflect"

	"github.com/roach88/actionkit/internal/ir"
)

// Handlers are the lifecycle handlers of an asynchronous action.
type Handlers struct {
	OnWait    any
	OnSuccess any
	OnFail    any
}

type handlerSlot struct {
	name  string
	value any
}

// slots lists the handlers in dispatch order.
func (h *Handlers) slots() []handlerSlot {
	return []handlerSlot{
		{"onWait", h.OnWait},
		{"onSuccess", h.OnSuccess},
		{"onFail", h.OnFail},
	}
}

// Options configure a single action registration.
//
// Handler, Handlers and Action are untyped so that values resolved from a
// declarative definition can be passed through unchanged; Compile checks each
// of them before building anything.
type Options struct {
	// Action is the payload builder. Optional; see AsBuilder for accepted forms.
	Action any

	// Async selects lifecycle mode. Nil means synchronous.
	Async *bool

	// StoreKey names the registry slot the reducer is merged under.
	StoreKey string

	// Handler is the single reducer-handler of a synchronous action.
	Handler any

	// Handlers are the lifecycle handlers of an asynchronous action.
	Handlers *Handlers

	// InitialState is the state a reducer starts from. Required.
	InitialState any
}

// Bool returns a pointer to b, for Options.Async.
func Bool(b bool) *bool {
	return &b
}

// Descriptor is a compiled action.
type Descriptor struct {
	Name         string       `json:"name"`
	StoreKey     string       `json:"store_key"`
	Async        bool         `json:"async"`
	Types        []string     `json:"types"`
	InitialState any          `json:"initial_state"`
	ID           string       `json:"id"`
	Lifecycle    ir.Lifecycle `json:"-"`
	Reducer      ir.Reducer   `json:"-"`
	Builder      Builder      `json:"-"`
}

// Creator returns the action creator for the compiled action.
func (d *Descriptor) Creator() ir.Creator {
	return MakeCreator(d.Name, d.Lifecycle, d.Async, d.Builder)
}

// Compile validates opts and builds the reducer for the named action.
// It has no side effects; Compiler.Register merges the result.
//
// Checks run in a fixed order and the first failure is returned as a
// *ConfigError: name, initial state, store key, builder, then the
// mode-specific handler checks.
func Compile(name string, opts Options) (*Descriptor, error) {
	if name == "" {
		return nil, &ConfigError{
			Code:    CodeInvalidName,
			Field:   "name",
			Message: "action name must not be empty",
			Err:     ErrInvalidName,
		}
	}

	if isMissing(opts.InitialState) {
		return nil, &ConfigError{
			Code:    CodeMissingInitialState,
			Action:  name,
			Field:   "initialState",
			Message: "initial state must not be empty.",
			Err:     ErrMissingInitialState,
		}
	}

	if opts.StoreKey == "" {
		return nil, &ConfigError{
			Code:    CodeMissingStoreKey,
			Action:  name,
			Field:   "storeKey",
			Message: fmt.Sprintf("store key is required for action %q", name),
			Err:     ErrMissingStoreKey,
		}
	}

	var builder Builder
	if opts.Action != nil {
		b, ok := AsBuilder(opts.Action)
		if !ok {
			return nil, &ConfigError{
				Code:    CodeInvalidBuilder,
				Action:  name,
				Field:   "action",
				Message: fmt.Sprintf("payload builder must be a function of the form func(ir.Args) (ir.Payload, error), got %T", opts.Action),
				Err:     ErrInvalidBuilder,
			}
		}
		builder = b
	}

	async := opts.Async != nil && *opts.Async
	lc := ir.LifecycleOf(name)

	var reducer ir.Reducer
	var err error
	if async {
		reducer, err = compileAsync(name, lc, opts)
	} else {
		reducer, err = compileSync(name, opts)
	}
	if err != nil {
		return nil, err
	}

	types := []string{name}
	if async {
		types = lc.Types()
	}

	return &Descriptor{
		Name:         name,
		StoreKey:     opts.StoreKey,
		Async:        async,
		Types:        types,
		InitialState: opts.InitialState,
		ID:           ir.DescriptorID(name, opts.StoreKey, async),
		Lifecycle:    lc,
		Reducer:      reducer,
		Builder:      builder,
	}, nil
}

func compileAsync(name string, lc ir.Lifecycle, opts Options) (ir.Reducer, error) {
	if err := ValidateHandlers(name, opts.Handlers); err != nil {
		return nil, err
	}
	if opts.Handler != nil {
		return nil, &ConfigError{
			Code:    CodeConflictingHandlers,
			Action:  name,
			Field:   "handler",
			Message: "async action takes lifecycle handlers, not a single handler",
			Err:     ErrConflictingHandlers,
		}
	}

	for _, slot := range opts.Handlers.slots() {
		if err := checkHandlerState(slot.value, opts.InitialState); err != nil {
			return nil, &ConfigError{
				Code:    CodeInvalidHandler,
				Action:  name,
				Field:   "handlers." + slot.name,
				Message: fmt.Sprintf("handler %s %v", slot.name, err),
				Err:     ErrInvalidHandler,
			}
		}
	}

	// Validated above.
	onWait, _ := AsHandler(opts.Handlers.OnWait)
	onSuccess, _ := AsHandler(opts.Handlers.OnSuccess)
	onFail, _ := AsHandler(opts.Handlers.OnFail)
	initial := opts.InitialState

	return func(state any, action ir.Action) any {
		if state == nil {
			state = initial
		}
		switch action.Type {
		case lc.Wait:
			return onWait(state, action)
		case lc.Success:
			return onSuccess(state, action)
		case lc.Fail:
			return onFail(state, action)
		default:
			return state
		}
	}, nil
}

func compileSync(name string, opts Options) (ir.Reducer, error) {
	if opts.Handlers != nil {
		return nil, &ConfigError{
			Code:    CodeConflictingHandlers,
			Action:  name,
			Field:   "handlers",
			Message: "lifecycle handlers require async mode",
			Err:     ErrConflictingHandlers,
		}
	}

	handler, ok := AsHandler(opts.Handler)
	if !ok {
		return nil, &ConfigError{
			Code:    CodeInvalidSyncHandler,
			Action:  name,
			Field:   "handler",
			Message: fmt.Sprintf("handler for action %q must be a function of the form %s, got %T", name, handlerShape, opts.Handler),
			Err:     ErrInvalidSyncHandler,
		}
	}
	if err := checkHandlerState(opts.Handler, opts.InitialState); err != nil {
		return nil, &ConfigError{
			Code:    CodeInvalidSyncHandler,
			Action:  name,
			Field:   "handler",
			Message: fmt.Sprintf("handler for action %q %v", name, err),
			Err:     ErrInvalidSyncHandler,
		}
	}
	initial := opts.InitialState

	return func(state any, action ir.Action) any {
		if state == nil {
			state = initial
		}
		if action.Type == name {
			return handler(state, action)
		}
		return state
	}, nil
}

// isMissing reports whether v is absent: untyped nil or a nil pointer.
// Zero values such as 0, "" and false are valid initial states.
func isMissing(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
