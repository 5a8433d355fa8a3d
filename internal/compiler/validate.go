package compiler

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/actionkit/internal/ir"
)

// handlerShape is the expected handler shape quoted in error messages.
const handlerShape = "func(state, action) state"

var actionType = reflect.TypeOf(ir.Action{})

// IsHandler reports whether v can be invoked as a handler: a non-nil function
// taking exactly two positional arguments (state, action) and returning one
// value.
func IsHandler(v any) bool {
	_, ok := AsHandler(v)
	return ok
}

// AsHandler adapts v to an ir.Handler.
//
// ir.Handler, ir.Reducer and func(any, ir.Action) any are used as-is. Any
// other func(S, A) R is accepted when an ir.Action can be passed as A; it is
// called through reflection, with a nil state passed as the zero S.
func AsHandler(v any) (ir.Handler, bool) {
	switch h := v.(type) {
	case nil:
		return nil, false
	case ir.Handler:
		return h, h != nil
	case ir.Reducer:
		return ir.Handler(h), h != nil
	case func(any, ir.Action) any:
		return ir.Handler(h), h != nil
	}
	return reflectHandler(v)
}

func reflectHandler(v any) (ir.Handler, bool) {
	fn := reflect.ValueOf(v)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, false
	}
	t := fn.Type()
	if t.IsVariadic() || t.NumIn() != 2 || t.NumOut() != 1 {
		return nil, false
	}
	if !actionType.AssignableTo(t.In(1)) {
		return nil, false
	}

	stateType := t.In(0)
	return func(state any, action ir.Action) any {
		sv, err := stateValue(stateType, state)
		if err != nil {
			return state
		}
		out := fn.Call([]reflect.Value{sv, reflect.ValueOf(action)})
		return out[0].Interface()
	}, true
}

// stateValue converts the incoming state to the handler's declared state type.
// Numeric states are converted between kinds only when the value survives the
// conversion; anything else must be assignable.
func stateValue(t reflect.Type, state any) (reflect.Value, error) {
	if state == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(state)
	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case isNumeric(v.Kind()) && isNumeric(t.Kind()):
		out := v.Convert(t)
		if isNegative(v) != isNegative(out) || !out.Convert(v.Type()).Equal(v) {
			return reflect.Value{}, fmt.Errorf("%v does not fit in %s", state, t)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", state, t)
}

// checkHandlerState reports why handler v cannot reduce from initial.
// Handlers over any accept every state.
func checkHandlerState(v, initial any) error {
	switch v.(type) {
	case ir.Handler, ir.Reducer, func(any, ir.Action) any:
		return nil
	}
	t := reflect.TypeOf(v)
	in, out := t.In(0), t.Out(0)
	if !out.AssignableTo(in) {
		return fmt.Errorf("returns %s, which is not its state type %s", out, in)
	}
	if _, err := stateValue(in, initial); err != nil {
		return fmt.Errorf("initial state: %w", err)
	}
	return nil
}

func isNegative(v reflect.Value) bool {
	switch {
	case v.CanInt():
		return v.Int() < 0
	case v.CanFloat():
		return v.Float() < 0
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// AsBuilder adapts v to a Builder. Accepted forms:
//
//	Builder, func(ir.Args) (ir.Payload, error), func(ir.Args) ir.Payload,
//	func(ir.Args) (map[string]any, error), func(ir.Args) map[string]any,
//	func(...any) ir.Payload, func(...any) map[string]any,
//	func() ir.Payload, func() map[string]any
//
// The variadic forms receive the argument record spread.
func AsBuilder(v any) (Builder, bool) {
	switch b := v.(type) {
	case nil:
		return nil, false
	case Builder:
		return b, b != nil
	case func(ir.Args) (ir.Payload, error):
		return Builder(b), b != nil
	case func(ir.Args) ir.Payload:
		if b == nil {
			return nil, false
		}
		return func(args ir.Args) (ir.Payload, error) { return b(args), nil }, true
	case func(ir.Args) (map[string]any, error):
		if b == nil {
			return nil, false
		}
		return func(args ir.Args) (ir.Payload, error) {
			p, err := b(args)
			return ir.Payload(p), err
		}, true
	case func(ir.Args) map[string]any:
		if b == nil {
			return nil, false
		}
		return func(args ir.Args) (ir.Payload, error) { return ir.Payload(b(args)), nil }, true
	case func(...any) ir.Payload:
		if b == nil {
			return nil, false
		}
		return func(args ir.Args) (ir.Payload, error) { return b(args...), nil }, true
	case func(...any) map[string]any:
		if b == nil {
			return nil, false
		}
		return func(args ir.Args) (ir.Payload, error) { return ir.Payload(b(args...)), nil }, true
	case func() ir.Payload:
		if b == nil {
			return nil, false
		}
		return func(ir.Args) (ir.Payload, error) { return b(), nil }, true
	case func() map[string]any:
		if b == nil {
			return nil, false
		}
		return func(ir.Args) (ir.Payload, error) { return ir.Payload(b()), nil }, true
	}
	return nil, false
}

// AsPromise adapts v to an ir.PromiseFunc. Accepted forms are ir.PromiseFunc,
// func(context.Context) (any, error) and func() (any, error).
func AsPromise(v any) (ir.PromiseFunc, bool) {
	switch p := v.(type) {
	case nil:
		return nil, false
	case ir.PromiseFunc:
		return p, p != nil
	case func(context.Context) (any, error):
		return ir.PromiseFunc(p), p != nil
	case func() (any, error):
		if p == nil {
			return nil, false
		}
		return func(context.Context) (any, error) { return p() }, true
	}
	return nil, false
}

// ValidateHandlers checks the lifecycle handlers of an async action in
// dispatch order: onWait, onSuccess, onFail. The first failure is returned.
func ValidateHandlers(name string, h *Handlers) error {
	if h == nil {
		return &ConfigError{
			Code:    CodeHandlersRequired,
			Action:  name,
			Field:   "handlers",
			Message: "async action requires handlers onWait, onSuccess and onFail",
			Err:     ErrHandlersRequired,
		}
	}
	for _, slot := range h.slots() {
		if !IsHandler(slot.value) {
			return &ConfigError{
				Code:    CodeInvalidHandler,
				Action:  name,
				Field:   "handlers." + slot.name,
				Message: fmt.Sprintf("handler %s must be a function of the form %s, got %T", slot.name, handlerShape, slot.value),
				Err:     ErrInvalidHandler,
			}
		}
	}
	return nil
}

// ValidationError represents a definition validation error.
type ValidationError struct {
	Action  string `json:"action,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	field := e.Field
	if e.Action != "" {
		field = e.Action + "." + e.Field
	}
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, field, e.Message)
}

// ValidateDefinitions checks a definition set against the registration rules
// that can be decided without resolving catalog references.
// Returns all errors found (does not fail-fast).
func ValidateDefinitions(set *DefinitionSet) []ValidationError {
	if set == nil || len(set.Actions) == 0 {
		return []ValidationError{{
			Field:   "action",
			Message: "no actions supplied",
			Code:    CodeNoActions,
		}}
	}

	var errs []ValidationError
	seen := make(map[string]bool, len(set.Actions))

	for _, def := range set.Actions {
		line := def.Pos.Line()
		add := func(field, code, msg string) {
			errs = append(errs, ValidationError{
				Action:  def.Name,
				Field:   field,
				Message: msg,
				Code:    code,
				Line:    line,
			})
		}

		// E200: name
		if def.Name == "" {
			add("name", CodeInvalidName, "action name must not be empty")
		}

		// E212: duplicate name
		if seen[def.Name] {
			add("name", CodeDuplicateName, fmt.Sprintf("duplicate action name: %q", def.Name))
		}
		seen[def.Name] = true

		// E201: initial state after defaulting
		if def.InitialState == nil && set.InitialState == nil {
			add("initialState", CodeMissingInitialState, "initial state must not be empty.")
		}

		// E202: store key after defaulting
		if def.StoreKey == "" && set.StoreKey == "" {
			add("storeKey", CodeMissingStoreKey, fmt.Sprintf("store key is required for action %q", def.Name))
		}

		// E208: mode conflicts
		if def.Handler != "" && def.Handlers != nil {
			add("handler", CodeConflictingHandlers, "handler and handlers are mutually exclusive")
		}
		if def.Async != nil && !*def.Async && def.Handlers != nil {
			add("handlers", CodeConflictingHandlers, "async is false but lifecycle handlers are declared")
		}

		// E203/E204/E205: required references
		switch {
		case def.IsAsync() && def.Handlers == nil:
			add("handlers", CodeHandlersRequired, "async action requires handlers onWait, onSuccess and onFail")
		case def.IsAsync():
			for _, slot := range def.Handlers.slots() {
				if slot.ref == "" {
					add("handlers."+slot.name, CodeInvalidHandler, fmt.Sprintf("handler %s is missing", slot.name))
				}
			}
		case def.Handlers != nil:
			// reported as E208 above
		case def.Handler == "":
			add("handler", CodeInvalidSyncHandler, fmt.Sprintf("sync action %q requires a handler", def.Name))
		}
	}

	return errs
}
