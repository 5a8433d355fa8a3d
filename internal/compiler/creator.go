package compiler

import (
	"fmt"

	"github.com/roach88/actionkit/internal/ir"
)

// Builder computes an action's payload from the creator's argument record.
type Builder func(args ir.Args) (ir.Payload, error)

// Bind adapts a builder over a typed input record. The record is the first
// element of the argument record; a missing element is passed as the zero A.
func Bind[A any](fn func(A) (ir.Payload, error)) Builder {
	return func(args ir.Args) (ir.Payload, error) {
		var in A
		if len(args) > 0 && args[0] != nil {
			v, ok := args[0].(A)
			if !ok {
				return nil, fmt.Errorf("argument record: want %T, got %T", in, args[0])
			}
			in = v
		}
		return fn(in)
	}
}

// MakeCreator returns the action creator for a compiled action.
//
// The creator runs the builder (a nil builder yields an empty payload) and
// removes the reserved keys from a copy of the result. A "type" returned by
// the builder is always discarded; the action name owns the dispatch type.
// Async creators require an invocable "promise" and never run it.
func MakeCreator(name string, lc ir.Lifecycle, async bool, builder Builder) ir.Creator {
	return func(args ir.Args) (ir.Action, error) {
		var built ir.Payload
		if builder != nil {
			p, err := builder(args)
			if err != nil {
				return ir.Action{}, &ConfigError{
					Code:    CodeBuilderFailed,
					Action:  name,
					Field:   "action",
					Message: fmt.Sprintf("payload builder failed: %v", err),
					Err:     fmt.Errorf("%w: %w", ErrBuilderFailed, err),
				}
			}
			built = p
		}

		payload := built.Clone()
		promise, hasPromise := payload[ir.PromiseKey]
		delete(payload, ir.PromiseKey)
		delete(payload, ir.TypeKey)

		if !async {
			return ir.Action{Type: name, Payload: payload}, nil
		}

		p, ok := AsPromise(promise)
		if !ok {
			msg := fmt.Sprintf("payload for async action %q must carry an invocable promise", name)
			if hasPromise {
				msg = fmt.Sprintf("%s, got %T", msg, promise)
			}
			return ir.Action{}, &ConfigError{
				Code:    CodeMissingPromise,
				Action:  name,
				Field:   ir.PromiseKey,
				Message: msg,
				Err:     ErrMissingPromise,
			}
		}

		return ir.Action{Types: lc.Types(), Promise: p, Payload: payload}, nil
	}
}
