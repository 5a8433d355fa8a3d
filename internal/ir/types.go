package ir

import "context"

// Reserved payload keys. A payload builder may return them; the action creator
// extracts both and never copies them into the payload.
const (
	PromiseKey = "promise"
	TypeKey    = "type"
)

// Args is the positional input record handed to an action creator and
// forwarded unchanged to the payload builder.
type Args []any

// Payload is the object produced by a payload builder.
type Payload map[string]any

// Clone returns a shallow copy of the payload. A nil payload clones to an
// empty, non-nil one.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Reducer computes the next state from the current state and a dispatched action.
// A nil state means "no state yet"; reducers built by the compiler resolve it to
// their initial state.
type Reducer func(state any, action Action) any

// Handler is the caller-supplied state transition invoked by a reducer for a
// matching action type.
type Handler func(state any, action Action) any

// PromiseFunc is the deferred work of an asynchronous action. It is carried on
// the dispatch-ready action and executed by dispatch middleware, never by the
// action creator.
type PromiseFunc func(ctx context.Context) (any, error)

// Creator turns an argument record into a dispatch-ready action.
type Creator func(args Args) (Action, error)
