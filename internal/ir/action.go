package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// typesKey holds the lifecycle tags of an asynchronous action.
const typesKey = "types"

// Action is a dispatch-ready action object.
//
// A synchronous action carries Type. An asynchronous action carries the three
// lifecycle tags in Types and the deferred Promise; dispatch middleware runs
// the promise and dispatches plain actions typed with those tags.
type Action struct {
	Type    string
	Types   []string
	Promise PromiseFunc
	Payload Payload
}

// IsAsync reports whether the action is an asynchronous lifecycle action.
func (a Action) IsAsync() bool {
	return len(a.Types) > 0
}

// Get returns a payload field.
func (a Action) Get(key string) (any, bool) {
	v, ok := a.Payload[key]
	return v, ok
}

// reserved reports whether a payload key is shadowed by the action's own fields.
func (a Action) reserved(k string) bool {
	if k == PromiseKey || k == TypeKey {
		return true
	}
	return k == typesKey && a.IsAsync()
}

// MarshalJSON produces the flattened dispatch-ready object:
//
//	sync:  {"type":"name", ...payload}
//	async: {"types":["WAIT@name","SUCCESS@name","FAIL@name"], ...payload}
//
// Keys are emitted in RFC 8785 order. The promise is never serialized, and payload
// entries under the reserved keys are dropped. This is NOT canonical marshaling;
// use MarshalCanonical for hashing and golden traces.
func (a Action) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(a.Payload)+1)
	for k, v := range a.Payload {
		if a.reserved(k) {
			continue
		}
		fields[k] = v
	}
	if a.IsAsync() {
		fields[typesKey] = a.Types
	} else {
		fields[TypeKey] = a.Type
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valBytes, err := json.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("action field %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Map returns the flattened object form of the action as a plain map, the same
// shape MarshalJSON encodes. Used by canonical marshaling and subset assertions.
func (a Action) Map() map[string]any {
	out := make(map[string]any, len(a.Payload)+1)
	for k, v := range a.Payload {
		if a.reserved(k) {
			continue
		}
		out[k] = v
	}
	if a.IsAsync() {
		types := make([]any, len(a.Types))
		for i, t := range a.Types {
			types[i] = t
		}
		out[typesKey] = types
	} else {
		out[TypeKey] = a.Type
	}
	return out
}
