package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/actionkit/internal/ir"
)

// HandlerRefs are the catalog references of an async action's lifecycle
// handlers.
type HandlerRefs struct {
	OnWait    string `json:"onWait,omitempty"`
	OnSuccess string `json:"onSuccess,omitempty"`
	OnFail    string `json:"onFail,omitempty"`
}

type refSlot struct {
	name string
	ref  string
}

func (h *HandlerRefs) slots() []refSlot {
	return []refSlot{
		{"onWait", h.OnWait},
		{"onSuccess", h.OnSuccess},
		{"onFail", h.OnFail},
	}
}

// Definition is one declaratively defined action. Handler, Handlers and
// Builder hold catalog references rather than functions.
type Definition struct {
	Name         string       `json:"name"`
	Async        *bool        `json:"async,omitempty"`
	StoreKey     string       `json:"storeKey,omitempty"`
	InitialState any          `json:"initialState,omitempty"`
	Handler      string       `json:"handler,omitempty"`
	Handlers     *HandlerRefs `json:"handlers,omitempty"`
	Builder      string       `json:"builder,omitempty"`
	Pos          token.Pos    `json:"-"`
}

// IsAsync resolves the action mode the way the batch registrar does: an
// explicit async flag wins, otherwise declared handlers imply async.
func (d Definition) IsAsync() bool {
	if d.Async != nil {
		return *d.Async
	}
	return d.Handlers != nil
}

// DefinitionSet is a decoded definition document: defaults plus the actions
// in declaration order.
type DefinitionSet struct {
	Version      string       `json:"version"`
	StoreKey     string       `json:"storeKey,omitempty"`
	InitialState any          `json:"initialState,omitempty"`
	Actions      []Definition `json:"actions"`
}

// Lookup returns the definition of the named action.
func (s *DefinitionSet) Lookup(name string) (Definition, bool) {
	for _, d := range s.Actions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Batch resolves every catalog reference and returns a batch ready for
// Compiler.RegisterAll. Resolved values are not checked here; registration
// does that.
func (s *DefinitionSet) Batch(cat Catalog) (Batch, error) {
	b := Batch{
		Actions:      make(map[string]Options, len(s.Actions)),
		InitialState: s.InitialState,
		StoreKey:     s.StoreKey,
	}

	for _, def := range s.Actions {
		if _, dup := b.Actions[def.Name]; dup {
			return Batch{}, &ConfigError{
				Code:    CodeDuplicateName,
				Action:  def.Name,
				Field:   "name",
				Message: fmt.Sprintf("duplicate action name: %q", def.Name),
				Err:     ErrDuplicateName,
			}
		}

		opts := Options{
			Async:        def.Async,
			StoreKey:     def.StoreKey,
			InitialState: def.InitialState,
		}

		var err error
		if opts.Handler, err = cat.resolve(def.Name, "handler", def.Handler); err != nil {
			return Batch{}, err
		}
		if def.Handlers != nil {
			h := &Handlers{}
			targets := []*any{&h.OnWait, &h.OnSuccess, &h.OnFail}
			for i, slot := range def.Handlers.slots() {
				if *targets[i], err = cat.resolve(def.Name, "handlers."+slot.name, slot.ref); err != nil {
					return Batch{}, err
				}
			}
			opts.Handlers = h
		}
		if opts.Action, err = cat.resolve(def.Name, "builder", def.Builder); err != nil {
			return Batch{}, err
		}

		b.Actions[def.Name] = opts
	}

	return b, nil
}

var (
	definitionFields = map[string]bool{
		"async": true, "storeKey": true, "initialState": true,
		"handler": true, "handlers": true, "builder": true,
	}
	handlerFields = map[string]bool{
		"onWait": true, "onSuccess": true, "onFail": true,
	}
)

// CompileDefinitions decodes a CUE definition document into a DefinitionSet.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The document declares optional defaults and one struct per action:
//
//	version: "1"
//	storeKey: "counter"
//	initialState: {count: 0}
//	action: increment: {handler: "counter.increment", builder: "counter.by"}
//
// version is optional and defaults to ir.DefinitionVersion; any other value
// is rejected.
func CompileDefinitions(v cue.Value) (*DefinitionSet, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, "cue")
	}

	set := &DefinitionSet{Version: ir.DefinitionVersion}

	if ver := v.LookupPath(cue.ParsePath("version")); ver.Exists() {
		s, err := ver.String()
		if err != nil {
			return nil, formatCUEError(err, "version")
		}
		if s != ir.DefinitionVersion {
			return nil, &CompileError{
				Field:   "version",
				Message: fmt.Sprintf("unsupported definition version %q, want %q", s, ir.DefinitionVersion),
				Pos:     ver.Pos(),
			}
		}
	}

	if sk := v.LookupPath(cue.ParsePath("storeKey")); sk.Exists() {
		s, err := sk.String()
		if err != nil {
			return nil, formatCUEError(err, "storeKey")
		}
		set.StoreKey = s
	}

	if is := v.LookupPath(cue.ParsePath("initialState")); is.Exists() {
		state, err := decodeValue(is, "initialState")
		if err != nil {
			return nil, err
		}
		set.InitialState = state
	}

	actionVal := v.LookupPath(cue.ParsePath("action"))
	if !actionVal.Exists() {
		return nil, &CompileError{
			Field:   "action",
			Message: "at least one action is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := actionVal.Fields()
	if err != nil {
		return nil, formatCUEError(err, "action")
	}
	for iter.Next() {
		def, err := compileDefinition(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		set.Actions = append(set.Actions, def)
	}

	if len(set.Actions) == 0 {
		return nil, &CompileError{
			Field:   "action",
			Message: "at least one action is required",
			Pos:     actionVal.Pos(),
		}
	}

	return set, nil
}

func compileDefinition(name string, v cue.Value) (Definition, error) {
	prefix := "action." + name
	def := Definition{Name: name, Pos: v.Pos()}

	iter, err := v.Fields()
	if err != nil {
		return def, formatCUEError(err, prefix)
	}
	for iter.Next() {
		label := iter.Label()
		field := iter.Value()
		path := prefix + "." + label

		if !definitionFields[label] {
			return def, &CompileError{
				Field:   path,
				Message: fmt.Sprintf("unknown field %q", label),
				Pos:     field.Pos(),
			}
		}

		switch label {
		case "async":
			b, err := field.Bool()
			if err != nil {
				return def, formatCUEError(err, path)
			}
			def.Async = Bool(b)
		case "storeKey":
			if def.StoreKey, err = field.String(); err != nil {
				return def, formatCUEError(err, path)
			}
		case "initialState":
			if def.InitialState, err = decodeValue(field, path); err != nil {
				return def, err
			}
		case "handler":
			if def.Handler, err = field.String(); err != nil {
				return def, formatCUEError(err, path)
			}
		case "builder":
			if def.Builder, err = field.String(); err != nil {
				return def, formatCUEError(err, path)
			}
		case "handlers":
			if def.Handlers, err = compileHandlerRefs(field, path); err != nil {
				return def, err
			}
		}
	}

	return def, nil
}

func compileHandlerRefs(v cue.Value, path string) (*HandlerRefs, error) {
	refs := &HandlerRefs{}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err, path)
	}
	for iter.Next() {
		label := iter.Label()
		if !handlerFields[label] {
			return nil, &CompileError{
				Field:   path + "." + label,
				Message: fmt.Sprintf("unknown lifecycle handler %q, expected one of onWait, onSuccess, onFail", label),
				Pos:     iter.Value().Pos(),
			}
		}
		ref, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err, path+"."+label)
		}
		switch label {
		case "onWait":
			refs.OnWait = ref
		case "onSuccess":
			refs.OnSuccess = ref
		case "onFail":
			refs.OnFail = ref
		}
	}
	return refs, nil
}

// decodeValue converts a concrete CUE value to plain Go data: map[string]any,
// []any, string, int64, float64, bool, []byte or nil.
func decodeValue(v cue.Value, path string) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err, path)
		}
		return b, nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err, path)
		}
		return i, nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err, path)
		}
		return f, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err, path)
		}
		return s, nil
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, formatCUEError(err, path)
		}
		return b, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err, path)
		}
		out := make(map[string]any)
		for iter.Next() {
			elem, err := decodeValue(iter.Value(), path+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = elem
		}
		return out, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err, path)
		}
		out := []any{}
		for i := 0; iter.Next(); i++ {
			elem, err := decodeValue(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	}

	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, path)
	}
	return nil, &CompileError{
		Field:   path,
		Message: fmt.Sprintf("value must be concrete, got %s", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}
