package compiler

import (
	"errors"

	"github.com/roach88/actionkit/internal/ir"
)

// Batch is a set of actions registered together, with defaults applied to
// every entry that leaves the field unset.
type Batch struct {
	Actions      map[string]Options
	InitialState any
	StoreKey     string
}

// resolve applies the batch defaults to one entry. Handlers imply async mode
// unless the entry sets Async explicitly.
func (b Batch) resolve(entry Options) Options {
	opts := entry
	if opts.Async == nil {
		opts.Async = Bool(entry.Handlers != nil)
	}
	if isMissing(opts.InitialState) {
		opts.InitialState = b.InitialState
	}
	if opts.StoreKey == "" {
		opts.StoreKey = b.StoreKey
	}
	return opts
}

// CompileBatch compiles every entry in name order and returns the
// descriptors in that order. The first failing entry aborts the batch.
func CompileBatch(b Batch) ([]*Descriptor, error) {
	if len(b.Actions) == 0 {
		return nil, &ConfigError{
			Code:    CodeNoActions,
			Field:   "actions",
			Message: "no actions supplied",
			Err:     ErrNoActions,
		}
	}

	names := ir.SortedKeys(b.Actions)
	descriptors := make([]*Descriptor, 0, len(names))
	for _, name := range names {
		d, err := Compile(name, b.resolve(b.Actions[name]))
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// RegisterAll registers a batch. Every entry is compiled before any reducer
// is merged, so an invalid entry leaves the registry untouched. Reducers are
// then merged in name order; if the registry rejects a merge, the reducers
// merged before it stay in the registry. The returned creators are keyed by
// the input names.
func (c *Compiler) RegisterAll(b Batch) (map[string]ir.Creator, error) {
	descriptors, err := CompileBatch(b)
	if err != nil {
		var name string
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			name = cfgErr.Action
		}
		c.rejected(name, err)
		return nil, err
	}

	creators := make(map[string]ir.Creator, len(descriptors))
	for _, d := range descriptors {
		if err := c.merge(d); err != nil {
			return nil, err
		}
		creators[d.Name] = d.Creator()
	}
	return creators, nil
}
