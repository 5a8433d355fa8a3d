package compiler

import (
	"fmt"

	"github.com/roach88/actionkit/internal/ir"
)

// Catalog maps the references used in declarative definitions to the Go
// handlers and payload builders they name, e.g. "counter.increment".
//
// A catalog is populated at startup and read-only afterwards.
type Catalog map[string]any

// NewCatalog returns an empty catalog.
func NewCatalog() Catalog {
	return make(Catalog)
}

// Register binds ref to v, replacing any previous binding. It returns the
// catalog so registrations can be chained.
func (c Catalog) Register(ref string, v any) Catalog {
	if ref == "" {
		panic("catalog: empty reference")
	}
	c[ref] = v
	return c
}

// Lookup returns the value bound to ref.
func (c Catalog) Lookup(ref string) (any, bool) {
	v, ok := c[ref]
	return v, ok
}

// Refs returns the registered references in sorted order.
func (c Catalog) Refs() []string {
	return ir.SortedKeys(c)
}

// resolve looks up ref for the given action field. An empty ref resolves to
// nil; the handler checks decide whether that is acceptable.
func (c Catalog) resolve(action, field, ref string) (any, error) {
	if ref == "" {
		return nil, nil
	}
	v, ok := c.Lookup(ref)
	if !ok {
		return nil, &ConfigError{
			Code:    CodeUnknownReference,
			Action:  action,
			Field:   field,
			Message: fmt.Sprintf("unknown catalog reference %q", ref),
			Err:     ErrUnknownReference,
		}
	}
	return v, nil
}
