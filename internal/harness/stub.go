package harness

import (
	"context"

	"github.com/roach88/actionkit/internal/compiler"
	"github.com/roach88/actionkit/internal/ir"
)

// StubCatalog binds every reference in set to a no-op implementation:
// handlers return the state unchanged and builders echo the argument record
// under "args" together with a promise that resolves to nil.
//
// It lets definitions be exercised structurally without the program that
// owns the real handlers.
func StubCatalog(set *compiler.DefinitionSet) compiler.Catalog {
	cat := compiler.NewCatalog()
	for _, def := range set.Actions {
		for _, ref := range handlerRefs(def) {
			cat.Register(ref, stubHandler)
		}
		if def.Builder != "" {
			cat.Register(def.Builder, stubBuilder)
		}
	}
	return cat
}

func handlerRefs(def compiler.Definition) []string {
	var refs []string
	if def.Handler != "" {
		refs = append(refs, def.Handler)
	}
	if h := def.Handlers; h != nil {
		for _, ref := range []string{h.OnWait, h.OnSuccess, h.OnFail} {
			if ref != "" {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

func stubHandler(state any, _ ir.Action) any {
	return state
}

func stubBuilder(args ir.Args) (ir.Payload, error) {
	echo := make([]any, len(args))
	copy(echo, args)
	return ir.Payload{
		"args":        echo,
		ir.PromiseKey: ir.PromiseFunc(stubPromise),
	}, nil
}

func stubPromise(context.Context) (any, error) {
	return nil, nil
}
