package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/actionkit/internal/compiler"
	"github.com/roach88/actionkit/internal/harness"
	"github.com/roach88/actionkit/internal/registry"
)

// ActionInfo describes one compiled action.
type ActionInfo struct {
	Name     string   `json:"name"`
	StoreKey string   `json:"store_key"`
	Mode     string   `json:"mode"` // "sync" or "async"
	Types    []string `json:"types"`
	ID       string   `json:"id"`
}

// InspectResult lists the compiled actions and the store keys they reduce.
type InspectResult struct {
	Version string           `json:"version"`
	Actions []ActionInfo     `json:"actions"`
	Stores  []registry.Entry `json:"stores"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <definitions-dir>",
		Short: "List compiled actions",
		Long: `Compile the action definitions in a directory and list each action
with its store key, mode, dispatch types and descriptor ID.

References are bound to no-op handlers, so inspection does not need the
program that owns the real handlers.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, errs, err := validateDir(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputCommandError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	if len(errs) > 0 {
		actions := 0
		if loaded != nil {
			actions = len(loaded.Set.Actions)
		}
		return outputValidationErrors(formatter, actions, errs)
	}

	result, err := inspect(loaded.Set, opts)
	if err != nil {
		code := compiler.CodeOf(err)
		if code == "" {
			code = ErrCodeGeneric
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "compile definitions", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	writeInspectText(formatter, result)
	return nil
}

// inspect compiles set against a stub catalog and registers it into a
// scratch registry to report the store layout.
func inspect(set *compiler.DefinitionSet, opts *RootOptions) (*InspectResult, error) {
	batch, err := set.Batch(harness.StubCatalog(set))
	if err != nil {
		return nil, err
	}
	descriptors, err := compiler.CompileBatch(batch)
	if err != nil {
		return nil, err
	}

	reg := registry.NewMemory()
	if _, err := compiler.New(reg, compiler.WithLogger(opts.logger())).RegisterAll(batch); err != nil {
		return nil, err
	}

	result := &InspectResult{
		Version: set.Version,
		Actions: make([]ActionInfo, 0, len(descriptors)),
		Stores:  reg.Entries(),
	}
	for _, d := range descriptors {
		mode := "sync"
		if d.Async {
			mode = "async"
		}
		result.Actions = append(result.Actions, ActionInfo{
			Name:     d.Name,
			StoreKey: d.StoreKey,
			Mode:     mode,
			Types:    d.Types,
			ID:       d.ID,
		})
	}
	return result, nil
}

func writeInspectText(f *OutputFormatter, result *InspectResult) {
	w := f.Writer
	for _, a := range result.Actions {
		fmt.Fprintf(w, "%s (%s)\n", a.Name, a.Mode)
		fmt.Fprintf(w, "  store: %s\n", a.StoreKey)
		fmt.Fprintf(w, "  types: %s\n", strings.Join(a.Types, ", "))
		if f.Verbose {
			fmt.Fprintf(w, "  id:    %s\n", a.ID)
		}
	}
	fmt.Fprintln(w)
	for _, s := range result.Stores {
		fmt.Fprintf(w, "store %s: %d action(s)\n", s.StoreKey, s.Fragments)
	}
}
