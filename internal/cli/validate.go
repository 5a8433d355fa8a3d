package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/actionkit/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Actions int                        `json:"actions"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definitions-dir>",
		Short: "Validate action definitions",
		Long: `Validate the CUE action definitions in a directory.

Decodes every definition and reports all configuration errors at once:
invalid and duplicate names, missing store keys and initial states, and
handlers that conflict with the action's mode.

Exit codes:
  0 - All definitions valid
  1 - Validation failed
  2 - Command error (missing directory, unreadable CUE, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := opts.logger()

	loaded, errs, err := validateDir(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputCommandError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	actions := 0
	if loaded != nil {
		actions = len(loaded.Set.Actions)
		logger.Debug("definitions loaded",
			zap.String("dir", dir),
			zap.Int("files", loaded.FileCount),
			zap.Int("actions", actions))
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, actions, errs)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Actions: actions})
	}
	fmt.Fprintln(formatter.Writer, "✓ All definitions valid")
	return nil
}

// validateDir loads dir and validates its definitions. A definition document
// that fails to decode is reported as a validation error; failures to read
// the directory are returned as err.
func validateDir(dir string) (*LoadResult, []compiler.ValidationError, error) {
	loaded, err := LoadDefinitions(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Code == ErrCodeBadStructure {
			return nil, []compiler.ValidationError{{
				Field:   "definitions",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr.Pos),
			}}, nil
		}
		return nil, nil, err
	}
	return loaded, compiler.ValidateDefinitions(loaded.Set), nil
}

// ValidateDefinitionsDir validates the definitions in a directory for
// callers outside the CLI.
func ValidateDefinitionsDir(dir string) ([]compiler.ValidationError, error) {
	_, errs, err := validateDir(dir)
	return errs, err
}

// outputCommandError writes a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors writes every validation error (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, actions int, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		result := ValidationResult{Valid: false, Actions: actions, Errors: errs}
		if err := formatter.Failure(result, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", err.Error())
	}
	return exitErr
}
