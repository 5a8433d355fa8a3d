package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Configuration error codes (E200-E299)
const (
	CodeInvalidName         = "E200" // action name is empty
	CodeMissingInitialState = "E201" // initial state absent
	CodeMissingStoreKey     = "E202" // store key absent or empty
	CodeHandlersRequired    = "E203" // async action without lifecycle handlers
	CodeInvalidHandler      = "E204" // lifecycle handler not invocable
	CodeInvalidSyncHandler  = "E205" // sync handler not invocable
	CodeMissingPromise      = "E206" // async payload without an invocable promise
	CodeNoActions           = "E207" // empty batch
	CodeConflictingHandlers = "E208" // handlers do not match the action mode
	CodeInvalidBuilder      = "E209" // payload builder not invocable
	CodeBuilderFailed       = "E210" // payload builder returned an error
	CodeUnknownReference    = "E211" // catalog reference does not resolve
	CodeDuplicateName       = "E212" // action declared twice in one definition set
)

// Sentinels carried by ConfigError.Err. Match them with errors.Is.
var (
	ErrInvalidName         = errors.New("invalid action name")
	ErrMissingInitialState = errors.New("initial state must not be empty")
	ErrMissingStoreKey     = errors.New("store key is required")
	ErrHandlersRequired    = errors.New("async action requires lifecycle handlers")
	ErrInvalidHandler      = errors.New("lifecycle handler is not invocable")
	ErrInvalidSyncHandler  = errors.New("handler is not invocable")
	ErrMissingPromise      = errors.New("async payload has no invocable promise")
	ErrNoActions           = errors.New("no actions supplied")
	ErrConflictingHandlers = errors.New("handlers conflict with action mode")
	ErrInvalidBuilder      = errors.New("payload builder is not invocable")
	ErrBuilderFailed       = errors.New("payload builder failed")
	ErrUnknownReference    = errors.New("unknown catalog reference")
	ErrDuplicateName       = errors.New("duplicate action name")
)

// ConfigError is a fatal configuration error raised while registering an
// action or while invoking one of its creators.
type ConfigError struct {
	Code    string
	Action  string
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	subject := e.Action
	if e.Field != "" {
		if subject != "" {
			subject += "."
		}
		subject += e.Field
	}
	if subject == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, subject, e.Message)
}

// Unwrap returns the sentinel.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CodeOf returns the configuration error code carried by err, or "" when err
// is not a ConfigError.
func CodeOf(err error) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	return ""
}

// CompileError is a definition decoding error with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, field string) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with a position wins
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   field,
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Field: field, Message: first.Error()}
}
