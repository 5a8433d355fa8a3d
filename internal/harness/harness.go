package harness

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/zap"

	"github.com/roach88/actionkit/internal/compiler"
	"github.com/roach88/actionkit/internal/ir"
	"github.com/roach88/actionkit/internal/registry"
)

// InitActionType is dispatched to every store key before the first step so
// that each reducer resolves its initial state.
const InitActionType = "@@actionkit/INIT"

// Option configures a scenario run.
type Option func(*config)

type config struct {
	runIDs RunIDGenerator
	logger *zap.Logger
}

// WithRunIDGenerator sets the run ID source. Ignored when the scenario
// carries a fixed run ID.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *config) {
		if g != nil {
			c.runIDs = g
		}
	}
}

// WithLogger sets the logger for the run and its compiler.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Harness executes the steps of one scenario against a fresh registry.
type Harness struct {
	reg      *registry.Memory
	creators map[string]ir.Creator
	clock    logicalClock
	logger   *zap.Logger
	result   *Result
}

// LoadDefinitions reads and compiles a CUE definition file.
func LoadDefinitions(path string) (*compiler.DefinitionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	return compiler.CompileDefinitions(v)
}

// Run executes a scenario and returns the result.
//
// The scenario's definitions are registered into a fresh registry.Memory,
// resolving references through cat (a nil catalog uses StubCatalog). Each run
// is isolated; nothing is shared between runs.
//
// Execution flow:
//  1. Load and register the definitions
//  2. Dispatch InitActionType to every store key
//  3. Execute steps in order
//  4. Evaluate assertions
//
// A returned error means the scenario could not be executed. Failed
// assertions are reported through Result.Pass and Result.Errors.
func Run(s *Scenario, cat compiler.Catalog, opts ...Option) (*Result, error) {
	cfg := config{runIDs: UUIDv7Generator{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	set, err := LoadDefinitions(s.Definitions)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	if cat == nil {
		cat = StubCatalog(set)
	}
	batch, err := set.Batch(cat)
	if err != nil {
		return nil, fmt.Errorf("resolve definitions: %w", err)
	}

	reg := registry.NewMemory()
	creators, err := compiler.New(reg, compiler.WithLogger(cfg.logger)).RegisterAll(batch)
	if err != nil {
		return nil, fmt.Errorf("register definitions: %w", err)
	}

	runID := s.RunID
	if runID == "" {
		runID = cfg.runIDs.Generate()
	}

	h := &Harness{
		reg:      reg,
		creators: creators,
		logger:   cfg.logger.With(zap.String("scenario", s.Name), zap.String("run_id", runID)),
		result:   NewResult(runID),
	}

	if err := h.init(); err != nil {
		return nil, err
	}
	for i, step := range s.Steps {
		if err := h.execute(i, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(h.result, s.Assertions) {
		h.result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		zap.Bool("pass", h.result.Pass),
		zap.Int("events", len(h.result.Trace)))
	return h.result, nil
}

// init resolves the initial state of every store key.
func (h *Harness) init() error {
	initAction := ir.Action{Type: InitActionType}
	for _, key := range h.reg.Keys() {
		state, err := h.reduce(key, nil, initAction)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		h.result.State[key] = state
	}
	return nil
}

func (h *Harness) execute(i int, step Step) error {
	if step.Dispatch.IsLiteral() {
		action := ir.Action{
			Type:    step.Dispatch.Type,
			Payload: ir.Payload(step.Dispatch.Payload).Clone(),
		}
		h.result.Actions[i] = action
		return h.dispatch(i, action)
	}

	create, ok := h.creators[step.Create]
	if !ok {
		return fmt.Errorf("unknown action %q", step.Create)
	}

	action, err := create(ir.Args(step.Args))
	if err != nil {
		code := compiler.CodeOf(err)
		h.result.StepErrors[i] = err
		h.result.addRejected(i, step.Create, code, h.clock.next())
		h.logger.Debug("creator rejected",
			zap.Int("step", i),
			zap.String("action", step.Create),
			zap.String("code", code),
			zap.Error(err))
		return nil
	}

	h.result.Actions[i] = action
	h.result.addCreated(i, action, h.clock.next())
	h.logger.Debug("action created", zap.Int("step", i), zap.String("action", step.Create))

	if step.Dispatch == nil || !step.Dispatch.Created {
		return nil
	}
	if action.IsAsync() {
		// Promise execution belongs to dispatch middleware.
		return fmt.Errorf("action %q is async; dispatch its lifecycle types explicitly", step.Create)
	}
	return h.dispatch(i, action)
}

// dispatch feeds action to every store key's reducer, as a root reducer would.
func (h *Harness) dispatch(i int, action ir.Action) error {
	for _, key := range h.reg.Keys() {
		next, err := h.reduce(key, h.result.State[key], action)
		if err != nil {
			return err
		}
		h.result.State[key] = next
	}
	h.result.addDispatched(i, action, h.clock.next())
	h.logger.Debug("action dispatched", zap.Int("step", i), zap.String("type", action.Type))
	return nil
}

// reduce runs one store key's reducer and turns a handler panic into an error.
func (h *Harness) reduce(key string, state any, action ir.Action) (next any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reducer %q panicked on %q: %v", key, action.Type, r)
		}
	}()
	return h.reg.Reduce(key, state, action)
}
