package compiler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/actionkit/internal/ir"
	"github.com/roach88/actionkit/internal/registry"
)

// Compiler registers actions into a reducer registry.
// Registration is meant to run once at startup, before any dispatch.
type Compiler struct {
	reg    registry.Registry
	logger *zap.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a compiler merging into reg.
func New(reg registry.Registry, opts ...Option) *Compiler {
	if reg == nil {
		panic("compiler.New: nil registry")
	}
	c := &Compiler{
		reg:    reg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register compiles the named action, merges its reducer under its store key
// and returns the action creator.
func (c *Compiler) Register(name string, opts Options) (ir.Creator, error) {
	d, err := Compile(name, opts)
	if err != nil {
		c.rejected(name, err)
		return nil, err
	}
	if err := c.merge(d); err != nil {
		return nil, err
	}
	return d.Creator(), nil
}

func (c *Compiler) merge(d *Descriptor) error {
	if err := c.reg.Merge(d.StoreKey, d.Reducer); err != nil {
		c.rejected(d.Name, err)
		return fmt.Errorf("merge reducer for action %q: %w", d.Name, err)
	}
	c.logger.Debug("action registered",
		zap.String("action", d.Name),
		zap.String("store_key", d.StoreKey),
		zap.Bool("async", d.Async),
		zap.String("id", d.ID))
	return nil
}

func (c *Compiler) rejected(name string, err error) {
	c.logger.Warn("action rejected",
		zap.String("action", name),
		zap.String("code", CodeOf(err)),
		zap.Error(err))
}
