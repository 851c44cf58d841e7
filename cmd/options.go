// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/luthersystems/elpsclosure/closure"
)

// Option configures an exported command factory (ResolveCommand,
// LSPCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	builder *closure.Builder
	logger  *log.Logger
}

// WithBuilder injects a closure builder.  Embedders use it to supply their
// own search path, dedupe strategy or companion library instead of the
// configured ones.
func WithBuilder(b *closure.Builder) Option {
	return func(c *cmdConfig) { c.builder = b }
}

// WithLogger injects the logger used by the command.
func WithLogger(l *log.Logger) Option {
	return func(c *cmdConfig) { c.logger = l }
}

func newCmdConfig(opts []Option) *cmdConfig {
	c := &cmdConfig{}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *cmdConfig) resolveLogger() *log.Logger {
	if c.logger != nil {
		return c.logger
	}
	return log.Default()
}

// resolveBuilder returns the injected builder, falling back to one built
// from configuration.
func (c *cmdConfig) resolveBuilder() (*closure.Builder, error) {
	if c.builder != nil {
		return c.builder, nil
	}
	return newBuilder(c.resolveLogger())
}
