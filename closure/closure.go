// Copyright © 2024 The ELPS authors

// Package closure computes the compilation closure of an ELPS script: the
// source files it loads and the native libraries it needs.
package closure

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/luthersystems/elpsclosure/identity"
	"github.com/luthersystems/elpsclosure/library"
	"github.com/luthersystems/elpsclosure/reference"
	"github.com/luthersystems/elpsclosure/script"
	"github.com/luthersystems/elpsclosure/searchpath"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Closure is the set of files required to compile a script.  SourceFiles
// lists imported scripts in dependency order followed by the script itself.
type Closure struct {
	SourceFiles []string `json:"sourceFiles"`
	Libraries   []string `json:"libraries"`
}

// Builder computes closures.  A Builder may be shared between goroutines;
// each call to Resolve works on its own state.
type Builder struct {
	// Search provides installation directories.  Nil means none.
	Search *searchpath.Provider
	// Aggregator defaults to reference.New(&library.Resolver{}, nil).
	Aggregator *reference.Aggregator
	// Strategy defaults to identity.FileName.
	Strategy identity.Strategy
	// Companion, when set, contributes the host companion library.
	Companion *Companion
	// ScriptOptions are passed to script.Parse.
	ScriptOptions []script.Option
	// UserDir returns the user scripts directory.  Nil uses
	// Search.UserScriptsDir, or searchpath.UserScriptsDir without Search.
	UserDir func() string
	Logger  *log.Logger
	Tracer  trace.Tracer
}

func (b *Builder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

func (b *Builder) tracer() trace.Tracer {
	if b.Tracer != nil {
		return b.Tracer
	}
	return otel.GetTracerProvider().Tracer("elpsclosure")
}

func (b *Builder) userDir() string {
	switch {
	case b.UserDir != nil:
		return b.UserDir()
	case b.Search != nil:
		return b.Search.UserScriptsDir()
	default:
		return searchpath.UserScriptsDir()
	}
}

// Resolve computes the closure of the script at path.  Parse, import and
// package errors are returned; libraries that cannot be found are simply
// absent from the result.
func (b *Builder) Resolve(ctx context.Context, path string) (_ *Closure, err error) {
	ctx, span := b.tracer().Start(ctx, "closure.Resolve",
		trace.WithAttributes(attribute.String("elpsclosure.script", path)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	opts := append([]script.Option{script.WithLogger(b.logger())}, b.ScriptOptions...)
	p, err := script.Parse(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	dirs := p.SearchDirs()
	if b.Search != nil {
		dirs = append(dirs, b.Search.Dirs()...)
	}
	dirs = searchpath.Normalize(append(dirs, b.userDir()))

	sources, err := p.SaveImportedScripts()
	if err != nil {
		return nil, fmt.Errorf("save imported scripts: %w", err)
	}
	sources = append(sources, p.Path())

	agg := b.Aggregator
	if agg == nil {
		agg = reference.New(&library.Resolver{}, nil)
	}
	cands, err := agg.Aggregate(ctx, reference.Request{
		Namespaces: p.Namespaces(),
		Ignore:     p.IgnoreNamespaces(),
		References: p.References(),
		Packages:   p.Packages(),
		Dirs:       dirs,
	})
	if err != nil {
		return nil, err
	}

	strategy := b.Strategy
	if strategy == nil {
		strategy = identity.FileName{}
	}
	libs := strategy.Dedupe(ctx, reference.Paths(cands))
	if b.Companion != nil {
		if companion := b.Companion.Path(); companion != "" {
			libs = append(libs, companion)
		}
	}

	span.SetAttributes(
		attribute.Int("elpsclosure.source_files", len(sources)),
		attribute.Int("elpsclosure.libraries", len(libs)))
	b.logger().Debug("resolved closure", "script", p.Path(), "sources", len(sources), "libraries", len(libs))
	return &Closure{SourceFiles: sources, Libraries: libs}, nil
}
