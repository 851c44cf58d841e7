// Copyright © 2024 The ELPS authors

// Package reference gathers the candidate library files a script refers to
// through its namespaces, its explicit reference directives and its package
// dependencies.
package reference

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/luthersystems/elpsclosure/pkgcache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Kind identifies where a candidate came from.  Sources run in Kind order.
type Kind int

const (
	KindNamespace Kind = iota
	KindDirective
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindNamespace:
		return "namespace"
	case KindDirective:
		return "directive"
	case KindPackage:
		return "package"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText renders k by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Candidate is a library file referenced by a script.
type Candidate struct {
	Path   string `json:"path"`
	Source Kind   `json:"source"`
}

// Request holds everything a script declares that can reference a library.
type Request struct {
	Namespaces []string
	// Ignore lists namespaces that never resolve to a library.
	Ignore     []string
	References []string
	Packages   []pkgcache.Dependency
	Dirs       []string
}

// Finder maps a name to library files within dirs.  library.Resolver is the
// standard implementation.
type Finder interface {
	Find(name string, dirs []string) []string
}

// PackageResolver maps package dependencies to library files.
type PackageResolver interface {
	Resolve(ctx context.Context, deps []pkgcache.Dependency, dirs []string, suppressDownloading bool) ([]string, error)
}

// Source produces the candidates of one Kind.
type Source interface {
	Kind() Kind
	Resolve(ctx context.Context, req *Request) ([]Candidate, error)
}

// Namespaces resolves namespace names that are not ignored.
type Namespaces struct {
	Finder Finder
}

func (Namespaces) Kind() Kind { return KindNamespace }

func (s Namespaces) Resolve(_ context.Context, req *Request) ([]Candidate, error) {
	ignore := make(map[string]bool, len(req.Ignore))
	for _, name := range req.Ignore {
		ignore[name] = true
	}
	var cands []Candidate
	for _, name := range req.Namespaces {
		if ignore[name] {
			continue
		}
		cands = appendPaths(cands, KindNamespace, s.Finder.Find(name, req.Dirs))
	}
	return cands, nil
}

// Directives resolves explicit reference directives.  Double quotes around a
// reference are removed before lookup.
type Directives struct {
	Finder Finder
}

func (Directives) Kind() Kind { return KindDirective }

func (s Directives) Resolve(_ context.Context, req *Request) ([]Candidate, error) {
	var cands []Candidate
	for _, ref := range req.References {
		ref = strings.TrimSpace(strings.ReplaceAll(ref, `"`, ""))
		if ref == "" {
			continue
		}
		cands = appendPaths(cands, KindDirective, s.Finder.Find(ref, req.Dirs))
	}
	return cands, nil
}

// Packages resolves package dependencies without downloading.  A package
// that is not available locally contributes nothing.
type Packages struct {
	Resolver PackageResolver
}

func (Packages) Kind() Kind { return KindPackage }

func (s Packages) Resolve(ctx context.Context, req *Request) ([]Candidate, error) {
	if s.Resolver == nil || len(req.Packages) == 0 {
		return nil, nil
	}
	paths, err := s.Resolver.Resolve(ctx, req.Packages, req.Dirs, true)
	if err != nil {
		return nil, fmt.Errorf("resolve packages: %w", err)
	}
	return appendPaths(nil, KindPackage, paths), nil
}

func appendPaths(cands []Candidate, kind Kind, paths []string) []Candidate {
	for _, p := range paths {
		cands = append(cands, Candidate{Path: p, Source: kind})
	}
	return cands
}

// Aggregator unions the candidates of its sources.
type Aggregator struct {
	Sources []Source
	Logger  *log.Logger
	Tracer  trace.Tracer
}

// New returns an Aggregator with the namespace, directive and package
// sources.  A nil packages resolver disables the package source.
func New(finder Finder, packages PackageResolver) *Aggregator {
	return &Aggregator{
		Sources: []Source{
			Namespaces{Finder: finder},
			Directives{Finder: finder},
			Packages{Resolver: packages},
		},
	}
}

func (a *Aggregator) logger() *log.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return log.Default()
}

func (a *Aggregator) tracer() trace.Tracer {
	if a.Tracer != nil {
		return a.Tracer
	}
	return otel.GetTracerProvider().Tracer("elpsclosure")
}

// Aggregate runs every source in Kind order and returns the union of their
// candidates.  A path found by several sources is reported once, attributed
// to the first.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) ([]Candidate, error) {
	ctx, span := a.tracer().Start(ctx, "reference.Aggregate")
	defer span.End()

	sources := append([]Source(nil), a.Sources...)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Kind() < sources[j].Kind()
	})

	var out []Candidate
	seen := make(map[string]bool)
	for _, src := range sources {
		cands, err := src.Resolve(ctx, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		for _, c := range cands {
			if c.Path == "" || seen[c.Path] {
				continue
			}
			seen[c.Path] = true
			out = append(out, c)
		}
		a.logger().Debug("resolved references", "source", src.Kind().String(), "count", len(cands))
	}
	span.SetAttributes(attribute.Int("elpsclosure.candidates", len(out)))
	return out, nil
}

// Paths returns the paths of cands.
func Paths(cands []Candidate) []string {
	if len(cands) == 0 {
		return nil
	}
	paths := make([]string, len(cands))
	for i, c := range cands {
		paths[i] = c.Path
	}
	return paths
}
