// Copyright © 2024 The ELPS authors

// Package script reads an ELPS script together with every script it imports
// and exposes the declarations that determine its compilation closure:
// namespaces, explicit library references, search directories, package
// dependencies and the import graph.
package script

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dominikbraun/graph"
	"github.com/luthersystems/elpsclosure/decorate"
	"github.com/luthersystems/elpsclosure/parser/token"
	"github.com/luthersystems/elpsclosure/pkgcache"
	"github.com/luthersystems/elpsclosure/searchpath"
)

// ErrImportNotFound is returned when an imported script cannot be located.
var ErrImportNotFound = errors.New("imported script not found")

// StandardPackages are the packages every ELPS environment provides.  They
// never resolve to a native library.
var StandardPackages = []string{
	"lisp", "user", "math", "string", "json", "regexp", "time",
	"base64", "testing", "help", "golang", "s", "elpslang",
}

// PackageResolver resolves package dependencies to library files.
type PackageResolver interface {
	Resolve(ctx context.Context, deps []pkgcache.Dependency, dirs []string, suppressDownloading bool) ([]string, error)
}

// Option configures a Parser.
type Option func(*Parser)

// WithPackageResolver sets the resolver used by ResolvePackages.
func WithPackageResolver(r PackageResolver) Option {
	return func(p *Parser) { p.packages = r }
}

// WithGeneratedDir sets the directory where generated scripts are written.
// The default is "elpsclosure" under os.TempDir.
func WithGeneratedDir(dir string) Option {
	return func(p *Parser) { p.generatedDir = dir }
}

// WithSearchDirs adds directories probed for imports that are not found next
// to the importing script.
func WithSearchDirs(dirs ...string) Option {
	return func(p *Parser) { p.extraDirs = append(p.extraDirs, dirs...) }
}

// WithIgnoreNamespaces adds namespaces that never resolve to a library.
func WithIgnoreNamespaces(names ...string) Option {
	return func(p *Parser) { p.extraIgnore = append(p.extraIgnore, names...) }
}

// WithLogger sets the parser's logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// Parser holds a parsed script and its transitive imports.
type Parser struct {
	root  string
	files map[string]*File
	order []string // discovery order, root first
	deps  graph.Graph[string, string]

	packages     PackageResolver
	generatedDir string
	extraDirs    []string
	extraIgnore  []string
	logger       *log.Logger
}

// Parse reads the script at path and every script it transitively imports.
// Any file that cannot be read or lexed fails the parse.
func Parse(path string, opts ...Option) (*Parser, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		root:  abs,
		files: make(map[string]*File),
		deps:  graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	if p.generatedDir == "" {
		p.generatedDir = filepath.Join(os.TempDir(), "elpsclosure")
	}
	if err := p.walk(abs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) walk(root string) error {
	f, err := ReadFile(root)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	p.add(f)
	queue := []string{root}
	for len(queue) > 0 {
		cur := p.files[queue[0]]
		queue = queue[1:]
		for _, imp := range cur.Imports {
			path, err := p.locate(cur.Path, imp.Path)
			if err != nil {
				return &token.LocationError{Err: err, Source: imp.Source}
			}
			if _, ok := p.files[path]; !ok {
				f, err := ReadFile(path)
				if err != nil {
					return &token.LocationError{Err: fmt.Errorf("read import: %w", err), Source: imp.Source}
				}
				p.add(f)
				queue = append(queue, path)
			}
			// Edges run from a dependency to its dependent.  An import cycle
			// leaves the edge out; the files are still part of the closure.
			err = p.deps.AddEdge(path, cur.Path)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) && !errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return fmt.Errorf("import graph: %w", err)
			}
		}
	}
	return nil
}

func (p *Parser) add(f *File) {
	p.files[f.Path] = f
	p.order = append(p.order, f.Path)
	_ = p.deps.AddVertex(f.Path)
}

// locate resolves an import made by the script at from.
func (p *Parser) locate(from, name string) (string, error) {
	return LocateImport(from, name, p.SearchDirs())
}

// LocateImport resolves the import name made by the script at from.  A
// relative name is tried next to the importing script and then in each of
// dirs.
func LocateImport(from, name string, dirs []string) (string, error) {
	name = searchpath.ExpandEnv(name)
	if filepath.IsAbs(name) {
		if isFile(name) {
			return filepath.Clean(name), nil
		}
		return "", fmt.Errorf("%w: %s", ErrImportNotFound, name)
	}
	candidates := []string{filepath.Join(filepath.Dir(from), name)}
	for _, dir := range dirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, c := range candidates {
		if isFile(c) {
			return filepath.Abs(c)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrImportNotFound, name)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Path returns the absolute path of the root script.
func (p *Parser) Path() string {
	return p.root
}

// Files returns every parsed file, root first, in discovery order.
func (p *Parser) Files() []*File {
	files := make([]*File, len(p.order))
	for i, path := range p.order {
		files[i] = p.files[path]
	}
	return files
}

// Namespaces returns the namespaces used across the closure, in first-seen
// order.
func (p *Parser) Namespaces() []string {
	return p.collect(func(f *File) []string { return f.Namespaces })
}

// IgnoreNamespaces returns namespaces that must not be resolved to a
// library: the standard packages, configured extras, and packages defined by
// scripts in the closure.
func (p *Parser) IgnoreNamespaces() []string {
	ignore := append([]string(nil), StandardPackages...)
	ignore = append(ignore, p.extraIgnore...)
	ignore = append(ignore, p.collect(func(f *File) []string { return f.Packages })...)
	return ignore
}

// References returns the explicit library references declared across the
// closure.  Values are returned as written, quotes included.
func (p *Parser) References() []string {
	return p.collect(func(f *File) []string { return f.DirectiveValues(DirectiveRef) })
}

// SearchDirs returns the search directories declared across the closure.
// Relative directories are resolved against the declaring script.
func (p *Parser) SearchDirs() []string {
	dirs := p.collect((*File).SearchDirs)
	return searchpath.Normalize(append(dirs, p.extraDirs...))
}

// Packages returns the package dependencies declared across the closure.
// Malformed declarations are logged and skipped.
func (p *Parser) Packages() []pkgcache.Dependency {
	var deps []pkgcache.Dependency
	seen := make(map[pkgcache.Dependency]bool)
	for _, f := range p.Files() {
		for _, d := range f.Directives {
			if d.Name != DirectivePkg {
				continue
			}
			dep, err := pkgcache.ParseDependency(d.Value)
			if err != nil {
				p.logger.Warn("ignoring package directive", "source", d.Source.String(), "err", err)
				continue
			}
			if !seen[dep] {
				seen[dep] = true
				deps = append(deps, dep)
			}
		}
	}
	return deps
}

// ResolvePackages resolves the closure's package dependencies to library
// files, probing dirs in addition to the resolver's own roots.
func (p *Parser) ResolvePackages(ctx context.Context, dirs []string, suppressDownloading bool) ([]string, error) {
	deps := p.Packages()
	if len(deps) == 0 || p.packages == nil {
		return nil, nil
	}
	return p.packages.Resolve(ctx, deps, dirs, suppressDownloading)
}

// SaveImportedScripts returns the paths of all imported scripts in
// dependency order, excluding the root script.  Scripts requesting the
// auto-main wrapper are materialized as generated files and their generated
// path is returned instead.
func (p *Parser) SaveImportedScripts() ([]string, error) {
	index := make(map[string]int, len(p.order))
	for i, path := range p.order {
		index[path] = i
	}
	sorted, err := graph.StableTopologicalSort(p.deps, func(a, b string) bool {
		return index[a] < index[b]
	})
	if err != nil {
		return nil, fmt.Errorf("import graph: %w", err)
	}
	var paths []string
	for _, path := range sorted {
		if path == p.root {
			continue
		}
		saved, err := p.materialize(p.files[path])
		if err != nil {
			return nil, err
		}
		paths = append(paths, saved)
	}
	return paths, nil
}

// materialize writes the generated form of f when it needs one.  A generated
// file whose content is already current is left untouched.
func (p *Parser) materialize(f *File) (string, error) {
	text, _, changed := decorate.DecorateIfRequired(f.Text, 0)
	if !changed {
		return f.Path, nil
	}
	sum := sha256.Sum256([]byte(f.Path))
	base := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
	out := filepath.Join(p.generatedDir, fmt.Sprintf("%s.%s.g.lisp", base, hex.EncodeToString(sum[:4])))
	if cur, err := os.ReadFile(out); err == nil && bytes.Equal(cur, []byte(text)) { //nolint:gosec // generated path
		return out, nil
	}
	if err := os.MkdirAll(p.generatedDir, 0o755); err != nil {
		return "", fmt.Errorf("materialize %s: %w", f.Path, err)
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil { //nolint:gosec // generated scripts are readable
		return "", fmt.Errorf("materialize %s: %w", f.Path, err)
	}
	p.logger.Debug("materialized script", "script", f.Path, "generated", out)
	return out, nil
}

func (p *Parser) collect(fn func(*File) []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range p.Files() {
		for _, v := range fn(f) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
