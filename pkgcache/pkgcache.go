// Copyright © 2024 The ELPS authors

// Package pkgcache locates native libraries provided by ELPS package
// dependencies.  Packages live in a directory layout
//
//	<root>/<name>/<version>/...
//
// where any file below the version directory with a library extension
// belongs to the package.  A package without version directories may keep
// its libraries directly under <root>/<name>.
package pkgcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/luthersystems/elpsclosure/library"
	"golang.org/x/mod/semver"
)

// ErrNotCached is returned by Lookup when no local copy of a package exists.
var ErrNotCached = errors.New("package not cached")

// Dependency is a package requirement declared by a script.  An empty
// Version selects the highest version available.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ParseDependency parses "name", "name@version" or "name version".
func ParseDependency(spec string) (Dependency, error) {
	spec = strings.TrimSpace(strings.Trim(strings.TrimSpace(spec), `"`))
	if spec == "" {
		return Dependency{}, fmt.Errorf("empty package dependency")
	}
	var dep Dependency
	if name, version, ok := strings.Cut(spec, "@"); ok {
		dep = Dependency{Name: name, Version: version}
	} else if fields := strings.Fields(spec); len(fields) == 2 {
		dep = Dependency{Name: fields[0], Version: fields[1]}
	} else if len(fields) == 1 {
		dep = Dependency{Name: fields[0]}
	} else {
		return Dependency{}, fmt.Errorf("invalid package dependency: %q", spec)
	}
	dep.Name = strings.TrimSpace(dep.Name)
	dep.Version = strings.TrimSpace(dep.Version)
	if dep.Name == "" || strings.ContainsAny(dep.Name, `/\`) || dep.Name == "." || dep.Name == ".." {
		return Dependency{}, fmt.Errorf("invalid package name: %q", spec)
	}
	if dep.Version != "" && !semver.IsValid(canonical(dep.Version)) {
		return Dependency{}, fmt.Errorf("invalid package version: %q", spec)
	}
	return dep, nil
}

func (d Dependency) String() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + "@" + d.Version
}

// Fetcher downloads a package into root so that Lookup can find it.  It
// returns the dependency with its version resolved.
type Fetcher interface {
	Fetch(ctx context.Context, dep Dependency, root string) (Dependency, error)
}

// Cache resolves package dependencies against local package roots.
type Cache struct {
	// Dir is the primary package root.  Downloads are written here.
	Dir string
	// Extensions overrides library.DefaultExtensions when non-nil.
	Extensions []string
	// Fetcher downloads missing packages.  It is never used when downloads
	// are suppressed.
	Fetcher Fetcher
	Logger  *log.Logger
}

func (c *Cache) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Roots returns the package roots probed for dirs, Dir first.
func (c *Cache) Roots(dirs []string) []string {
	roots := make([]string, 0, len(dirs)+1)
	seen := make(map[string]bool)
	for _, root := range append([]string{c.Dir}, dirs...) {
		if root == "" || seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	return roots
}

// Lookup returns the library files of dep found in the first root holding a
// matching package.  Lookup never downloads.
func (c *Cache) Lookup(dep Dependency, dirs []string) ([]string, error) {
	for _, root := range c.Roots(dirs) {
		pkgDir := filepath.Join(root, dep.Name)
		info, err := os.Stat(pkgDir)
		if err != nil || !info.IsDir() {
			continue
		}
		dir, ok := selectVersion(pkgDir, dep.Version)
		if !ok {
			continue
		}
		libs, err := c.libraries(dir)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", dep, err)
		}
		if len(libs) > 0 {
			return libs, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotCached, dep)
}

// Resolve returns the library files of deps in declaration order.  Packages
// that are not available locally are downloaded with Fetcher unless
// suppressDownloading is set, in which case they contribute nothing.
func (c *Cache) Resolve(ctx context.Context, deps []Dependency, dirs []string, suppressDownloading bool) ([]string, error) {
	var paths []string
	for _, dep := range deps {
		libs, err := c.Lookup(dep, dirs)
		if errors.Is(err, ErrNotCached) {
			if suppressDownloading || c.Fetcher == nil {
				c.logger().Debug("package not available locally", "package", dep.String())
				continue
			}
			libs, err = c.Fetch(ctx, dep)
		}
		if err != nil {
			return nil, err
		}
		paths = append(paths, libs...)
	}
	return paths, nil
}

// Fetch downloads dep into Dir and returns its library files.
func (c *Cache) Fetch(ctx context.Context, dep Dependency) ([]string, error) {
	if c.Fetcher == nil {
		return nil, fmt.Errorf("package %s: no package source configured", dep)
	}
	if c.Dir == "" {
		return nil, fmt.Errorf("package %s: no package cache directory configured", dep)
	}
	resolved, err := c.Fetcher.Fetch(ctx, dep, c.Dir)
	if err != nil {
		return nil, fmt.Errorf("fetch package %s: %w", dep, err)
	}
	c.logger().Info("fetched package", "package", resolved.String(), "dir", c.Dir)
	return c.Lookup(resolved, nil)
}

func (c *Cache) libraries(dir string) ([]string, error) {
	var libs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && library.HasExtension(path, c.Extensions) {
			libs = append(libs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(libs)
	return libs, nil
}

// selectVersion picks the directory holding version of the package in
// pkgDir.  An empty version selects the highest semantic version; a package
// without version directories is its own directory.
func selectVersion(pkgDir, version string) (string, bool) {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return "", false
	}
	var versions []string
	for _, ent := range entries {
		if ent.IsDir() && semver.IsValid(canonical(ent.Name())) {
			versions = append(versions, ent.Name())
		}
	}
	if version != "" {
		want := canonical(version)
		for _, v := range versions {
			if semver.Compare(canonical(v), want) == 0 {
				return filepath.Join(pkgDir, v), true
			}
		}
		return "", false
	}
	if len(versions) == 0 {
		return pkgDir, true
	}
	return filepath.Join(pkgDir, Latest(versions)), true
}

// Latest returns the highest semantic version in versions.  Versions may be
// written with or without the leading "v".
func Latest(versions []string) string {
	var best string
	for _, v := range versions {
		if !semver.IsValid(canonical(v)) {
			continue
		}
		if best == "" || semver.Compare(canonical(v), canonical(best)) > 0 {
			best = v
		}
	}
	return best
}

func canonical(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}
