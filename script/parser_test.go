// Copyright © 2024 The ELPS authors

package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/luthersystems/elpsclosure/decorate"
	"github.com/luthersystems/elpsclosure/elpstest"
	"github.com/luthersystems/elpsclosure/parser/token"
	"github.com/luthersystems/elpsclosure/pkgcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePackages struct {
	deps     []pkgcache.Dependency
	dirs     []string
	suppress bool
}

func (f *fakePackages) Resolve(_ context.Context, deps []pkgcache.Dependency, dirs []string, suppress bool) ([]string, error) {
	f.deps, f.dirs, f.suppress = deps, dirs, suppress
	return []string{"/pkgs/libwidgets.so"}, nil
}

func parse(t *testing.T, path string, opts ...Option) *Parser {
	t.Helper()
	opts = append([]Option{
		WithLogger(elpstest.TestLogger(t)),
		WithGeneratedDir(filepath.Join(t.TempDir(), "gen")),
	}, opts...)
	p, err := Parse(path, opts...)
	require.NoError(t, err)
	return p
}

func TestParse_NoImports(t *testing.T) {
	dir := t.TempDir()
	main := elpstest.WriteFile(t, dir, "main.lisp", "(use-package 'acme)\n")
	p := parse(t, main)
	assert.Equal(t, main, p.Path())
	assert.Equal(t, []string{"acme"}, p.Namespaces())

	imported, err := p.SaveImportedScripts()
	require.NoError(t, err)
	assert.Empty(t, imported)
}

func TestParse_Transitive(t *testing.T) {
	dir := t.TempDir()
	main := elpstest.WriteFile(t, dir, "main.lisp", `;;elps:ref "libmain"
(load-file "a.lisp")
(load-file "b.lisp")
(use-package 'acme)
`)
	a := elpstest.WriteFile(t, dir, "a.lisp", `(in-package 'alpha)
(load-file "sub/c.lisp")
(use-package 'acme 'net)
`)
	b := elpstest.WriteFile(t, dir, "b.lisp", `;;elps:ref libb
;;elps:dir extra
(load-file "sub/c.lisp")
`)
	c := elpstest.WriteFile(t, dir, "sub/c.lisp", `;;elps:pkg widgets@1.0.0
;;elps:pkg widgets@1.0.0
;;elps:pkg bad/name
(use-package 'gamma)
`)

	p := parse(t, main)
	assert.Equal(t, []string{"acme", "net", "gamma"}, p.Namespaces())
	assert.Equal(t, []string{`"libmain"`, "libb"}, p.References())
	assert.Equal(t, []string{filepath.Join(dir, "extra")}, p.SearchDirs())
	assert.Equal(t, []pkgcache.Dependency{{Name: "widgets", Version: "1.0.0"}}, p.Packages())
	assert.Contains(t, p.IgnoreNamespaces(), "alpha")
	assert.Contains(t, p.IgnoreNamespaces(), "lisp")
	assert.NotContains(t, p.IgnoreNamespaces(), "acme")

	imported, err := p.SaveImportedScripts()
	require.NoError(t, err)
	assert.Equal(t, []string{c, a, b}, imported)
}

func TestParse_SearchDirImports(t *testing.T) {
	dir := t.TempDir()
	shared := t.TempDir()
	lib := elpstest.WriteFile(t, shared, "lib.lisp", "(use-package 'shared)\n")
	main := elpstest.WriteFile(t, dir, "main.lisp", `;;elps:import "lib.lisp"`+"\n")

	p := parse(t, main, WithSearchDirs(shared))
	assert.Equal(t, []string{"shared"}, p.Namespaces())
	imported, err := p.SaveImportedScripts()
	require.NoError(t, err)
	assert.Equal(t, []string{lib}, imported)
}

func TestParse_Cycle(t *testing.T) {
	dir := t.TempDir()
	main := elpstest.WriteFile(t, dir, "main.lisp", `(load-file "a.lisp")`)
	a := elpstest.WriteFile(t, dir, "a.lisp", `(load-file "b.lisp")`)
	b := elpstest.WriteFile(t, dir, "b.lisp", `(load-file "a.lisp")`)

	p := parse(t, main)
	imported, err := p.SaveImportedScripts()
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, imported)
}

func TestParse_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Parse(filepath.Join(dir, "missing.lisp"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	main := elpstest.WriteFile(t, dir, "main.lisp", `(load-file "nope.lisp")`)
	_, err = Parse(main, WithLogger(elpstest.TestLogger(t)))
	assert.ErrorIs(t, err, ErrImportNotFound)
	var locErr *token.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, main, locErr.Source.File)
	assert.Equal(t, 1, locErr.Source.Line)
	assert.Equal(t, 12, locErr.Source.Col)

	bad := elpstest.WriteFile(t, dir, "bad.lisp", `(load-file "broken.lisp")`)
	elpstest.WriteFile(t, dir, "broken.lisp", `"unterminated`)
	_, err = Parse(bad, WithLogger(elpstest.TestLogger(t)))
	assert.Error(t, err)
}

func TestIgnoreNamespaces_Extra(t *testing.T) {
	main := elpstest.WriteFile(t, t.TempDir(), "main.lisp", "")
	p := parse(t, main, WithIgnoreNamespaces("host"))
	ignore := p.IgnoreNamespaces()
	assert.Subset(t, ignore, StandardPackages)
	assert.Contains(t, ignore, "host")
}

func TestResolvePackages(t *testing.T) {
	dir := t.TempDir()
	main := elpstest.WriteFile(t, dir, "main.lisp", ";;elps:pkg widgets\n")

	// Without a resolver packages contribute nothing.
	p := parse(t, main)
	libs, err := p.ResolvePackages(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Nil(t, libs)

	res := &fakePackages{}
	p = parse(t, main, WithPackageResolver(res))
	libs, err = p.ResolvePackages(context.Background(), []string{"/d"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/pkgs/libwidgets.so"}, libs)
	assert.Equal(t, []pkgcache.Dependency{{Name: "widgets"}}, res.deps)
	assert.Equal(t, []string{"/d"}, res.dirs)
	assert.True(t, res.suppress)
}

func TestSaveImportedScripts_Materializes(t *testing.T) {
	dir := t.TempDir()
	gen := filepath.Join(t.TempDir(), "gen")
	main := elpstest.WriteFile(t, dir, "main.lisp", `(load-file "tool.lisp")`)
	elpstest.WriteFile(t, dir, "tool.lisp", ";;elps:args /am\n(defun main () ())\n")

	p, err := Parse(main, WithGeneratedDir(gen), WithLogger(elpstest.TestLogger(t)))
	require.NoError(t, err)
	imported, err := p.SaveImportedScripts()
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, gen, filepath.Dir(imported[0]))

	b, err := os.ReadFile(imported[0])
	require.NoError(t, err)
	assert.True(t, decorate.Info(string(b)).Found())

	info, err := os.Stat(imported[0])
	require.NoError(t, err)

	// Saving again leaves the current file alone.
	again, err := p.SaveImportedScripts()
	require.NoError(t, err)
	assert.Equal(t, imported, again)
	info2, err := os.Stat(imported[0])
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), info2.ModTime())
}

func TestLocateImport(t *testing.T) {
	dir := t.TempDir()
	lib := t.TempDir()
	main := elpstest.WriteFile(t, dir, "main.lisp", "")
	local := elpstest.WriteFile(t, dir, "util.lisp", "")
	shared := elpstest.WriteFile(t, lib, "shared.lisp", "")
	elpstest.WriteFile(t, lib, "util.lisp", "")

	path, err := LocateImport(main, "util.lisp", []string{lib})
	require.NoError(t, err)
	assert.Equal(t, local, path)

	path, err = LocateImport(main, "shared.lisp", []string{lib})
	require.NoError(t, err)
	assert.Equal(t, shared, path)

	t.Setenv("ELPSCLOSURE_TEST_LIB", lib)
	path, err = LocateImport(main, "%ELPSCLOSURE_TEST_LIB%/shared.lisp", nil)
	require.NoError(t, err)
	assert.Equal(t, shared, path)

	_, err = LocateImport(main, "shared.lisp", nil)
	assert.ErrorIs(t, err, ErrImportNotFound)
	_, err = LocateImport(main, lib, nil)
	assert.ErrorIs(t, err, ErrImportNotFound)
}
