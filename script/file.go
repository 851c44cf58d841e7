// Copyright © 2024 The ELPS authors

package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/luthersystems/elpsclosure/parser/lexer"
	"github.com/luthersystems/elpsclosure/parser/token"
	"github.com/luthersystems/elpsclosure/searchpath"
)

// DirectivePrefix starts every closure directive comment.
const DirectivePrefix = ";;elps:"

// Directive names understood by the parser.
const (
	DirectiveRef    = "ref"
	DirectiveDir    = "dir"
	DirectivePkg    = "pkg"
	DirectiveImport = "import"
	DirectiveArgs   = "args"
)

// Directive is a ";;elps:<name> <value>" comment.
type Directive struct {
	Name   string
	Value  string
	Source *token.Location
}

// Import is a reference from one script file to another.
type Import struct {
	Path   string // as written
	Source *token.Location
}

// File holds the closure-relevant declarations of one script file.
type File struct {
	Path string
	Text string

	Namespaces []string // (use-package 'name)
	Packages   []string // (in-package 'name)
	Imports    []Import // (load-file "path") and ;;elps:import
	Directives []Directive
}

// ReadFile reads and parses the script at path.
func ReadFile(path string) (*File, error) {
	src, err := os.ReadFile(path) //nolint:gosec // scripts are user-specified files
	if err != nil {
		return nil, err
	}
	return ParseFile(path, src)
}

// ParseFile extracts declarations from src.  A lexical error aborts parsing
// because the structure of the script cannot be trusted past it.
func ParseFile(path string, src []byte) (*File, error) {
	f := &File{Path: path, Text: string(src)}
	toks := lexer.Tokenize(token.NewScanner(path, src))
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Type {
		case token.ERROR, token.INVALID:
			return nil, &token.LocationError{Err: fmt.Errorf("%s", tok.Text), Source: tok.Source}
		case token.COMMENT:
			if d, ok := parseDirective(tok); ok {
				f.Directives = append(f.Directives, d)
				if d.Name == DirectiveImport && d.Value != "" {
					f.Imports = append(f.Imports, Import{Path: unquote(d.Value), Source: d.Source})
				}
			}
		case token.PAREN_L:
			if i+1 >= len(toks) || toks[i+1].Type != token.SYMBOL {
				continue
			}
			switch toks[i+1].Text {
			case "use-package", "lisp:use-package":
				f.Namespaces = append(f.Namespaces, formNames(toks[i+2:])...)
			case "in-package", "lisp:in-package":
				f.Packages = append(f.Packages, formNames(toks[i+2:])...)
			case "load-file", "lisp:load-file":
				if i+2 < len(toks) && toks[i+2].Type == token.STRING {
					f.Imports = append(f.Imports, Import{Path: unquote(toks[i+2].Text), Source: toks[i+2].Source})
				}
			}
		}
	}
	return f, nil
}

// DirectiveValues returns the values of every directive called name.
func (f *File) DirectiveValues(name string) []string {
	var vals []string
	for _, d := range f.Directives {
		if d.Name == name && d.Value != "" {
			vals = append(vals, d.Value)
		}
	}
	return vals
}

// SearchDirs returns the directories declared by the file's dir directives.
// Relative directories are resolved against the file's directory.
func (f *File) SearchDirs() []string {
	var dirs []string
	for _, d := range f.DirectiveValues(DirectiveDir) {
		d = searchpath.ExpandEnv(unquote(d))
		if d == "" {
			continue
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(filepath.Dir(f.Path), d)
		}
		dirs = append(dirs, d)
	}
	return dirs
}

func parseDirective(tok *token.Token) (Directive, bool) {
	rest, ok := strings.CutPrefix(tok.Text, DirectivePrefix)
	if !ok {
		return Directive{}, false
	}
	name, value, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if name == "" {
		return Directive{}, false
	}
	return Directive{
		Name:   name,
		Value:  strings.TrimSpace(value),
		Source: tok.Source,
	}, true
}

// formNames collects the package names given to a package form, stopping at
// the form's closing paren.  Names may be quoted symbols, keywords or
// strings.
func formNames(toks []*token.Token) []string {
	var names []string
	for _, tok := range toks {
		switch tok.Type {
		case token.SYMBOL:
			names = append(names, strings.TrimPrefix(tok.Text, ":"))
		case token.STRING:
			names = append(names, unquote(tok.Text))
		case token.QUOTE, token.COMMENT:
		default:
			return names
		}
	}
	return names
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, `"`)
}
