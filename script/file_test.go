// Copyright © 2024 The ELPS authors

package script

import (
	"testing"

	"github.com/luthersystems/elpsclosure/parser/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	src := `;;elps:ref "libacme"
;;elps:dir ../lib
;;elps:pkg widgets@1.2.0
;;elps:import "shared/util.lisp"
;; an ordinary comment
(in-package 'app)
(use-package 'acme.io :net "text")
(lisp:use-package 'math)
(load-file "helpers.lisp")
(defun main () (debug-print "(use-package 'nope)"))
`
	f, err := ParseFile("app.lisp", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"acme.io", "net", "text", "math"}, f.Namespaces)
	assert.Equal(t, []string{"app"}, f.Packages)
	if assert.Len(t, f.Imports, 2) {
		assert.Equal(t, "shared/util.lisp", f.Imports[0].Path)
		assert.Equal(t, "helpers.lisp", f.Imports[1].Path)
		assert.Equal(t, 9, f.Imports[1].Source.Line)
	}
	assert.Equal(t, []string{`"libacme"`}, f.DirectiveValues(DirectiveRef))
	assert.Equal(t, []string{"../lib"}, f.DirectiveValues(DirectiveDir))
	assert.Equal(t, []string{"widgets@1.2.0"}, f.DirectiveValues(DirectivePkg))
	assert.Nil(t, f.DirectiveValues(DirectiveArgs))
}

func TestParseFile_NestedFormStopsNames(t *testing.T) {
	f, err := ParseFile("x.lisp", []byte(`(use-package 'a (list 'b) 'c)`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, f.Namespaces)
}

func TestParseFile_LexError(t *testing.T) {
	_, err := ParseFile("bad.lisp", []byte("(use-package 'a)\n\"unterminated"))
	require.Error(t, err)
	var locErr *token.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, "bad.lisp", locErr.Source.File)
}

func TestParseDirective(t *testing.T) {
	d, ok := parseDirective(&token.Token{Type: token.COMMENT, Text: ";;elps:dir   /opt/lib  "})
	require.True(t, ok)
	assert.Equal(t, "dir", d.Name)
	assert.Equal(t, "/opt/lib", d.Value)

	_, ok = parseDirective(&token.Token{Type: token.COMMENT, Text: ";; elps:dir /opt/lib"})
	assert.False(t, ok)
	_, ok = parseDirective(&token.Token{Type: token.COMMENT, Text: ";;elps:"})
	assert.False(t, ok)
}
