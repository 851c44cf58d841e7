// Copyright © 2018 The ELPS authors

package lexer

import (
	"testing"

	"github.com/luthersystems/elpsclosure/parser/token"
	"github.com/stretchr/testify/assert"
)

type tok struct {
	typ  token.Type
	text string
}

func lexAll(input string) []tok {
	var out []tok
	for _, t := range Tokenize(token.NewStringScanner("test", input)) {
		out = append(out, tok{t.Type, t.Text})
	}
	return out
}

func TestLexer(t *testing.T) {
	tests := []struct {
		input  string
		tokens []tok
	}{
		{``, []tok{
			{token.EOF, ""},
		}},
		{`abc`, []tok{
			{token.SYMBOL, "abc"},
			{token.EOF, ""},
		}},
		{`=+()[]`, []tok{
			{token.SYMBOL, "=+"},
			{token.PAREN_L, "("},
			{token.PAREN_R, ")"},
			{token.BRACE_L, "["},
			{token.BRACE_R, "]"},
			{token.EOF, ""},
		}},
		{`(use-package 'pkg:xyz)`, []tok{
			{token.PAREN_L, "("},
			{token.SYMBOL, "use-package"},
			{token.QUOTE, "'"},
			{token.SYMBOL, "pkg:xyz"},
			{token.PAREN_R, ")"},
			{token.EOF, ""},
		}},
		{`10 -5 0.1 12e-12 #x1F - x`, []tok{
			{token.NUMBER, "10"},
			{token.NUMBER, "-5"},
			{token.NUMBER, "0.1"},
			{token.NUMBER, "12e-12"},
			{token.NUMBER, "#x1F"},
			{token.SYMBOL, "-"},
			{token.SYMBOL, "x"},
			{token.EOF, ""},
		}},
		{`"abc" "" """raw "quoted" text""" "a\"b"`, []tok{
			{token.STRING, `"abc"`},
			{token.STRING, `""`},
			{token.STRING_RAW, `"""raw "quoted" text"""`},
			{token.STRING, `"a\"b"`},
			{token.EOF, ""},
		}},
		{"#!/usr/bin/env elps\n;;elps:ref \"libfoo\"\n(x) ; trailing", []tok{
			{token.HASH_BANG, "#!/usr/bin/env elps"},
			{token.COMMENT, `;;elps:ref "libfoo"`},
			{token.PAREN_L, "("},
			{token.SYMBOL, "x"},
			{token.PAREN_R, ")"},
			{token.COMMENT, "; trailing"},
			{token.EOF, ""},
		}},
		{`#'map`, []tok{
			{token.FUN_REF, "#'map"},
			{token.EOF, ""},
		}},
	}
	for _, test := range tests {
		assert.Equal(t, test.tokens, lexAll(test.input), "input: %q", test.input)
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{`"abc`, "\"abc\ndef\"", `"""abc`, `# x`} {
		toks := Tokenize(token.NewStringScanner("test", input))
		last := toks[len(toks)-1]
		assert.Equal(t, token.ERROR, last.Type, "input: %q", input)
	}
}

func TestLexerLocations(t *testing.T) {
	toks := Tokenize(token.NewStringScanner("a.lisp", "(x\n  'y)"))
	if assert.Len(t, toks, 6) {
		assert.Equal(t, 1, toks[1].Source.Line)
		assert.Equal(t, 2, toks[2].Source.Line)
		assert.Equal(t, 3, toks[2].Source.Col)
		assert.Equal(t, 5, toks[2].Source.Pos)
	}
}
