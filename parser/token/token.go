// Copyright © 2018 The ELPS authors

package token

import "fmt"

// Source is an abstract stream of tokens which allows one token lookahead.
type Source interface {
	// Token returns the current token.  Token returns nil if Scan has not been
	// called.
	Token() *Token
	// Peek returns the next token in the stream.  At the end of the stream
	// Peek should return a value to indicate the lack of a token (EOF).
	Peek() *Token
	// Scan advances the token stream if possible.  If there are no tokens
	// remaining Scan returns false.
	Scan() bool
}

type Token struct {
	Type   Type
	Text   string
	Source *Location
}

type Type uint

// Type constants produced by the lexer.  Numeric literals of every radix
// share the NUMBER type because the closure reader never evaluates them.
const (
	INVALID Type = iota
	ERROR
	EOF

	HASH_BANG

	SYMBOL
	NUMBER
	STRING
	STRING_RAW

	COMMENT

	QUOTE
	FUN_REF

	PAREN_L
	PAREN_R
	BRACE_L
	BRACE_R

	numTokenTypes
)

func (typ Type) String() string {
	typeStrings := [numTokenTypes]string{
		INVALID:    "invalid",
		ERROR:      "error",
		EOF:        "EOF",
		HASH_BANG:  "#!",
		SYMBOL:     "symbol",
		NUMBER:     "number",
		STRING:     "string",
		STRING_RAW: "raw-string",
		COMMENT:    ";",
		QUOTE:      "'",
		FUN_REF:    "#'",
		PAREN_L:    "(",
		PAREN_R:    ")",
		BRACE_L:    "[",
		BRACE_R:    "]",
	}
	if typ >= numTokenTypes {
		return typeStrings[INVALID]
	}
	return typeStrings[typ]
}

// IsOpen reports whether typ opens a nested expression.
func (typ Type) IsOpen() bool {
	return typ == PAREN_L || typ == BRACE_L
}

// IsClose reports whether typ closes a nested expression.
func (typ Type) IsClose() bool {
	return typ == PAREN_R || typ == BRACE_R
}

type Location struct {
	File string // a name representing the source stream
	Pos  int    // byte offset from the start of the stream
	Line int    // line number (starting at 1 when tracked)
	Col  int    // line column number (starting at 1 when tracked)
}

func (loc *Location) String() string {
	switch {
	case loc.Pos < 0:
		return loc.File
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

type LocationError struct {
	Err    error
	Source *Location
}

func (err *LocationError) Error() string {
	return fmt.Sprintf("%s: %s", err.Source, err.Err)
}

func (err *LocationError) Unwrap() error {
	return err.Err
}
