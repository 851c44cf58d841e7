// Copyright © 2018 The ELPS authors

// Package lexer splits ELPS source text into tokens.  It recognizes enough of
// the language to find forms and comment directives in a script; literal
// values are never decoded.
package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/luthersystems/elpsclosure/parser/token"
)

const (
	miscWordRunes   = "0123456789" + miscWordSymbols
	miscWordSymbols = "._+-*/=<>!&~%?$"
)

type Lexer struct {
	scanner *token.Scanner
}

func New(s *token.Scanner) *Lexer {
	return &Lexer{scanner: s}
}

// Tokenize reads every token from s.  The returned slice always ends with an
// EOF or ERROR token.
func Tokenize(s *token.Scanner) []*token.Token {
	lex := New(s)
	var toks []*token.Token
	for {
		tok := lex.ReadToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF || tok.Type == token.ERROR {
			return toks
		}
	}
}

func (lex *Lexer) ReadToken() *token.Token {
	lex.skipWhitespace()
	if !lex.scanner.Accept(func(c rune) bool { return true }) {
		if lex.scanner.EOF() {
			return lex.emit(token.EOF, "")
		}
		return lex.emitError(lex.scanner.Err())
	}
	switch lex.scanner.Rune() {
	case '(':
		return lex.scanner.EmitToken(token.PAREN_L)
	case ')':
		return lex.scanner.EmitToken(token.PAREN_R)
	case '[':
		return lex.scanner.EmitToken(token.BRACE_L)
	case ']':
		return lex.scanner.EmitToken(token.BRACE_R)
	case '\'':
		return lex.scanner.EmitToken(token.QUOTE)
	case ':':
		return lex.readSymbol()
	case ';':
		lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
		return lex.scanner.EmitToken(token.COMMENT)
	case '#':
		return lex.readDispatch()
	case '"':
		return lex.readString()
	case '-':
		if isDigit(lex.peekRune()) {
			return lex.readNumber()
		}
		return lex.readSymbol()
	default:
		if isDigit(lex.scanner.Rune()) {
			return lex.readNumber()
		}
		if isWordStart(lex.scanner.Rune()) {
			return lex.readSymbol()
		}
		return lex.emit(token.INVALID, fmt.Sprintf("unexpected text starting with %q", lex.scanner.Rune()))
	}
}

func (lex *Lexer) readDispatch() *token.Token {
	if !lex.scanner.Accept(func(c rune) bool { return !unicode.IsSpace(c) }) {
		return lex.errorf("invalid dispatch macro character %q", lex.peekRune())
	}
	switch lex.scanner.Rune() {
	case '!':
		lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
		return lex.scanner.EmitToken(token.HASH_BANG)
	case '\'':
		lex.scanner.AcceptSeq(isWord)
		return lex.scanner.EmitToken(token.FUN_REF)
	case '^':
		return lex.readSymbol()
	case 'o', 'O', 'x', 'X':
		lex.scanner.AcceptSeq(isWord)
		return lex.scanner.EmitToken(token.NUMBER)
	default:
		return lex.errorf("invalid dispatch macro character %q", lex.scanner.Rune())
	}
}

func (lex *Lexer) readString() *token.Token {
	n := 0
	for lex.scanner.AcceptSeq(func(c rune) bool { return c != '"' && c != '\n' }) != 0 {
		n++
		if lex.scanner.Rune() == '\\' {
			if !lex.scanner.Accept(func(c rune) bool { return true }) {
				return lex.errorf("unterminated string literal")
			}
		}
	}
	if !lex.scanner.AcceptRune('"') {
		if lex.scanner.EOF() {
			return lex.errorf("unexpected EOF")
		}
		return lex.errorf("unterminated string literal")
	}
	if n > 0 {
		return lex.scanner.EmitToken(token.STRING)
	}
	if !lex.scanner.AcceptRune('"') {
		// This is just an empty string -- not raw.
		return lex.scanner.EmitToken(token.STRING)
	}
	for {
		if _, ok := lex.scanner.AcceptString(`"""`); ok {
			return lex.scanner.EmitToken(token.STRING_RAW)
		}
		if !lex.scanner.Accept(func(c rune) bool { return true }) {
			return lex.errorf("unterminated raw-string literal")
		}
	}
}

func (lex *Lexer) readSymbol() *token.Token {
	lex.scanner.AcceptSeq(isWord)
	if lex.scanner.AcceptRune(':') {
		return lex.readSymbol()
	}
	return lex.scanner.EmitToken(token.SYMBOL)
}

// readNumber consumes a numeric literal without validating it.
func (lex *Lexer) readNumber() *token.Token {
	lex.scanner.AcceptSeq(func(c rune) bool {
		return isDigit(c) || strings.ContainsRune(".eE", c)
	})
	lex.scanner.AcceptAny("+-")
	lex.scanner.AcceptSeq(isDigit)
	return lex.scanner.EmitToken(token.NUMBER)
}

func (lex *Lexer) skipWhitespace() {
	if lex.scanner.AcceptSeqSpace() > 0 {
		lex.scanner.Ignore()
	}
}

func (lex *Lexer) emit(typ token.Type, text string) *token.Token {
	tok := &token.Token{
		Type:   typ,
		Text:   text,
		Source: lex.scanner.LocStart(),
	}
	lex.scanner.Ignore()
	return tok
}

func (lex *Lexer) emitError(err error) *token.Token {
	if err == nil {
		return lex.emit(token.ERROR, "unexpected EOF")
	}
	return lex.emit(token.ERROR, err.Error())
}

func (lex *Lexer) errorf(format string, v ...interface{}) *token.Token {
	return lex.emitError(fmt.Errorf(format, v...))
}

func (lex *Lexer) peekRune() rune {
	r, _ := lex.scanner.Peek()
	return r
}

func isWordStart(c rune) bool {
	return unicode.IsLetter(c) || strings.ContainsRune(miscWordSymbols, c)
}

func isWord(c rune) bool {
	return unicode.IsLetter(c) || strings.ContainsRune(miscWordRunes, c)
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}
