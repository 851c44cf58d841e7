// Copyright © 2018 The ELPS authors

package token

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerEOF(t *testing.T) {
	s := NewStringScanner("test", "xxxxxxxxxx")
	for i := 0; i < 10; i++ {
		require.NoError(t, s.ScanRune())
	}
	tok := s.EmitToken(SYMBOL)
	assert.Equal(t, "xxxxxxxxxx", tok.Text)
	for i := 0; i < 3; i++ {
		tok := s.EmitToken(SYMBOL)
		assert.Equal(t, "", tok.Text)
		assert.Equal(t, io.EOF, s.ScanRune())
		assert.True(t, s.EOF())
	}
}

func TestScannerAcceptSeq(t *testing.T) {
	s := NewStringScanner("test", "xxxxxxxxxx")
	assert.Equal(t, 10, s.AcceptSeq(func(c rune) bool { return true }))
	s.Ignore()
	assert.False(t, s.Accept(func(c rune) bool { return true }))
	assert.True(t, s.EOF())
}

func TestScannerAcceptString(t *testing.T) {
	s := NewStringScanner("test", `"""abc`)
	n, ok := s.AcceptString(`"""`)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	n, ok = s.AcceptString("abd")
	assert.False(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, `"""ab`, s.Text())
}

func TestScannerLocations(t *testing.T) {
	s := NewStringScanner("test.lisp", "ab\n  cd")
	s.AcceptSeq(func(c rune) bool { return c != '\n' })
	tok := s.EmitToken(SYMBOL)
	assert.Equal(t, "ab", tok.Text)
	assert.Equal(t, &Location{File: "test.lisp", Pos: 0, Line: 1, Col: 1}, tok.Source)

	s.AcceptSeqSpace()
	s.Ignore()
	s.AcceptSeq(func(c rune) bool { return c != ' ' })
	tok = s.EmitToken(SYMBOL)
	assert.Equal(t, "cd", tok.Text)
	assert.Equal(t, &Location{File: "test.lisp", Pos: 5, Line: 2, Col: 3}, tok.Source)
	assert.Equal(t, "test.lisp:2:3", tok.Source.String())
}

func TestScannerInvalidUTF8(t *testing.T) {
	s := NewScanner("test", []byte{'a', 0xff, 'b'})
	assert.True(t, s.AcceptRune('a'))
	_, ok := s.Peek()
	assert.False(t, ok)
	assert.Error(t, s.Err())
	assert.Error(t, s.ScanRune())
}
