// Copyright © 2024 The ELPS authors

package decorate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsWrapper(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{";;elps:args /am\n(defun main () 1)", true},
		{"  ;;elps:args /am", true},
		{";;elps:args /x,/am\n", true},
		{";;elps:args -v /am\n", true},
		{";;elps:args /amx\n", false},
		{";; elps:args /am\n", false},
		{"(defun main () 1)", false},
		{";;elps:args /am\n(main) " + Sentinel + "\n", false},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, NeedsWrapper(test.text), "text: %q", test.text)
	}
}

func TestWrapAndInfo(t *testing.T) {
	text := ";;elps:args /am\n(defun main () 1)"
	wrapped, pos, changed := DecorateIfRequired(text, 5)
	assert.True(t, changed)
	assert.Equal(t, 5, pos)
	assert.Equal(t, text+"\n(main) "+Sentinel+"\n", wrapped)

	info := Info(wrapped)
	assert.True(t, info.Found())
	assert.Equal(t, len(text)+1, info.Offset)
	assert.Equal(t, len("(main) "+Sentinel+"\n"), info.Length)
	assert.Equal(t, "(main) "+Sentinel+"\n", wrapped[info.Offset:info.Offset+info.Length])

	again, _, changed := DecorateIfRequired(wrapped, 0)
	assert.False(t, changed)
	assert.Equal(t, wrapped, again)
}

func TestWrapClampsPosition(t *testing.T) {
	_, pos := Wrap("abc\n", 100)
	assert.Equal(t, 4, pos)
	_, pos = Wrap("abc\n", -3)
	assert.Equal(t, 0, pos)
}

func TestInfoMissing(t *testing.T) {
	assert.Equal(t, Decoration{Offset: -1, Length: 0}, Info("(defun main () 1)"))
	assert.False(t, Info("").Found())
}

func TestInfoCRLF(t *testing.T) {
	text := "(a)\r\n(main) " + Sentinel + "\r\n(b)"
	info := Info(text)
	assert.Equal(t, 5, info.Offset)
	assert.Equal(t, "(main) "+Sentinel+"\r\n", text[info.Offset:info.Offset+info.Length])
}
