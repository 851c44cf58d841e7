// Copyright © 2024 The ELPS authors

// Package decorate implements the auto-main wrapper for ELPS scripts and
// locates the injected region so that editors can hide it.
//
// A script opts in with the directive
//
//	;;elps:args /am
//
// and the wrapper appends an invocation of the script's main function.  The
// injected line is tagged with Sentinel.
package decorate

import (
	"regexp"
	"strings"
)

// Sentinel marks the line injected by Wrap.
const Sentinel = ";;elps:auto-main generation"

var argsPattern = regexp.MustCompile(`(?m)^[ \t]*;;elps:args[ \t]+(?:[^\n]*[ \t,])?/am(?:,|\s|$)`)

// Decoration is the region of a script that was injected by Wrap.  Offset is
// -1 when the text carries no injected region.
type Decoration struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Found reports whether d refers to an injected region.
func (d Decoration) Found() bool {
	return d.Offset >= 0
}

// NeedsWrapper reports whether text requests the auto-main wrapper and has
// not been wrapped yet.
func NeedsWrapper(text string) bool {
	return argsPattern.MatchString(text) && !strings.Contains(text, Sentinel)
}

// Wrap appends the entry point invocation to text.  The cursor position pos is
// returned adjusted to the new text; the injection never precedes existing
// text so pos only changes when it is out of range.
func Wrap(text string, pos int) (string, int) {
	var sb strings.Builder
	sb.Grow(len(text) + len(Sentinel) + 10)
	sb.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("(main) ")
	sb.WriteString(Sentinel)
	sb.WriteString("\n")
	if pos < 0 {
		pos = 0
	}
	if pos > len(text) {
		pos = len(text)
	}
	return sb.String(), pos
}

// DecorateIfRequired wraps text when NeedsWrapper reports true.  The final
// return value reports whether text was changed.
func DecorateIfRequired(text string, pos int) (string, int, bool) {
	if !NeedsWrapper(text) {
		return text, pos, false
	}
	text, pos = Wrap(text, pos)
	return text, pos, true
}

// Info returns the line holding Sentinel, including its line terminator.
func Info(text string) Decoration {
	idx := strings.Index(text, Sentinel)
	if idx < 0 {
		return Decoration{Offset: -1}
	}
	start := strings.LastIndexByte(text[:idx], '\n') + 1
	end := len(text)
	if n := strings.IndexByte(text[idx:], '\n'); n >= 0 {
		end = idx + n + 1
	}
	return Decoration{Offset: start, Length: end - start}
}
