// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Renderer formats diagnostics as annotated source snippets:
//
//	error: imported script not found: util.lisp
//	  --> main.lisp:2:12
//	   |
//	 2 |  (load-file "util.lisp")
//	   |             ^^^^^^^^^^^
//	   = note: imported at lib.lisp:1:1
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// SourceReader reads source file contents. If nil, os.ReadFile is used.
	SourceReader func(string) ([]byte, error)
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	var f *os.File
	if file, ok := w.(*os.File); ok {
		f = file
	}
	p := choosePalette(r.Color, f)

	var buf bytes.Buffer
	sevColor := p.err
	switch d.Severity {
	case SeverityWarning:
		sevColor = p.warn
	case SeverityNote:
		sevColor = p.note
	}
	fmt.Fprintf(&buf, "%s%s%s:%s %s%s%s\n", sevColor, p.bold, d.Severity, p.reset, p.bold, d.Message, p.reset)
	for _, span := range d.Spans {
		r.writeSpan(&buf, span, p)
	}
	for _, note := range d.Notes {
		fmt.Fprintf(&buf, "   %s=%s note: %s\n", p.note, p.reset, note)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) writeSpan(buf *bytes.Buffer, span Span, p palette) {
	loc := span.File
	if span.Line > 0 {
		loc += ":" + strconv.Itoa(span.Line)
		if span.Col > 0 {
			loc += ":" + strconv.Itoa(span.Col)
		}
	}
	fmt.Fprintf(buf, "  %s-->%s %s\n", p.gutter, p.reset, loc)

	source, ok := r.sourceLine(span.File, span.Line)
	if !ok {
		fmt.Fprintf(buf, "   %s|%s\n", p.gutter, p.reset)
		return
	}

	num := strconv.Itoa(span.Line)
	pad := strings.Repeat(" ", len(num))
	col := max(span.Col, 1)
	end := span.EndCol
	if end <= 0 {
		end = tokenEnd(source, col)
	}
	end = max(end, col)
	var indent string
	if col-1 <= len(source) {
		indent = strings.Repeat(" ", displayWidth(source[:col-1]))
	}

	fmt.Fprintf(buf, " %s%s |%s\n", p.gutter, pad, p.reset)
	fmt.Fprintf(buf, " %s%s |%s  %s\n", p.gutter, num, p.reset, strings.ReplaceAll(source, "\t", "    "))
	fmt.Fprintf(buf, " %s%s |%s  %s%s%s%s", p.gutter, pad, p.reset, indent, p.err, strings.Repeat("^", end-col+1), p.reset)
	if span.Label != "" {
		fmt.Fprintf(buf, " %s%s%s", p.err, span.Label, p.reset)
	}
	buf.WriteString("\n")
	fmt.Fprintf(buf, " %s%s |%s\n", p.gutter, pad, p.reset)
}

func (r *Renderer) sourceLine(file string, line int) (string, bool) {
	if line <= 0 || file == "" {
		return "", false
	}
	read := r.SourceReader
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(file)
	if err != nil {
		return "", false
	}
	s := bufio.NewScanner(bytes.NewReader(data))
	for i := 1; s.Scan(); i++ {
		if i == line {
			return s.Text(), true
		}
	}
	return "", false
}

// tokenEnd returns the 1-based column of the last character of the token
// starting at col.  A string token extends to its closing quote.
func tokenEnd(source string, col int) int {
	if col > len(source) {
		return col
	}
	i := col - 1
	if source[i] == '"' {
		for j := i + 1; j < len(source); j++ {
			switch source[j] {
			case '\\':
				j++
			case '"':
				return j + 1
			}
		}
		return len(source)
	}
	for i < len(source) {
		ch, size := utf8.DecodeRuneInString(source[i:])
		if strings.ContainsRune(" \t()[]", ch) {
			break
		}
		i += size
	}
	return max(i, col)
}

// displayWidth returns the display width of s, expanding tabs to 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}
