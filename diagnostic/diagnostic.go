// Copyright © 2024 The ELPS authors

// Package diagnostic renders closure failures as annotated source snippets
// for CLI output.
package diagnostic

import (
	"errors"

	"github.com/luthersystems/elpsclosure/parser/token"
)

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File   string // path for reading source; display name if unreadable
	Line   int    // 1-based line number
	Col    int    // 1-based start column
	EndCol int    // 1-based end column (0 = auto-detect from source)
	Label  string // text shown under the underline
}

// Diagnostic represents a single error, warning, or note with optional
// source annotations and trailing notes.
type Diagnostic struct {
	Severity Severity
	Message  string
	Spans    []Span
	Notes    []string
}

// FromError converts err into an error diagnostic.  When err carries source
// locations the innermost one is annotated and the enclosing locations
// become notes.
func FromError(err error) Diagnostic {
	d := Diagnostic{Severity: SeverityError, Message: err.Error()}
	var chain []*token.LocationError
	for e := err; e != nil; e = errors.Unwrap(e) {
		var locErr *token.LocationError
		if !errors.As(e, &locErr) {
			break
		}
		chain = append(chain, locErr)
		e = locErr
	}
	if len(chain) == 0 {
		return d
	}
	inner := chain[len(chain)-1]
	d.Message = inner.Err.Error()
	if loc := inner.Source; loc != nil {
		d.Spans = []Span{{File: loc.File, Line: loc.Line, Col: loc.Col}}
	}
	for i := len(chain) - 2; i >= 0; i-- {
		if loc := chain[i].Source; loc != nil {
			d.Notes = append(d.Notes, "imported at "+loc.String())
		}
	}
	return d
}
