// Copyright © 2018 The ELPS authors

package elpstest

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

// Logger is an io.Writer that forwards complete lines to t.Log.
type Logger struct {
	t   testing.TB
	buf []byte
}

var _ io.Writer = (*Logger)(nil)

func NewLogger(t testing.TB) *Logger {
	return &Logger{
		t: t,
	}
}

func (log *Logger) Write(b []byte) (int, error) {
	log.buf = append(log.buf, b...)
	for {
		i := bytes.IndexByte(log.buf, '\n')
		if i < 0 {
			return len(b), nil
		}
		log.t.Log(string(log.buf[:i])) // slice does not include \n
		log.buf = log.buf[i+1:]
	}
}

func (log *Logger) Flush() {
	if len(log.buf) == 0 {
		return
	}
	log.t.Log(string(log.buf))
	log.buf = nil
}

// TestLogger returns a debug level structured logger writing to t.Log.  Any
// partial line is flushed when the test finishes.
func TestLogger(t testing.TB) *log.Logger {
	w := NewLogger(t)
	t.Cleanup(w.Flush)
	return log.NewWithOptions(w, log.Options{
		Level:  log.DebugLevel,
		Prefix: t.Name(),
	})
}
