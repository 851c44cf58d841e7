// Copyright © 2024 The ELPS authors

package elpstest

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to the slash separated path name below dir,
// creating parent directories, and returns the file's path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("fixture file: %v", err)
	}
	return path
}

// Touch creates an empty file at name below dir.  Library fixtures that are
// never opened only need to exist.
func Touch(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, "")
}
