// Copyright © 2024 The ELPS authors

package closure

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultCompanionPrefix is the base name prefix of the host companion
// library.
const DefaultCompanionPrefix = "libelpshost"

// Companion locates the shared library that hosts ELPS inside the running
// process.  The lookup happens once, on first use.
type Companion struct {
	// Prefix defaults to DefaultCompanionPrefix.
	Prefix string
	// Maps lists the files mapped into the process.  Nil reads
	// /proc/self/maps.
	Maps func() ([]string, error)

	once sync.Once
	path string
}

// Path returns the companion library's path, or "" when the process has no
// companion library loaded.
func (c *Companion) Path() string {
	c.once.Do(func() {
		c.path = c.find()
	})
	return c.path
}

func (c *Companion) find() string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = DefaultCompanionPrefix
	}
	maps := c.Maps
	if maps == nil {
		maps = ProcMaps
	}
	files, err := maps()
	if err != nil {
		return ""
	}
	for _, f := range files {
		if strings.HasPrefix(filepath.Base(f), prefix) {
			return f
		}
	}
	return ""
}

// ProcMaps returns the distinct files mapped into the current process, in
// mapping order.  It fails on systems without /proc.
func ProcMaps() ([]string, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read only
	return parseMaps(bufio.NewScanner(f))
}

// parseMaps reads lines of the form
//
//	address perms offset dev inode pathname
//
// and collects the absolute pathnames.
func parseMaps(s *bufio.Scanner) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for s.Scan() {
		fields := strings.SplitN(s.Text(), " ", 6)
		if len(fields) < 6 {
			continue
		}
		name := strings.TrimSpace(fields[5])
		name = strings.TrimSuffix(name, " (deleted)")
		if !strings.HasPrefix(name, "/") || seen[name] {
			continue
		}
		seen[name] = true
		files = append(files, name)
	}
	return files, s.Err()
}
