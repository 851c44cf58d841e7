// Copyright © 2024 The ELPS authors

// Package identity removes candidate libraries that provide the same library
// under different file locations.
package identity

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Strategy reduces a list of library paths to one path per library identity.
// Implementations keep the first path of each identity and preserve order.
type Strategy interface {
	Dedupe(ctx context.Context, paths []string) []string
}

// Strategy names accepted by ParseStrategy.
const (
	StrategyFileName = "filename"
	StrategyLoad     = "load"
)

// ParseStrategy returns the strategy called name.  An empty name selects
// FileName.  The load strategy probes libraries with p.
func ParseStrategy(name string, p Prober) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyFileName:
		return FileName{}, nil
	case StrategyLoad:
		if p == nil {
			p = &ProcessProber{}
		}
		return &LoadBased{Prober: p}, nil
	default:
		return nil, fmt.Errorf("unknown dedupe strategy: %q", name)
	}
}

// FileName identifies libraries by base name without extension.  Names are
// compared case-sensitively.
type FileName struct{}

var _ Strategy = FileName{}

// Dedupe implements Strategy.  Paths without a usable base name are dropped.
func (FileName) Dedupe(_ context.Context, paths []string) []string {
	var out []string
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		key := FileKey(path)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, path)
	}
	return out
}

// FileKey returns the base name of path without its extension, or "" when
// path has no usable base name.
func FileKey(path string) string {
	base := filepath.Base(path)
	switch base {
	case ".", "..", string(filepath.Separator):
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NormalizeName reduces a declared library name to its identity.  Directory
// components are removed along with version and library extension suffixes,
// so "/usr/lib/libz.so.1.2" and "@rpath/libz.1.dylib" are both "libz".
func NormalizeName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	for {
		ext := filepath.Ext(name)
		if ext == "" || ext == name {
			return name
		}
		if !isLibExt(ext) && !isVersion(ext[1:]) {
			return name
		}
		name = strings.TrimSuffix(name, ext)
	}
}

func isLibExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".so", ".dylib", ".dll":
		return true
	}
	return false
}

func isVersion(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
