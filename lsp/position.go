// Copyright © 2024 The ELPS authors

package lsp

import (
	"net/url"
	"path/filepath"

	"github.com/luthersystems/elpsclosure/parser/token"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// lspPosition converts a 1-based source location to a 0-based LSP position.
// Untracked lines and columns map to zero.
func lspPosition(loc *token.Location) protocol.Position {
	return protocol.Position{
		Line:      uinteger(loc.Line - 1),
		Character: uinteger(loc.Col - 1),
	}
}

func uinteger(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// lspRange returns the single line range of n characters starting at loc.
func lspRange(loc *token.Location, n int) protocol.Range {
	start := lspPosition(loc)
	end := start
	end.Character += uinteger(n)
	return protocol.Range{Start: start, End: end}
}

// uriToPath converts a file URI to a filesystem path.  URIs of other schemes
// are returned unchanged.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}

// pathToURI converts an absolute filesystem path to a file URI.  Other paths
// are returned unchanged.
func pathToURI(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
