// Copyright © 2024 The ELPS authors

package lsp

import (
	"github.com/luthersystems/elpsclosure/script"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDocumentLink links every import of a document to the script it
// loads.  Imports that cannot be resolved produce no link.
func (s *Server) textDocumentDocumentLink(_ *glsp.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	file, _ := doc.snapshot()
	if file == nil {
		return nil, nil
	}

	links := []protocol.DocumentLink{}
	for _, imp := range file.Imports {
		path := resolveImport(file, imp.Path)
		if path == "" {
			continue
		}
		target := protocol.DocumentUri(pathToURI(path))
		links = append(links, protocol.DocumentLink{
			Range:  importRange(imp),
			Target: &target,
		})
	}
	return links, nil
}

// resolveImport returns the path of the script loaded by an import in file,
// or "" when it cannot be found.
func resolveImport(file *script.File, name string) string {
	path, err := script.LocateImport(file.Path, name, file.SearchDirs())
	if err != nil {
		return ""
	}
	return path
}

// importRange covers the quoted import path.
func importRange(imp script.Import) protocol.Range {
	if imp.Source == nil {
		return protocol.Range{}
	}
	return lspRange(imp.Source, len(imp.Path)+2)
}
