// Copyright © 2024 The ELPS authors

package lsp

import (
	"fmt"
	"os"

	"github.com/luthersystems/elpsclosure/decorate"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Workspace commands.
const (
	CommandClosure    = "elps.closure"
	CommandDecoration = "elps.decoration"
)

// workspaceExecuteCommand dispatches workspace/executeCommand requests.  Both
// commands take the document URI as their only argument.
func (s *Server) workspaceExecuteCommand(_ *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	uri, err := uriArgument(params)
	if err != nil {
		return nil, err
	}
	switch params.Command {
	case CommandClosure:
		c, err := s.builder.Resolve(s.ctx, uriToPath(uri))
		if err != nil {
			s.logger.Warn("unable to resolve closure", "uri", uri, "err", err)
			return nil, err
		}
		return c, nil
	case CommandDecoration:
		text, err := s.documentText(uri)
		if err != nil {
			return nil, err
		}
		return decorate.Info(text), nil
	default:
		return nil, fmt.Errorf("unknown command: %s", params.Command)
	}
}

func uriArgument(params *protocol.ExecuteCommandParams) (string, error) {
	if len(params.Arguments) != 1 {
		return "", fmt.Errorf("%s: expected a document uri argument", params.Command)
	}
	uri, ok := params.Arguments[0].(string)
	if !ok || uri == "" {
		return "", fmt.Errorf("%s: document uri must be a string", params.Command)
	}
	return uri, nil
}

// documentText returns the editor's copy of a document, falling back to the
// file on disk.
func (s *Server) documentText(uri string) (string, error) {
	if doc := s.docs.Get(uri); doc != nil {
		doc.mu.Lock()
		defer doc.mu.Unlock()
		return doc.Content, nil
	}
	b, err := os.ReadFile(uriToPath(uri))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
