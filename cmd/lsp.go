// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"

	"github.com/luthersystems/elpsclosure/lsp"
	"github.com/spf13/cobra"
)

// LSPCommand creates the "lsp" cobra command with optional embedder
// configuration. Embedders can pass WithBuilder to control how the
// elps.closure command computes closures.
func LSPCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		stdio bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the ELPS closure Language Server Protocol server",
		Long: `Start an LSP server for ELPS source files.

The language server reports unresolved imports as diagnostics, links
imported scripts, and answers the workspace commands:
  elps.closure     the compilation closure of a script
  elps.decoration  the region injected by the auto-main wrapper

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  elpsclosure lsp                    Start with stdio transport
  elpsclosure lsp --port 7998        Start with TCP on port 7998`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			logger := cfg.resolveLogger()
			b, err := cfg.resolveBuilder()
			if err != nil {
				return err
			}
			srv := lsp.New(lsp.WithBuilder(b), lsp.WithLogger(logger))

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				logger.Info("ELPS LSP server listening", "addr", addr)
				if err := srv.RunTCP(addr); err != nil {
					return fmt.Errorf("lsp server error: %w", err)
				}
				return nil
			}
			if err := srv.RunStdio(); err != nil {
				return fmt.Errorf("lsp server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")

	return cmd
}

func init() {
	rootCmd.AddCommand(LSPCommand())
}
