// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/luthersystems/elpsclosure/identity"
	"github.com/spf13/cobra"
)

// identifyCmd is the worker behind the load dedupe strategy.  It reads a
// probe request on stdin and writes the results to stdout.
var identifyCmd = &cobra.Command{
	Use:    identity.WorkerCommand,
	Short:  "Identify native libraries (internal)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return identity.ServeWorker(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}
