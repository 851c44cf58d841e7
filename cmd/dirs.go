// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"

	"github.com/luthersystems/elpsclosure/script"
	"github.com/luthersystems/elpsclosure/searchpath"
	"github.com/spf13/cobra"
)

var dirsCmd = &cobra.Command{
	Use:   "dirs [script]",
	Short: "Print the library search path",
	Long: `Print the directories searched for native libraries, in search order.

With a script argument the directories declared by the script and its
imports come first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newCmdConfig(nil).resolveLogger()
		var dirs []string
		if len(args) == 1 {
			p, err := script.Parse(args[0], script.WithLogger(logger))
			if err != nil {
				return err
			}
			dirs = p.SearchDirs()
		}
		provider := newSearchProvider(logger)
		dirs = append(dirs, provider.Dirs()...)
		dirs = searchpath.Normalize(append(dirs, provider.UserScriptsDir()))
		for _, dir := range dirs {
			fmt.Fprintln(cmd.OutOrStdout(), dir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dirsCmd)
}
