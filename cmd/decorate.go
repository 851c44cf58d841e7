// Copyright © 2024 The ELPS authors

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/luthersystems/elpsclosure/decorate"
	"github.com/spf13/cobra"
)

var (
	decorateInfo  bool
	decorateWrite bool
)

var decorateCmd = &cobra.Command{
	Use:   "decorate [flags] script",
	Short: "Apply the auto-main wrapper to a script",
	Long: `Print the script with the auto-main wrapper applied when it declares
;;elps:args /am.  A script that does not request the wrapper is printed
unchanged.

With --info the location of the injected region is printed as JSON instead;
the offset is -1 when the script carries no injected region.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		text := string(src)
		if decorateInfo {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(decorate.Info(text))
		}
		text, _, changed := decorate.DecorateIfRequired(text, 0)
		if decorateWrite {
			if changed {
				return os.WriteFile(args[0], []byte(text), 0o644) //nolint:gosec // scripts are readable
			}
			return nil
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	decorateCmd.Flags().BoolVar(&decorateInfo, "info", false, "Print the injected region as JSON")
	decorateCmd.Flags().BoolVarP(&decorateWrite, "write", "w", false, "Write the result to the script instead of stdout")
	rootCmd.AddCommand(decorateCmd)
}
