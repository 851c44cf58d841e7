// Copyright © 2024 The ELPS authors

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/luthersystems/elpsclosure/closure"
	"github.com/luthersystems/elpsclosure/diagnostic"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const outputWidth = 100

// scriptClosure pairs a script with its closure in JSON output.
type scriptClosure struct {
	Script string `json:"script"`
	*closure.Closure
	Error string `json:"error,omitempty"`
}

// ResolveCommand creates the "resolve" cobra command.  Embedders can pass
// WithBuilder to control how closures are computed.
func ResolveCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		jsonOutput bool
		excludes   []string
		color      string
	)

	cmd := &cobra.Command{
		Use:   "resolve [flags] script|pattern ...",
		Short: "Print the compilation closure of ELPS scripts",
		Long: `Print the source files and native libraries needed to compile each script.

Source files are listed in dependency order and end with the script itself.
Arguments may be script paths or directory patterns such as ./... which
expand to every .lisp file below the directory.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandArgs(args, excludes)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no scripts match %s", strings.Join(args, " "))
			}
			mode, err := diagnostic.ParseColorMode(color)
			if err != nil {
				return err
			}
			b, err := cfg.resolveBuilder()
			if err != nil {
				return err
			}
			renderer := &diagnostic.Renderer{Color: mode}
			var (
				results []scriptClosure
				failed  int
			)
			for _, path := range paths {
				c, err := b.Resolve(cmd.Context(), path)
				r := scriptClosure{Script: path, Closure: c}
				if err != nil {
					failed++
					r.Error = err.Error()
					if rerr := renderer.Render(cmd.ErrOrStderr(), diagnostic.FromError(err)); rerr != nil {
						return rerr
					}
				}
				results = append(results, r)
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					writeClosure(out, r)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scripts could not be resolved", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print closures as JSON")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil,
		"Glob patterns for files or directories to skip when expanding patterns")
	cmd.Flags().StringVar(&color, "color", "auto", `Color error output: "auto", "always" or "never"`)
	cmd.Flags().String("dedupe", "", `Library dedupe strategy: "filename" or "load"`)
	_ = viper.BindPFlag(keyDedupe, cmd.Flags().Lookup("dedupe"))

	return cmd
}

func writeClosure(w io.Writer, r scriptClosure) {
	fmt.Fprintln(w, r.Script)
	if r.Error != "" {
		fmt.Fprintln(w, indent.String(wordwrap.String("error: "+r.Error, outputWidth-2), 2))
		return
	}
	writeSection(w, "source files", r.SourceFiles)
	writeSection(w, "libraries", r.Libraries)
}

func writeSection(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "  %s:\n", title)
	if len(items) == 0 {
		fmt.Fprintln(w, "    (none)")
		return
	}
	fmt.Fprintln(w, indent.String(strings.Join(items, "\n"), 4))
}

func init() {
	rootCmd.AddCommand(ResolveCommand())
}
