// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"

	"github.com/luthersystems/elpsclosure/pkgcache"
	"github.com/luthersystems/elpsclosure/script"
	"github.com/spf13/cobra"
)

var fetchPackages []string

var fetchCmd = &cobra.Command{
	Use:   "fetch [flags] [script ...]",
	Short: "Download package dependencies into the package cache",
	Long: `Download the packages declared by scripts with ;;elps:pkg directives, and
any given with --package, from the configured S3 bucket into the package
cache.  Packages already present in the cache are not downloaded again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newCmdConfig(nil).resolveLogger()
		cache, err := newCache(logger, true)
		if err != nil {
			return err
		}
		if cache.Fetcher == nil {
			return fmt.Errorf("no package bucket configured (set packages.s3.bucket)")
		}
		out := cmd.OutOrStdout()
		for _, path := range args {
			p, err := script.Parse(path,
				script.WithLogger(logger),
				script.WithPackageResolver(cache))
			if err != nil {
				return err
			}
			dirs := newSearchProvider(logger).Dirs()
			libs, err := p.ResolvePackages(cmd.Context(), append(p.SearchDirs(), dirs...), false)
			if err != nil {
				return err
			}
			for _, lib := range libs {
				fmt.Fprintln(out, lib)
			}
		}
		for _, spec := range fetchPackages {
			dep, err := pkgcache.ParseDependency(spec)
			if err != nil {
				return err
			}
			libs, err := cache.Fetch(cmd.Context(), dep)
			if err != nil {
				return err
			}
			for _, lib := range libs {
				fmt.Fprintln(out, lib)
			}
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringArrayVar(&fetchPackages, "package", nil, "Package to download, as name or name@version")
	rootCmd.AddCommand(fetchCmd)
}
