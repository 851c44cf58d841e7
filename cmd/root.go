// Copyright © 2018 The ELPS authors

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "elpsclosure",
	Short: "Resolve the compilation closure of ELPS scripts",
	Long: `elpsclosure determines everything an ELPS script needs in order to be
compiled: the scripts it loads, transitively, and the native libraries it
references. Nothing is compiled or executed.

Getting started:
  elpsclosure resolve main.lisp        Print the closure of a script
  elpsclosure resolve --json ./...     Closures of every script as JSON
  elpsclosure dirs                     Show the library search path
  elpsclosure fetch main.lisp          Download the packages a script declares
  elpsclosure decorate main.lisp       Apply the auto-main wrapper
  elpsclosure lsp                      Start the language server

Scripts reference libraries through:
  (use-package 'name)        a namespace, matched against library file names
  ;;elps:ref "libname"       an explicit library reference
  ;;elps:pkg name@1.2.0      a package dependency
  ;;elps:dir path            an additional search directory

Libraries are searched in directories declared by scripts, in the
installation named by $ELPS_DIR (its lib directory and the searchDirs of
its elps_config.xml) and in the user's Documents/ElpsScripts directory.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.elpsclosure.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before configuration (default is ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", `log level: "debug", "info", "warn" or "error"`)
	_ = viper.BindPFlag(keyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	} else {
		_ = godotenv.Load()
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".elpsclosure")
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("ELPSCLOSURE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// Configuration problems never prevent resolution; the worker command
	// in particular must keep stdout clean.
	err := viper.ReadInConfig()

	level, lerr := log.ParseLevel(viper.GetString(keyLogLevel))
	if lerr != nil {
		level = log.WarnLevel
	}
	log.SetLevel(level)
	switch {
	case err == nil:
		log.Debug("using config file", "file", viper.ConfigFileUsed())
	case cfgFile != "":
		log.Error("unable to read config file", "file", cfgFile, "err", err)
	}
}
