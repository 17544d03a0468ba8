// Package main provides the gumsitter CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gumsitter/pkg/version"
)

func main() {
	rootCmd := newRootCmd()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	state := &appState{}

	rootCmd := &cobra.Command{
		Use:   "gumsitter",
		Short: "Translate tree-sitter syntax trees into GumTree trees",
		Long: `gumsitter parses source files with tree-sitter grammars and emits the
normalized tree format consumed by the GumTree differencing tool.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return state.shutdown(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&state.cfgFile, "config", "", "config file (default is ./.gumsitter.yaml or $HOME/.gumsitter.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(parseCmd(state))
	rootCmd.AddCommand(languagesCmd(state))
	rootCmd.AddCommand(rulesCmd(state))
	rootCmd.AddCommand(serveCmd(state))
	rootCmd.AddCommand(mcpCmd(state))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
