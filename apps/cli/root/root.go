package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the OptoPlus admin CLI. Subcommands
// (bootstrap, clinic, token) are attached here.
var rootCmd = &cobra.Command{
	Use:           "optoplus",
	Short:         "OptoPlus admin CLI",
	Long:          "Administrative utilities for OptoPlus (master registry bootstrap, clinic provisioning, session tokens).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
