// Package cmd provides the command-line interface of the crowdsale service.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crowdsale",
	Short: "Time-boxed token sale with linear vesting of purchased allocations.",
	Long: `crowdsale serves a fixed-rate token sale over HTTP and tracks the ` +
		`vesting of every purchase. It can also evaluate a vesting schedule offline.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
