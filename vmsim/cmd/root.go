// Package cmd provides the command-line interface of vmsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "vmsim",
	Short: "vmsim runs user programs on a simulated paging subsystem with " +
		"swap files and page replacement.",
	Long: `vmsim runs NOFF user programs on a simulated machine with a small ` +
		`physical memory. Pages are loaded on demand from per-process swap ` +
		`files and evicted with a FIFO, random, or no replacement policy.`,
	SilenceUsage: true,
}

// fatalf reports an error a command cannot recover from. Registered exit
// handlers, such as the kernel shutdown, run before the process exits.
var fatalf = atexit.Fatalf

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
