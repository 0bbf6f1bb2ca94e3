// Command minjq runs page scripts against an HTML document with the
// minjq library bound to $.
package main

import (
	"fmt"
	"os"

	"github.com/psilva261/minjq/logger"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "minjq",
		Short: "Run scripts against an HTML page with $ bound to minjq",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.Debug = true
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		runCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "minjq: %v\n", err)
		os.Exit(1)
	}
}
