package main

import (
	"os"

	"github.com/dhamidi/symbex/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

type globalFlags struct {
	verbose int
	logFile string
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:          "symbex",
		Short:        "Path-sensitive bug detection for Java method bodies",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.ConfigureLogging(flags.verbose, flags.logFile)
		},
	}
	rootCmd.PersistentFlags().CountVarP(&flags.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newCheckCmd(&flags))
	rootCmd.AddCommand(newCFGCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newLSPCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
