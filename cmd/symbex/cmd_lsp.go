package main

import (
	"github.com/dhamidi/symbex/lsp"
	"github.com/dhamidi/symbex/scan"
	"github.com/spf13/cobra"
)

func newLSPCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server on stdio",
		Long:  "Start the Language Server Protocol server on stdio. Logs go to stderr, or to the file given with --log.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			factories, err := cfg.Factories()
			if err != nil {
				return err
			}
			server := lsp.NewServer(version, scan.New(cfg, factories))
			return server.RunStdio()
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "configuration file (YAML)")

	return cmd
}
