package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dhamidi/symbex/config"
	"github.com/dhamidi/symbex/report"
	"github.com/dhamidi/symbex/scan"
	"github.com/spf13/cobra"
)

func newCheckCmd(flags *globalFlags) *cobra.Command {
	var configFile string
	var outputFormat string
	var outputFile string
	var checkKeys []string
	var workers int
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Analyze Java sources and report the issues found",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				cfg.Format = outputFormat
			}
			if cmd.Flags().Changed("checks") {
				cfg.Checks = checkKeys
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			config.ConfigureLogging(cfg.Verbosity(flags.verbose), flags.logFile)

			factories, err := cfg.Factories()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}

			out := os.Stdout
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			writer, err := report.NewWriter(cfg.Format, version, cfg.Format == "text" && report.ColorEnabled(out))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			scanner := scan.New(cfg, factories)
			if watch {
				return scanner.Watch(ctx, args, interval, func(summary *scan.Summary) {
					if err := writeSummary(out, cmd.ErrOrStderr(), writer, summary); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				})
			}

			summary, err := scanner.Run(ctx, args)
			if err != nil {
				return err
			}
			if err := writeSummary(out, cmd.ErrOrStderr(), writer, summary); err != nil {
				return err
			}
			if len(summary.Issues) > 0 {
				return fmt.Errorf("%d issues found", len(summary.Issues))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "configuration file (YAML)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", config.DefaultFormat, "output format ("+strings.Join(config.Formats, ", ")+")")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().StringSliceVar(&checkKeys, "checks", nil, "comma-separated rule keys to enable (default all)")
	cmd.Flags().IntVarP(&workers, "workers", "j", config.DefaultWorkers, "number of files analyzed concurrently")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll the paths and reanalyze files as they change")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "polling interval for --watch")

	return cmd
}

func loadConfig(filename string) (*config.Config, error) {
	if filename == "" {
		return config.NewDefault(), nil
	}
	return config.Load(filename)
}

func writeSummary(out, status io.Writer, writer report.Writer, summary *scan.Summary) error {
	if err := writer.Write(out, summary.Issues); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(status, "%d files, %d methods, %d issues", summary.Files, summary.Methods, len(summary.Issues))
	if summary.Skipped > 0 {
		fmt.Fprintf(status, ", %d skipped", summary.Skipped)
	}
	if summary.Truncated > 0 {
		fmt.Fprintf(status, ", %d truncated", summary.Truncated)
	}
	if summary.Faults > 0 {
		fmt.Fprintf(status, ", %d detector faults", summary.Faults)
	}
	fmt.Fprintln(status)
	return nil
}
