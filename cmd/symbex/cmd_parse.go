package main

import (
	"fmt"
	"os"

	"github.com/dhamidi/symbex/format"
	"github.com/dhamidi/symbex/java/parser"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var outputFormat string
	var includePositions bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a .java file and dump its syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("read java file: %w", err)
			}
			node, err := parser.Parse(data, filename)
			if err != nil {
				return fmt.Errorf("parse java file: %w", err)
			}

			enc := format.NewASTEncoder(os.Stdout, includePositions)
			switch outputFormat {
			case "json":
				return enc.EncodeJSON(node)
			case "tree":
				return enc.EncodeTree(node)
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "output format (json, tree)")
	cmd.Flags().BoolVar(&includePositions, "positions", false, "include source positions in the output")

	return cmd
}
