package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhamidi/symbex/cfg"
	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
	"github.com/dhamidi/symbex/report"
	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
)

func newCFGCmd() *cobra.Command {
	var methodName string
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "cfg <file>",
		Short: "Print the control flow graphs of the methods in a .java file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("read java file: %w", err)
			}
			unit, err := parser.Parse(data, filename)
			if err != nil {
				return err
			}
			model := semantic.Resolve(unit, filename)

			au := aurora.NewAurora(report.ColorEnabled(os.Stdout))
			found := false
			for _, m := range model.Methods() {
				if methodName != "" && m.Name != methodName && m.String() != methodName {
					continue
				}
				found = true
				if !m.HasBody() {
					continue
				}
				g, err := cfg.Build(m.Decl, model)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", m, err)
					continue
				}
				switch outputFormat {
				case "dot":
					fmt.Print(g.Dot())
				case "text":
					fmt.Println(au.Bold(fmt.Sprintf("%s (line %d)", m, m.Line)))
					printGraph(au, g)
				default:
					return fmt.Errorf("unknown format: %s", outputFormat)
				}
			}
			if !found {
				return fmt.Errorf("no method named %s in %s", methodName, filename)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&methodName, "method", "m", "", "only print the method with this name (or Class#name)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, dot)")

	return cmd
}

// printGraph prints the text dump of g with block headers highlighted.
func printGraph(au aurora.Aurora, g *cfg.CFG) {
	for _, line := range strings.Split(strings.TrimRight(g.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, " ") {
			fmt.Println(au.Cyan(line))
			continue
		}
		fmt.Println(line)
	}
	fmt.Println()
}
