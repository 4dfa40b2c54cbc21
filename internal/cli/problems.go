package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/descent/internal/config"
	"github.com/copyleftdev/descent/internal/optimization/linesearch"
	"github.com/copyleftdev/descent/internal/optimization/testfunctions"
)

func newProblemsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "problems",
		Short: "List the built-in problems and line searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Problems:")
			for _, name := range testfunctions.Names() {
				fmt.Fprintf(out, "  %-12s %s\n", name, testfunctions.Describe(name))
			}
			fmt.Fprintln(out, "Line searches:")
			for _, m := range linesearch.Methods() {
				fmt.Fprintf(out, "  %s\n", m)
			}
			return nil
		},
	}
}

func newDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the default run file",
		Long:  `Prints the run used when no run file is given, as YAML suitable for --config.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.EncodeRun(cmd.OutOrStdout(), config.DefaultRun())
		},
	}
}
