package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evrptw/core/milp"
)

var exportOut string

var exportLPCmd = &cobra.Command{
	Use:   "export-lp <instance-file>",
	Short: "Write the compiled model in CPLEX LP format",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportLP,
}

func init() {
	addModelFlags(exportLPCmd)
	exportLPCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportLPCmd)
}

func runExportLP(cmd *cobra.Command, args []string) error {
	if err := applyModelFlags(cmd); err != nil {
		return err
	}
	c, err := compileFile(args[0])
	if err != nil {
		return err
	}
	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "close %s: %v\n", exportOut, err)
			}
		}()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := milp.WriteLP(bw, c.Model); err != nil {
		return err
	}
	return bw.Flush()
}
