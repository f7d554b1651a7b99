package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-fetch/internal/ledger"
)

var displayCmd = &cobra.Command{
	Use:   "display FILE",
	Short: "Print an input file or a download ledger",
	Long: `Display prints the papers of an input file, or of a ledger with each
paper's download status and a summary of the run. Colors are used when
stdout is a terminal and NO_COLOR is unset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return display(os.Stdout, args[0], asJSON, ledger.UseColor(os.Stdout))
	},
}

func init() {
	displayCmd.Flags().Bool("json", false, "print the file as JSON")

	rootCmd.AddCommand(displayCmd)
}

func display(w io.Writer, path string, asJSON, color bool) error {
	lf, err := ledger.ReadAny(path)
	if err != nil {
		return configErr(err)
	}
	if asJSON {
		return ledger.FormatJSON(w, lf)
	}
	ledger.Render(w, lf, color)
	if ledger.HasResults(lf.Papers) {
		fmt.Fprintln(w)
		ledger.RenderSummary(w, ledger.Summarize(lf.Papers))
	}
	return nil
}
