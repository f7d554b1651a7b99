// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-fetch/internal/discover"
	"github.com/pdiddy/paper-fetch/internal/ledger"
	"github.com/pdiddy/paper-fetch/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run QUERY...",
	Short: "Discover, download, and display papers in one go",
	Long: `Run chains the other commands: discover papers on QUERY, download
them (unless --no-download), and display the resulting ledger.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAll,
}

var runBindings = map[string]string{
	"model":     "discovery.model",
	"backend":   "discovery.backend",
	"threshold": "resolve.match.accept_threshold",
	"manual":    "resolve.manual",
	"output":    "acquisition.output_dir",
}

func init() {
	runCmd.Flags().StringP("model", "m", "gpt-4o", "model to ask")
	runCmd.Flags().String("backend", "openai", "model API: openai or anthropic")
	runCmd.Flags().BoolP("no-download", "n", false, "skip downloading papers")
	runCmd.Flags().Float64P("threshold", "t", 0.7, "minimum match score for accepting a candidate (0.0-1.0)")
	runCmd.Flags().Bool("manual", false, "ask the operator when no candidate is accepted")
	runCmd.Flags().String("output", "data/pdf", "directory that receives the PDFs")

	rootCmd.AddCommand(runCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, changedBindings(cmd, runBindings))
	if err != nil {
		return err
	}
	noDownload, _ := cmd.Flags().GetBool("no-download")
	query := strings.Join(args, " ")
	inputPath := discover.OutputPath(defaultInputDir, query)
	out := os.Stdout

	ctx, stop := runContext()
	defer stop()

	step(out, "STEP 1: SEARCHING FOR PAPERS ON '%s'", strings.ToUpper(query))
	in, err := discoverTo(ctx, cfg.Discovery, query, inputPath, out)
	if err != nil {
		return err
	}

	shown := inputPath
	if noDownload {
		fmt.Fprintln(out, "\nSkipping download as requested.")
	} else {
		step(out, "STEP 2: DOWNLOADING PAPERS ON '%s'", strings.ToUpper(query))
		opts := pipeline.Options{InputPath: inputPath}
		if err := download(ctx, cfg, in, opts, out); err != nil {
			return err
		}
		shown = ledger.DefaultPath(inputPath)
	}

	step(out, "STEP 3: DISPLAYING PAPERS ON '%s'", strings.ToUpper(query))
	if err := display(out, shown, false, ledger.UseColor(out)); err != nil {
		return err
	}

	step(out, "PROCESS COMPLETE")
	fmt.Fprintf(out, "\nSearch results saved to: %s\n", inputPath)
	if !noDownload {
		fmt.Fprintf(out, "Downloaded PDFs saved to: %s\n", cfg.Acquisition.OutputDir)
	}
	return nil
}

func step(w io.Writer, format string, args ...any) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, fmt.Sprintf(format, args...), rule)
}
