// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-fetch/internal/discover"
	"github.com/pdiddy/paper-fetch/internal/ledger"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// discoverTimeout bounds one model call; web search answers are slow.
const discoverTimeout = 5 * time.Minute

// defaultInputDir receives discovered input files.
var defaultInputDir = filepath.Join("data", "json")

var discoverCmd = &cobra.Command{
	Use:   "discover QUERY...",
	Short: "Ask a language model for recent papers on a topic",
	Long: `Discover asks a web-search-enabled model for a report on recent papers
about QUERY and writes the papers it names to an input file
(default: data/json/<query>_papers.json) ready for the download command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, changedBindings(cmd, discoverBindings))
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = discover.OutputPath(defaultInputDir, query)
		}

		ctx, stop := runContext()
		defer stop()

		if _, err := discoverTo(ctx, cfg.Discovery, query, output, os.Stdout); err != nil {
			return err
		}
		fmt.Println("\nNext steps:")
		fmt.Printf("1. Display papers: paper-fetch display %s\n", output)
		fmt.Printf("2. Download papers: paper-fetch download --json %s\n", output)
		return nil
	},
}

var discoverBindings = map[string]string{
	"model":   "discovery.model",
	"backend": "discovery.backend",
}

func init() {
	discoverCmd.Flags().StringP("output", "o", "", "input file to write (default: data/json/<query>_papers.json)")
	discoverCmd.Flags().StringP("model", "m", "gpt-4o", "model to ask")
	discoverCmd.Flags().String("backend", "openai", "model API: openai or anthropic")

	rootCmd.AddCommand(discoverCmd)
}

// discoverTo runs discovery and saves the result at output.
func discoverTo(ctx context.Context, cfg types.AIConfig, query, output string, w io.Writer) (types.InputFile, error) {
	backend, err := discover.NewBackend(cfg, &http.Client{Timeout: discoverTimeout})
	if err != nil {
		return types.InputFile{}, configErr(err)
	}

	fmt.Fprintf(w, "Searching for papers on %q with %s (%s)...\n", query, backend.Name(), cfg.Model)
	in, err := discover.Discover(ctx, backend, query, cfg.Model)
	if err != nil {
		return types.InputFile{}, err
	}
	if err := ledger.SaveInput(output, in); err != nil {
		return types.InputFile{}, fmt.Errorf("saving papers: %w", err)
	}
	fmt.Fprintf(w, "Found %d papers, saved to %s\n", len(in.Papers), output)
	return in, nil
}
