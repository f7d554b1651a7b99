// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-fetch/internal/acquire"
	"github.com/pdiddy/paper-fetch/internal/cache"
	"github.com/pdiddy/paper-fetch/internal/ledger"
	"github.com/pdiddy/paper-fetch/internal/pipeline"
	"github.com/pdiddy/paper-fetch/internal/resolve"
	"github.com/pdiddy/paper-fetch/internal/search"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Resolve paper titles and download their PDFs",
	Long: `Download reads an input file of paper titles, resolves each title to a
canonical record by querying the lookup providers with several query
strategies, verifies the best candidate against the requested title, and
downloads the PDF of every accepted match.

Every paper gets one row in the ledger (download_results.json next to the
input file). The ledger is rewritten after each paper, so an interrupted run
can be resumed with --retry-failed. Papers that fail do not change the exit
code.`,
	RunE: runDownload,
}

// downloadBindings maps download flags to config keys.
var downloadBindings = map[string]string{
	"output":     "acquisition.output_dir",
	"threshold":  "resolve.match.accept_threshold",
	"manual":     "resolve.manual",
	"delay":      "acquisition.download_delay",
	"providers":  "lookup.providers",
	"verify-pdf": "acquisition.verify_pdf",
	"metadata":   "acquisition.write_metadata",
}

func init() {
	downloadCmd.Flags().String("json", "", "input file with the papers to download (required)")
	downloadCmd.Flags().String("output", "data/pdf", "directory that receives the PDFs")
	downloadCmd.Flags().Float64("threshold", 0.7, "minimum match score for accepting a candidate (0.0-1.0)")
	downloadCmd.Flags().Bool("manual", false, "ask the operator when no candidate is accepted")
	downloadCmd.Flags().Bool("retry-failed", false, "keep the existing ledger and process only papers not yet downloaded")
	downloadCmd.Flags().String("ledger", "", "ledger path (default: download_results.json next to the input)")
	downloadCmd.Flags().Duration("timeout", 0, "timeout of each lookup and download (default 30s lookups, 60s downloads)")
	downloadCmd.Flags().Duration("delay", 0, "pause between papers (default 3s)")
	downloadCmd.Flags().StringSlice("providers", nil, "lookup providers in priority order (default arxiv,semantic_scholar,openalex)")
	downloadCmd.Flags().Bool("no-cache", false, "do not read or write the lookup cache")
	downloadCmd.Flags().Bool("verify-pdf", false, "parse each download and reject unreadable PDFs")
	downloadCmd.Flags().Bool("metadata", false, "write a YAML metadata record per downloaded paper")
	downloadCmd.MarkFlagRequired("json")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, changedBindings(cmd, downloadBindings))
	if err != nil {
		return err
	}
	if t, _ := cmd.Flags().GetDuration("timeout"); t > 0 {
		cfg.Lookup.Timeout = t
		cfg.Resolve.LookupTimeout = t
		cfg.Acquisition.Timeout = t
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Lookup.CacheDir = ""
	}

	inputPath, _ := cmd.Flags().GetString("json")
	in, err := ledger.LoadInput(inputPath)
	if err != nil {
		return configErr(err)
	}
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	retry, _ := cmd.Flags().GetBool("retry-failed")

	ctx, stop := runContext()
	defer stop()

	return download(ctx, cfg, in, pipeline.Options{
		InputPath:   inputPath,
		LedgerPath:  ledgerPath,
		RetryFailed: retry,
	}, os.Stdout)
}

// download runs the pipeline over in and prints the summary table.
func download(ctx context.Context, cfg types.PipelineConfig, in types.InputFile, opts pipeline.Options, out io.Writer) error {
	runner, cleanup, err := newRunner(cfg, out, slog.Default())
	if err != nil {
		return err
	}
	defer cleanup()

	sum, err := runner.Run(ctx, in, opts)
	fmt.Fprintln(out)
	ledger.RenderSummary(out, sum)
	return err
}

// newRunner wires providers, cache, resolver, and fetcher for one run. The
// returned cleanup closes the lookup cache.
func newRunner(cfg types.PipelineConfig, out io.Writer, log *slog.Logger) (*pipeline.Runner, func(), error) {
	lookupClient := &http.Client{Timeout: cfg.Lookup.Timeout}
	providers, err := search.New(lookupClient, cfg.Lookup)
	if err != nil {
		return nil, nil, configErr(err)
	}

	cleanup := func() {}
	if cfg.Lookup.CacheDir != "" {
		store, err := cache.Open(cfg.Lookup.CacheDir, cfg.Lookup.CacheTTL)
		if err != nil {
			log.Warn("lookup cache unavailable, continuing without it", "dir", cfg.Lookup.CacheDir, "error", err)
		} else {
			if n, err := store.Prune(context.Background()); err == nil && n > 0 {
				log.Debug("pruned expired lookups", "entries", n)
			}
			for i, p := range providers {
				providers[i] = &search.CachedProvider{Provider: p, Cache: store, Logger: log}
			}
			cleanup = func() { store.Close() }
		}
	}
	multi := &search.MultiProvider{Providers: providers, Logger: log}

	var decider resolve.Decider
	if cfg.Resolve.Manual {
		decider = resolve.NewPromptDecider(os.Stdin, out)
	}
	resolver := resolve.New(multi, multi, decider, cfg.Resolve, log)

	fetchClient := &http.Client{Timeout: cfg.Acquisition.Timeout}
	fetcher := acquire.NewFetcher(fetchClient, cfg.Acquisition, log, out)

	return &pipeline.Runner{
		Resolver: resolver,
		Fetcher:  fetcher,
		Delay:    cfg.Acquisition.DownloadDelay,
		Out:      out,
		Logger:   log,
	}, cleanup, nil
}

// changedBindings keeps only the bindings of flags set on the command line,
// so unset flags never shadow the config file.
func changedBindings(cmd *cobra.Command, bindings map[string]string) map[string]string {
	out := make(map[string]string, len(bindings))
	for flag, key := range bindings {
		if cmd.Flags().Changed(flag) {
			out[flag] = key
		}
	}
	return out
}
