// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives one download run: every paper of an input file is
// resolved, its document fetched when resolution succeeded, and its ledger
// row saved before the next paper starts.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pdiddy/paper-fetch/internal/ledger"
	"github.com/pdiddy/paper-fetch/internal/logger"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Resolver turns a paper query into a resolution result.
type Resolver interface {
	Resolve(ctx context.Context, q types.PaperQuery) types.ResolutionResult
}

// Fetcher retrieves the document of a resolved paper.
type Fetcher interface {
	Fetch(ctx context.Context, res types.ResolutionResult) types.FetchOutcome
}

// Reserver is implemented by fetchers that must not reuse the filenames of
// documents recorded by an earlier run.
type Reserver interface {
	Reserve(paths ...string)
}

// Options select the ledger and which papers a run processes.
type Options struct {
	// LedgerPath is where rows are saved. Empty means next to the input.
	LedgerPath string

	// InputPath locates the input file for the default ledger path.
	InputPath string

	// RetryFailed keeps the rows already on disk and processes only papers
	// without a downloaded row.
	RetryFailed bool
}

func (o Options) ledgerPath() string {
	if o.LedgerPath != "" {
		return o.LedgerPath
	}
	return ledger.DefaultPath(o.InputPath)
}

// Runner processes papers one at a time.
type Runner struct {
	Resolver Resolver
	Fetcher  Fetcher

	// Delay is the pause between consecutive papers.
	Delay time.Duration

	// Out receives human progress lines; nil discards.
	Out    io.Writer
	Logger *slog.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Run processes input and returns the counts over every ledger row. The
// ledger is saved after each paper, so when ctx is cancelled the rows of
// finished papers are already on disk; Run then returns ctx's error.
func (r *Runner) Run(ctx context.Context, input types.InputFile, opts Options) (ledger.Summary, error) {
	path := opts.ledgerPath()
	log := logger.FromContext(ctx, r.Logger).With("ledger", path)

	var (
		l   *ledger.Ledger
		err error
	)
	if opts.RetryFailed {
		l, err = ledger.Open(path, input)
		if err != nil {
			return ledger.Summary{}, fmt.Errorf("opening ledger: %w", err)
		}
	} else {
		l = ledger.New(path, input)
	}
	existing := l.File()
	papers := ledger.SelectRetry(input, &existing)
	if rs, ok := r.Fetcher.(Reserver); ok && opts.RetryFailed {
		var kept []string
		for _, rec := range l.Records() {
			if rec.Downloaded {
				kept = append(kept, rec.PDFPath)
			}
		}
		rs.Reserve(kept...)
	}

	if opts.RetryFailed {
		r.printf("Retrying %d of %d papers (%d already downloaded)\n",
			len(papers), len(input.Papers), len(input.Papers)-len(papers))
	} else {
		r.printf("Processing %d papers\n", len(papers))
	}
	log.Info("run started", "papers", len(papers), "retry_failed", opts.RetryFailed)

	// An empty run still leaves a ledger behind.
	if len(papers) == 0 {
		if err := l.Save(); err != nil {
			return ledger.Summary{}, fmt.Errorf("saving ledger: %w", err)
		}
	}

	for i, p := range papers {
		if i > 0 && r.Delay > 0 {
			if err := r.wait(ctx, r.Delay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		q := types.PaperQuery{Title: p.PaperName, SourceURL: p.PaperURL}
		r.printf("\n[%d/%d] %s\n", i+1, len(papers), q.Title)

		rec, ok := r.process(logger.WithPaper(ctx, q.Title), q)
		if !ok {
			break
		}
		if err := l.Upsert(rec); err != nil {
			return ledger.Summarize(l.Records()), fmt.Errorf("recording %q: %w", q.Title, err)
		}
		if err := l.Save(); err != nil {
			return ledger.Summarize(l.Records()), fmt.Errorf("saving ledger: %w", err)
		}
	}

	sum := ledger.Summarize(l.Records())
	r.printf("\nBatch summary: %d resolved, %d resolved manually, %d unresolved, %d downloaded, %d failed (total: %d)\n",
		sum.Resolved, sum.ResolvedManually, sum.Unresolved, sum.Downloaded, sum.Failed, sum.Total)
	r.printf("Results saved to %s\n", path)

	if err := ctx.Err(); err != nil {
		log.Warn("run interrupted", "recorded", sum.Total)
		return sum, fmt.Errorf("run interrupted: %w", err)
	}
	log.Info("run finished", "resolved", sum.Resolved+sum.ResolvedManually, "downloaded", sum.Downloaded, "unresolved", sum.Unresolved)
	return sum, nil
}

// process resolves and fetches one paper. It reports false when ctx was
// cancelled mid-paper; such a paper gets no row.
func (r *Runner) process(ctx context.Context, q types.PaperQuery) (types.LedgerRecord, bool) {
	log := logger.FromContext(ctx, r.Logger)

	res := r.Resolver.Resolve(ctx, q)
	if ctx.Err() != nil {
		return types.LedgerRecord{}, false
	}

	var out *types.FetchOutcome
	switch {
	case res.Resolved():
		r.printf("  %s: %s\n", res.Status, describe(res))
		fo := r.Fetcher.Fetch(ctx, res)
		if ctx.Err() != nil && !fo.Downloaded {
			return types.LedgerRecord{}, false
		}
		out = &fo
		if fo.Downloaded {
			r.printf("  saved: %s\n", fo.LocalPath)
		} else {
			r.printf("  failed: %s\n", fo.Error)
		}
	default:
		r.printf("  unresolved: %s\n", res.ErrorDetail)
	}

	rec := ledger.NewRecord(q, res, out)
	log.Debug("paper recorded", "status", rec.Status, "downloaded", rec.Downloaded, "lookups", res.Attempts)
	return rec, true
}

func describe(res types.ResolutionResult) string {
	s := res.Chosen.Title
	if res.Chosen.ExternalID != "" {
		s += " [" + res.Chosen.ExternalID + "]"
	}
	if res.Verdict != nil {
		s += fmt.Sprintf(" score=%.2f", res.Verdict.CompositeScore)
	}
	return s
}

func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	if r.sleep != nil {
		return r.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) printf(format string, args ...any) {
	if r.Out != nil {
		fmt.Fprintf(r.Out, format, args...)
	}
}
