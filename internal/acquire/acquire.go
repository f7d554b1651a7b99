// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire retrieves the document of a resolved paper and writes it
// to the output directory, optionally with a YAML metadata record.
package acquire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-fetch/internal/httputil"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

const metadataDir = "metadata"

// Attempt sources recorded in FetchOutcome.Source.
const (
	SourceDirect     = "direct"
	SourceIdentifier = "identifier"
	SourceVenue      = "venue"
)

// ErrUnresolved is reported when Fetch is handed an unresolved result.
var ErrUnresolved = errors.New("paper is unresolved")

var errNotPDF = errors.New("response is not a PDF")

var pdfMagic = []byte("%PDF-")

// Fetcher downloads documents for resolved papers. A Fetcher remembers the
// filenames it has handed out so two papers with the same title never
// overwrite each other within one run.
type Fetcher struct {
	Client *http.Client
	Config types.AcquisitionConfig
	Logger *slog.Logger

	// Out receives one progress line per download attempt; nil discards.
	Out io.Writer

	names namer
}

// NewFetcher returns a Fetcher for cfg.
func NewFetcher(client *http.Client, cfg types.AcquisitionConfig, logger *slog.Logger, out io.Writer) *Fetcher {
	return &Fetcher{Client: client, Config: cfg, Logger: logger, Out: out}
}

// Reserve marks the stems of already downloaded files as taken, so a
// resumed run never writes over a document recorded by an earlier run.
func (f *Fetcher) Reserve(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		base := filepath.Base(p)
		f.names.mark(strings.TrimSuffix(base, filepath.Ext(base)))
	}
}

type attempt struct {
	source string
	url    string
}

// Fetch retrieves the document of res. It tries, in order, the chosen
// candidate's own links, the canonical URL of its external identifier and,
// for proceedings pages, the venue's PDF link. Failures are reported in the
// outcome, never returned.
func (f *Fetcher) Fetch(ctx context.Context, res types.ResolutionResult) types.FetchOutcome {
	if !res.Resolved() || res.Chosen == nil {
		return types.FetchOutcome{Error: ErrUnresolved.Error()}
	}
	log := f.logger().With("paper", res.Query.Title)

	if err := os.MkdirAll(f.Config.OutputDir, 0o755); err != nil {
		return types.FetchOutcome{Error: fmt.Sprintf("creating output directory: %v", err)}
	}

	title := res.Chosen.Title
	if strings.TrimSpace(title) == "" {
		title = res.Query.Title
	}
	stem := f.names.reserve(SanitizeFilename(title))
	dest := filepath.Join(f.Config.OutputDir, stem+".pdf")

	var failures []string
	for a := range f.attempts(ctx, res) {
		f.printf("downloading: %s (%s)\n", stem, a.source)
		log.Debug("fetch attempt", "source", a.source, "url", a.url)

		pages, err := f.tryDownload(ctx, a.url, dest)
		if err != nil {
			log.Info("fetch attempt failed", "source", a.source, "url", a.url, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", a.source, err))
			continue
		}

		out := types.FetchOutcome{
			LocalPath:   dest,
			Downloaded:  true,
			Source:      a.source,
			DocumentURL: a.url,
		}
		if f.Config.WriteMetadata {
			if err := f.writeMetadata(res, out, stem, pages); err != nil {
				f.printf("  warning: writing metadata failed: %v\n", err)
				log.Warn("metadata write failed", "error", err)
			}
		}
		return out
	}

	f.names.release(stem)
	if len(failures) == 0 {
		return types.FetchOutcome{Error: "no document URL or identifier for chosen candidate"}
	}
	return types.FetchOutcome{Error: "download failed: " + strings.Join(failures, "; ")}
}

// attempts yields the candidate URLs lazily so the OpenAlex lookup for a DOI
// only happens when the direct links failed. Each URL is yielded once.
func (f *Fetcher) attempts(ctx context.Context, res types.ResolutionResult) iter.Seq[attempt] {
	return func(yield func(attempt) bool) {
		seen := make(map[string]bool)
		emit := func(source, u string) bool {
			if u == "" || seen[u] {
				return true
			}
			seen[u] = true
			return yield(attempt{source: source, url: u})
		}

		c := res.Chosen
		if !emit(SourceDirect, c.PDFURL) {
			return
		}
		if looksLikeDocument(c.URL) && !emit(SourceDirect, c.URL) {
			return
		}

		idType, id := Classify(c.ExternalID)
		if idType == TypeDOI {
			oa, err := f.openAccessPDF(ctx, id)
			if err != nil {
				f.logger().Debug("OpenAlex lookup failed", "doi", id, "error", err)
			}
			if !emit(SourceIdentifier, oa) {
				return
			}
		}
		if !emit(SourceIdentifier, PDFURL(idType, id)) {
			return
		}

		emit(SourceVenue, venuePDFURL(res.Query.SourceURL))
	}
}

// looksLikeDocument reports whether a landing URL may itself be a PDF.
// arXiv abstract pages never are, so they are left to the identifier step.
func looksLikeDocument(u string) bool {
	if u == "" {
		return false
	}
	return !strings.Contains(u, "arxiv.org/abs/")
}

// tryDownload fetches url into dest under the per-call timeout and, when
// configured, verifies the result. It returns the page count if verified.
func (f *Fetcher) tryDownload(ctx context.Context, url, dest string) (int, error) {
	if f.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Config.Timeout)
		defer cancel()
	}
	if err := f.downloadFile(ctx, url, dest); err != nil {
		return 0, err
	}
	if !f.Config.VerifyPDF {
		return 0, nil
	}
	pages, err := verifyPDF(dest)
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("verifying PDF: %w", err)
	}
	return pages, nil
}

// downloadFile fetches url to destPath using a temporary file. The response
// must be a PDF, judged by Content-Type or the %PDF- signature. The HTTP
// client handles redirect following.
func (f *Fetcher) downloadFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.Config.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body := bufio.NewReader(resp.Body)
	head, _ := body.Peek(len(pdfMagic))
	if !bytes.Equal(head, pdfMagic) && !isPDFContentType(resp.Header.Get("Content-Type")) {
		return fmt.Errorf("%w (Content-Type %q)", errNotPDF, resp.Header.Get("Content-Type"))
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func isPDFContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "application/pdf"
}

// writeMetadata writes the YAML record for a downloaded paper to
// OutputDir/metadata/<stem>.yaml.
func (f *Fetcher) writeMetadata(res types.ResolutionResult, out types.FetchOutcome, stem string, pages int) error {
	dir := filepath.Join(f.Config.OutputDir, metadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	c := res.Chosen
	meta := types.PaperMetadata{
		ID:             c.ExternalID,
		RequestedTitle: res.Query.Title,
		Title:          c.Title,
		SourceURL:      out.DocumentURL,
		PDFPath:        out.LocalPath,
		Authors:        c.Authors,
		Date:           c.Published,
		Abstract:       c.Abstract,
		Source:         c.Source,
		Pages:          pages,
	}
	if res.Verdict != nil {
		meta.Score = res.Verdict.CompositeScore
	}

	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, stem+".yaml"), data, 0o644)
}

// ReadMetadata reads a metadata record written by Fetch.
func ReadMetadata(path string) (*types.PaperMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta types.PaperMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (f *Fetcher) printf(format string, args ...any) {
	if f.Out != nil {
		fmt.Fprintf(f.Out, format, args...)
	}
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
