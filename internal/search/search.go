// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries bibliographic APIs for records matching a free-text
// title query and returns them as unified candidates.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/paper-fetch/internal/httputil"
	"github.com/pdiddy/paper-fetch/internal/match"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Provider looks up candidate records for a free-text query. An empty
// slice with a nil error means the provider found nothing.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, query string) ([]types.Candidate, error)
}

// IDLookup fetches the record for an explicit identifier (arXiv ID or DOI).
type IDLookup interface {
	LookupID(ctx context.Context, id string) (*types.Candidate, error)
}

// Provider names accepted by New.
const (
	NameArxiv           = "arxiv"
	NameSemanticScholar = "semantic_scholar"
	NameOpenAlex        = "openalex"
)

// New builds the providers named in cfg.Providers, in order.
func New(client *http.Client, cfg types.LookupConfig) ([]Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no lookup providers configured")
	}
	var out []Provider
	for _, name := range cfg.Providers {
		switch strings.TrimSpace(name) {
		case NameArxiv:
			out = append(out, &ArxivProvider{
				Client:     client,
				Limiter:    httputil.NewLimiter(cfg.ArxivInterval),
				MaxResults: cfg.MaxResults,
				UserAgent:  cfg.UserAgent,
			})
		case NameSemanticScholar:
			out = append(out, &SemanticScholarProvider{
				Client:     client,
				APIKey:     cfg.SemanticScholarAPIKey,
				MaxResults: cfg.MaxResults,
				UserAgent:  cfg.UserAgent,
			})
		case NameOpenAlex:
			out = append(out, &OpenAlexProvider{
				Client:     client,
				Email:      cfg.OpenAlexEmail,
				MaxResults: cfg.MaxResults,
				UserAgent:  cfg.UserAgent,
			})
		default:
			return nil, fmt.Errorf("unknown lookup provider %q", name)
		}
	}
	return out, nil
}

// MultiProvider fans a query out to several providers concurrently and
// merges their answers. It fails only when every provider fails.
type MultiProvider struct {
	Providers []Provider
	Logger    *slog.Logger
}

// Name returns the member names joined with "+".
func (m *MultiProvider) Name() string {
	names := make([]string, len(m.Providers))
	for i, p := range m.Providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// Lookup queries all providers and returns deduplicated candidates ordered
// by provider score.
func (m *MultiProvider) Lookup(ctx context.Context, query string) ([]types.Candidate, error) {
	if len(m.Providers) == 0 {
		return nil, fmt.Errorf("no lookup providers configured")
	}

	type result struct {
		idx   int
		cands []types.Candidate
		err   error
	}
	ch := make(chan result, len(m.Providers))
	var wg sync.WaitGroup
	for i, p := range m.Providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cands, err := p.Lookup(ctx, query)
			ch <- result{idx: i, cands: cands, err: err}
		}()
	}
	wg.Wait()
	close(ch)

	byProvider := make([][]types.Candidate, len(m.Providers))
	var errs []error
	for r := range ch {
		if r.err != nil {
			m.logger().Warn("lookup provider failed",
				"provider", m.Providers[r.idx].Name(), "query", query, "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		byProvider[r.idx] = r.cands
	}
	if len(errs) == len(m.Providers) {
		return nil, errors.Join(errs...)
	}

	var all []types.Candidate
	for _, cands := range byProvider {
		all = append(all, cands...)
	}
	merged := Deduplicate(all)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RawScore > merged[j].RawScore
	})
	return merged, nil
}

// LookupID asks each member that supports identifier lookup, in order, and
// returns the first record found.
func (m *MultiProvider) LookupID(ctx context.Context, id string) (*types.Candidate, error) {
	var errs []error
	for _, p := range m.Providers {
		idl, ok := p.(IDLookup)
		if !ok {
			continue
		}
		c, err := idl.LookupID(ctx, id)
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no provider supports identifier lookup")
	}
	return nil, errors.Join(errs...)
}

func (m *MultiProvider) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Deduplicate merges candidates that share an identifier or normalized title.
func Deduplicate(cands []types.Candidate) []types.Candidate {
	seen := make(map[string]int)
	var out []types.Candidate

	for _, c := range cands {
		idKey := ""
		if c.ExternalID != "" {
			idKey = "id:" + strings.ToLower(c.ExternalID)
		}
		titleKey := ""
		if t := match.Normalize(c.Title); t != "" {
			titleKey = "title:" + t
		}

		idx, ok := seen[idKey]
		if !ok || idKey == "" {
			idx, ok = seen[titleKey]
			ok = ok && titleKey != ""
		}
		if ok {
			mergeInto(&out[idx], c)
			if idKey != "" {
				seen[idKey] = idx
			}
			continue
		}

		idx = len(out)
		out = append(out, c)
		if idKey != "" {
			seen[idKey] = idx
		}
		if titleKey != "" {
			seen[titleKey] = idx
		}
	}
	return out
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
// An arXiv identifier wins over any other identifier.
func mergeInto(dst *types.Candidate, src types.Candidate) {
	if IsArxivID(src.ExternalID) && !IsArxivID(dst.ExternalID) {
		dst.ExternalID = src.ExternalID
		if src.URL != "" {
			dst.URL = src.URL
		}
	}
	if dst.ExternalID == "" {
		dst.ExternalID = src.ExternalID
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Published.IsZero() {
		dst.Published = src.Published
	}
	if src.RawScore > dst.RawScore {
		dst.RawScore = src.RawScore
	}
	if src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

var arxivIDPattern = regexp.MustCompile(`^(?:arXiv:)?\d{4}\.\d{4,5}(?:v\d+)?$`)

// IsArxivID reports whether s looks like a new-style arXiv ID.
func IsArxivID(s string) bool {
	return arxivIDPattern.MatchString(s)
}

// positionScore maps a result's rank to (0.1, 1.0].
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// searchTerms returns the significant words of query for APIs that take
// term lists. Stopwords are dropped unless nothing else remains.
func searchTerms(query string) []string {
	words := match.Tokens(query)
	var out []string
	for _, w := range words {
		if !match.IsStopword(w) {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return words
	}
	return out
}

func maxResults(n int) int {
	if n <= 0 {
		return 10
	}
	return n
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
