// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-fetch/internal/httputil"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Base URLs of the arXiv API. Declared as vars so tests can substitute an
// httptest server.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivAbsBase = "https://arxiv.org/abs/"
	arxivPDFBase = "https://arxiv.org/pdf/"
)

// ArxivProvider queries the arXiv Atom API by title terms. arXiv asks
// clients to space requests; Limiter enforces that.
type ArxivProvider struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	MaxResults int
	UserAgent  string
}

// Name returns the provider identifier.
func (p *ArxivProvider) Name() string { return NameArxiv }

// Lookup searches arXiv titles for every significant term of query.
func (p *ArxivProvider) Lookup(ctx context.Context, query string) ([]types.Candidate, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, providerErr(NameArxiv, ErrEmptyQuery)
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "ti:" + t
	}

	params := url.Values{
		"search_query": {strings.Join(parts, " AND ")},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults(p.MaxResults))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	feed, err := p.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	return feedCandidates(feed), nil
}

// LookupID fetches the record of one arXiv ID.
func (p *ArxivProvider) LookupID(ctx context.Context, id string) (*types.Candidate, error) {
	id = strings.TrimPrefix(strings.TrimSpace(id), "arXiv:")
	if !IsArxivID(id) {
		return nil, providerErr(NameArxiv, fmt.Errorf("%w: %q is not an arXiv ID", ErrNotFound, id))
	}
	feed, err := p.fetch(ctx, url.Values{"id_list": {id}})
	if err != nil {
		return nil, err
	}
	cands := feedCandidates(feed)
	if len(cands) == 0 {
		return nil, providerErr(NameArxiv, fmt.Errorf("%w: arXiv ID %s", ErrNotFound, id))
	}
	return &cands[0], nil
}

func (p *ArxivProvider) fetch(ctx context.Context, params url.Values) (*arxivFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.Do(ctx, p.Client, p.Limiter, req)
	if err != nil {
		return nil, providerErr(NameArxiv, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(NameArxiv, resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, malformed(NameArxiv, err)
	}
	return &feed, nil
}

func feedCandidates(feed *arxivFeed) []types.Candidate {
	total := len(feed.Entries)
	var out []types.Candidate
	for i, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}
		c := types.Candidate{
			Title:      collapse(entry.Title),
			ExternalID: id,
			URL:        arxivAbsBase + id,
			PDFURL:     arxivPDFBase + id,
			RawScore:   positionScore(i, total),
			Source:     NameArxiv,
			Abstract:   collapse(entry.Summary),
		}
		for _, l := range entry.Links {
			if l.Title == "pdf" && l.Href != "" {
				c.PDFURL = l.Href
			}
		}
		for _, a := range entry.Authors {
			c.Authors = append(c.Authors, strings.TrimSpace(a.Name))
		}
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			c.Published = t
		}
		out = append(out, c)
	}
	return out
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
