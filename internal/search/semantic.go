// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
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

// Semantic Scholar endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	semanticAPIBase   = "https://api.semanticscholar.org/graph/v1/paper/search"
	semanticPaperBase = "https://api.semanticscholar.org/graph/v1/paper/"
)

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,url,openAccessPdf"

// SemanticScholarProvider queries the Semantic Scholar Graph API.
type SemanticScholarProvider struct {
	Client     *http.Client
	APIKey     string
	Limiter    *rate.Limiter
	MaxResults int
	UserAgent  string
}

// Name returns the provider identifier.
func (p *SemanticScholarProvider) Name() string { return NameSemanticScholar }

// Lookup runs a relevance search for query.
func (p *SemanticScholarProvider) Lookup(ctx context.Context, query string) ([]types.Candidate, error) {
	q := strings.Join(searchTerms(query), " ")
	if q == "" {
		return nil, providerErr(NameSemanticScholar, ErrEmptyQuery)
	}
	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults(p.MaxResults))},
		"fields": {semanticFields},
	}

	var sr semanticResponse
	if err := p.get(ctx, semanticAPIBase+"?"+params.Encode(), &sr); err != nil {
		return nil, err
	}

	out := make([]types.Candidate, 0, len(sr.Data))
	for i, paper := range sr.Data {
		c := paper.candidate()
		c.RawScore = positionScore(i, len(sr.Data))
		out = append(out, c)
	}
	return out, nil
}

// LookupID fetches one paper by arXiv ID or DOI.
func (p *SemanticScholarProvider) LookupID(ctx context.Context, id string) (*types.Candidate, error) {
	id = strings.TrimSpace(id)
	switch {
	case IsArxivID(id):
		id = "arXiv:" + strings.TrimPrefix(id, "arXiv:")
	case strings.HasPrefix(id, "10."):
		id = "DOI:" + id
	}

	var paper semanticPaper
	reqURL := semanticPaperBase + url.PathEscape(id) + "?" + url.Values{"fields": {semanticFields}}.Encode()
	if err := p.get(ctx, reqURL, &paper); err != nil {
		return nil, err
	}
	c := paper.candidate()
	c.RawScore = 1.0
	return &c, nil
}

func (p *SemanticScholarProvider) get(ctx context.Context, reqURL string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	if p.APIKey != "" {
		req.Header.Set("x-api-key", p.APIKey)
	}

	resp, err := httputil.Do(ctx, p.Client, p.Limiter, req)
	if err != nil {
		return providerErr(NameSemanticScholar, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusErr(NameSemanticScholar, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return malformed(NameSemanticScholar, err)
	}
	return nil
}

func (sp semanticPaper) candidate() types.Candidate {
	c := types.Candidate{
		Title:    collapse(sp.Title),
		URL:      sp.URL,
		Source:   NameSemanticScholar,
		Abstract: sp.Abstract,
	}
	for _, a := range sp.Authors {
		c.Authors = append(c.Authors, a.Name)
	}
	if sp.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", sp.PublicationDate); err == nil {
			c.Published = t
		}
	} else if sp.Year > 0 {
		c.Published = time.Date(sp.Year, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	// Prefer arXiv ID, then DOI.
	switch {
	case sp.ExternalIDs.ArXiv != "":
		c.ExternalID = sp.ExternalIDs.ArXiv
		c.URL = arxivAbsBase + sp.ExternalIDs.ArXiv
	case sp.ExternalIDs.DOI != "":
		c.ExternalID = sp.ExternalIDs.DOI
	}
	if sp.OpenAccessPDF != nil {
		c.PDFURL = sp.OpenAccessPDF.URL
	}
	return c
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	URL             string              `json:"url"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF   *semanticPDF        `json:"openAccessPdf"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

type semanticPDF struct {
	URL string `json:"url"`
}
