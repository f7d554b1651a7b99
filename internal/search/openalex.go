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

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// arxivDOIPrefix marks DOIs that DataCite assigns to arXiv preprints.
const arxivDOIPrefix = "10.48550/arxiv."

// OpenAlexProvider queries the OpenAlex works index.
type OpenAlexProvider struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email      string
	Limiter    *rate.Limiter
	MaxResults int
	UserAgent  string
}

// Name returns the provider identifier.
func (p *OpenAlexProvider) Name() string { return NameOpenAlex }

// Lookup runs a full-text works search for query.
func (p *OpenAlexProvider) Lookup(ctx context.Context, query string) ([]types.Candidate, error) {
	q := strings.Join(searchTerms(query), " ")
	if q == "" {
		return nil, providerErr(NameOpenAlex, ErrEmptyQuery)
	}
	params := url.Values{
		"search":   {q},
		"per_page": {strconv.Itoa(min(maxResults(p.MaxResults), 200))},
		"page":     {"1"},
	}
	if p.Email != "" {
		params.Set("mailto", p.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.Do(ctx, p.Client, p.Limiter, req)
	if err != nil {
		return nil, providerErr(NameOpenAlex, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(NameOpenAlex, resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, malformed(NameOpenAlex, err)
	}

	out := make([]types.Candidate, 0, len(oar.Results))
	for i, work := range oar.Results {
		c := work.candidate()
		c.RawScore = positionScore(i, len(oar.Results))
		out = append(out, c)
	}
	return out, nil
}

func (w openAlexWork) candidate() types.Candidate {
	title := w.DisplayName
	if title == "" {
		title = w.Title
	}
	c := types.Candidate{
		Title:  collapse(title),
		URL:    w.ID,
		Source: NameOpenAlex,
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			c.Authors = append(c.Authors, a.Author.DisplayName)
		}
	}
	if t, err := time.Parse("2006-01-02", w.PublicationDate); err == nil {
		c.Published = t
	} else if w.PublicationYear > 0 {
		c.Published = time.Date(w.PublicationYear, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	doi := strings.TrimPrefix(strings.ToLower(w.DOI), "https://doi.org/")
	if doi != "" {
		c.ExternalID = doi
		c.URL = "https://doi.org/" + doi
	}
	if id := w.arxivID(); id != "" {
		c.ExternalID = id
		c.URL = arxivAbsBase + id
	}

	if w.BestOALocation != nil && w.BestOALocation.PDFURL != "" {
		c.PDFURL = w.BestOALocation.PDFURL
	}
	return c
}

// arxivID recovers an arXiv ID from the work's DOI or its locations.
func (w openAlexWork) arxivID() string {
	doi := strings.TrimPrefix(strings.ToLower(w.DOI), "https://doi.org/")
	if id, ok := strings.CutPrefix(doi, arxivDOIPrefix); ok && IsArxivID(id) {
		return id
	}
	for _, loc := range w.Locations {
		if _, rest, ok := strings.Cut(loc.LandingPageURL, "arxiv.org/abs/"); ok {
			if id := extractArxivID("/abs/" + rest); IsArxivID(id) {
				return id
			}
		}
	}
	return ""
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DisplayName     string               `json:"display_name"`
	DOI             string               `json:"doi"`
	PublicationDate string               `json:"publication_date"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	BestOALocation  *openAlexLocation    `json:"best_oa_location"`
	Locations       []openAlexLocation   `json:"locations"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	PDFURL         string `json:"pdf_url"`
	LandingPageURL string `json:"landing_page_url"`
}
