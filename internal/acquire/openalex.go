// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-fetch/internal/httputil"
)

// openAlexAPIBase is the OpenAlex works endpoint; tests point it at an
// httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

// oaWork is the part of an OpenAlex work record that locates documents.
type oaWork struct {
	BestOALocation *oaLocation  `json:"best_oa_location"`
	Locations      []oaLocation `json:"locations"`
}

type oaLocation struct {
	IsOA   bool   `json:"is_oa"`
	PDFURL string `json:"pdf_url"`
}

// pdf returns the best open-access PDF link of w: the best location when it
// has one, else the first open-access location that links a PDF.
func (w oaWork) pdf() string {
	if w.BestOALocation != nil && w.BestOALocation.PDFURL != "" {
		return w.BestOALocation.PDFURL
	}
	for _, loc := range w.Locations {
		if loc.IsOA && loc.PDFURL != "" {
			return loc.PDFURL
		}
	}
	return ""
}

// openAccessPDF asks OpenAlex for an open-access PDF of the work with doi.
// An empty URL and nil error mean the work is known but has no such PDF.
func (f *Fetcher) openAccessPDF(ctx context.Context, doi string) (string, error) {
	segs := strings.Split(doi, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	u := openAlexAPIBase + "doi:" + strings.Join(segs, "/")
	if f.Config.OpenAlexEmail != "" {
		u += "?" + url.Values{"mailto": {f.Config.OpenAlexEmail}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building OpenAlex request: %w", err)
	}
	req.Header.Set("User-Agent", f.Config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, 0)
	if err != nil {
		return "", fmt.Errorf("OpenAlex lookup of %s: %w", doi, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("OpenAlex has no work for %s", doi)
	default:
		return "", fmt.Errorf("OpenAlex lookup of %s: HTTP %d", doi, resp.StatusCode)
	}

	var w oaWork
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return "", fmt.Errorf("decoding OpenAlex work: %w", err)
	}
	return w.pdf(), nil
}
