// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PaperQuery is one input unit: a human-readable title plus the URL where
// the title was found. It never changes once loaded.
type PaperQuery struct {
	// Title is the paper title as reported by the discovery source.
	Title string `json:"title" yaml:"title"`

	// SourceURL is the page that cited the paper (conference site, blog, ...).
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}

// Candidate is one record returned by a lookup provider.
type Candidate struct {
	// Title is the candidate's title as the provider reports it.
	Title string `json:"title" yaml:"title"`

	// ExternalID is the canonical identifier (arXiv ID preferred, else DOI).
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	// URL is the provider's landing page for the record.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// PDFURL is a direct document link when the provider knows one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// RawScore is the provider's own ranking signal in [0, 1].
	RawScore float64 `json:"raw_score" yaml:"raw_score"`

	// Source names the provider(s) that returned the record.
	Source string `json:"source" yaml:"source"`

	Authors   []string  `json:"authors,omitempty" yaml:"authors,omitempty"`
	Published time.Time `json:"published,omitzero" yaml:"published,omitempty"`
	Abstract  string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
}

// PaperMetadata is the YAML record written next to a downloaded PDF.
type PaperMetadata struct {
	// ID is the canonical identifier the document was resolved to.
	ID string `json:"id" yaml:"id"`

	// RequestedTitle is the title from the input file.
	RequestedTitle string `json:"requested_title" yaml:"requested_title"`

	// Title is the matched record's title.
	Title string `json:"title" yaml:"title"`

	// SourceURL is the URL from which the PDF was downloaded.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// PDFPath is the local filesystem path to the downloaded PDF.
	PDFPath string `json:"pdf_path" yaml:"pdf_path"`

	Authors  []string  `json:"authors" yaml:"authors"`
	Date     time.Time `json:"date" yaml:"date"`
	Abstract string    `json:"abstract" yaml:"abstract"`

	// Source identifies which provider supplied the match (e.g. "arxiv", "openalex").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Score is the composite verification score, zero for manual matches.
	Score float64 `json:"score" yaml:"score"`

	// Pages is the page count when PDF verification ran.
	Pages int `json:"pages,omitempty" yaml:"pages,omitempty"`
}
