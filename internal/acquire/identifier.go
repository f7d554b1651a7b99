// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"net/url"
	"regexp"
	"strings"
)

// IdentifierType classifies a candidate's external identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypeURL
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// Base URLs for identifier resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivPDFBase = "https://arxiv.org/pdf/"
	arxivAbsBase = "https://arxiv.org/abs/"
	doiBase      = "https://doi.org/"
)

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// Classify determines the identifier type and returns the normalized form.
// For arXiv, it strips the optional "arXiv:" prefix; for DOIs a leading
// resolver URL is removed.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}

	doi := strings.TrimPrefix(strings.TrimPrefix(identifier, "https://doi.org/"), "doi:")
	if doiPattern.MatchString(doi) {
		return TypeDOI, doi
	}

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return TypeURL, identifier
	}

	return TypeUnknown, identifier
}

// PDFURL returns the canonical document URL for the identifier. For arXiv,
// this is the arxiv.org PDF endpoint. For DOI, this is the doi.org resolver
// (the HTTP client follows redirects). For direct URLs, it returns as-is.
func PDFURL(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return arxivPDFBase + normalized
	case TypeDOI:
		return doiBase + normalized
	case TypeURL:
		return normalized
	default:
		return ""
	}
}

// AbsURL returns the arXiv abstract page for an arXiv ID, empty otherwise.
func AbsURL(identifier string) string {
	if t, id := Classify(identifier); t == TypeArxiv {
		return arxivAbsBase + id
	}
	return ""
}

// venuePDFURL guesses the PDF link of a proceedings abstract page.
// NeurIPS publishes ".../hash/<h>-Abstract.html" next to
// ".../file/<h>-Paper.pdf". Other hosts yield "".
func venuePDFURL(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if !strings.Contains(host, "neurips.cc") && !strings.Contains(host, "nips.cc") {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return sourceURL
	}
	if !strings.Contains(u.Path, "-Abstract") {
		return ""
	}
	p := strings.Replace(u.Path, "/hash/", "/file/", 1)
	p = strings.Replace(p, "-Abstract-Conference.html", "-Paper-Conference.pdf", 1)
	p = strings.Replace(p, "-Abstract.html", "-Paper.pdf", 1)
	if p == u.Path {
		return ""
	}
	u.Path = p
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
