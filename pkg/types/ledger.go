// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperEntry is one paper in the input file.
type PaperEntry struct {
	PaperName string `json:"paper_name"`
	PaperURL  string `json:"paper_url"`
}

// RunMetadata describes how an input file was produced.
type RunMetadata struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
	Model     string `json:"model"`
}

// InputFile is the papers list consumed by the download command.
type InputFile struct {
	Papers   []PaperEntry `json:"papers"`
	Metadata *RunMetadata `json:"metadata,omitempty"`
}

// Queries converts the input entries into paper queries.
func (f InputFile) Queries() []PaperQuery {
	out := make([]PaperQuery, 0, len(f.Papers))
	for _, p := range f.Papers {
		out = append(out, PaperQuery{Title: p.PaperName, SourceURL: p.PaperURL})
	}
	return out
}

// LedgerRecord is one row of download_results.json. A downloaded row has
// PDFPath and no Error; a failed row has Error and no PDFPath.
type LedgerRecord struct {
	PaperName    string           `json:"paper_name"`
	PaperURL     string           `json:"paper_url"`
	ArxivID      string           `json:"arxiv_id,omitempty"`
	ArxivURL     string           `json:"arxiv_url,omitempty"`
	PDFPath      string           `json:"pdf_path,omitempty"`
	Downloaded   bool             `json:"downloaded"`
	Error        string           `json:"error,omitempty"`
	Status       ResolutionStatus `json:"status,omitempty"`
	ManualSearch bool             `json:"manual_search,omitempty"`
}

// LedgerFile is the on-disk shape of the ledger.
type LedgerFile struct {
	Papers   []LedgerRecord `json:"papers"`
	Metadata *RunMetadata   `json:"metadata,omitempty"`
}
