// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"errors"
	"fmt"

	"github.com/pdiddy/paper-fetch/internal/acquire"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Record contract violations.
var (
	ErrMissingPDFPath = errors.New("downloaded record without pdf_path")
	ErrMissingError   = errors.New("failed record without error")
	ErrUnexpectedPath = errors.New("failed record with pdf_path")
	ErrUnexpectedErr  = errors.New("downloaded record with error")
)

// NewRecord builds the ledger row of one paper. out is nil when the paper
// was never handed to the fetcher (unresolved). The row always satisfies
// Validate.
func NewRecord(q types.PaperQuery, res types.ResolutionResult, out *types.FetchOutcome) types.LedgerRecord {
	rec := types.LedgerRecord{
		PaperName:    q.Title,
		PaperURL:     q.SourceURL,
		Status:       res.Status,
		ManualSearch: res.Status == types.StatusResolvedManually,
	}
	if res.Chosen != nil {
		if t, id := acquire.Classify(res.Chosen.ExternalID); t == acquire.TypeArxiv {
			rec.ArxivID = id
			rec.ArxivURL = acquire.AbsURL(id)
		}
	}

	if out != nil && out.Downloaded && out.LocalPath != "" {
		rec.Downloaded = true
		rec.PDFPath = out.LocalPath
		return rec
	}

	switch {
	case out != nil && out.Error != "":
		rec.Error = out.Error
	case res.ErrorDetail != "":
		rec.Error = res.ErrorDetail
	case !res.Resolved():
		rec.Error = "paper could not be resolved"
	default:
		rec.Error = "document was not retrieved"
	}
	return rec
}

// Validate checks the field-presence contract external tools rely on:
// downloaded rows carry pdf_path and no error, failed rows carry error and
// no pdf_path.
func Validate(rec types.LedgerRecord) error {
	var err error
	if rec.Downloaded {
		if rec.PDFPath == "" {
			err = ErrMissingPDFPath
		} else if rec.Error != "" {
			err = ErrUnexpectedErr
		}
	} else {
		if rec.Error == "" {
			err = ErrMissingError
		} else if rec.PDFPath != "" {
			err = ErrUnexpectedPath
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %q", err, rec.PaperName)
	}
	return nil
}

// SelectRetry returns the input papers that still need work: those with no
// ledger row and those whose row is not downloaded. Input order is kept and
// duplicate titles are returned once.
func SelectRetry(input types.InputFile, existing *types.LedgerFile) []types.PaperEntry {
	done := make(map[string]bool)
	if existing != nil {
		for _, rec := range existing.Papers {
			if rec.Downloaded {
				done[Key(rec.PaperName)] = true
			}
		}
	}

	seen := make(map[string]bool)
	var out []types.PaperEntry
	for _, p := range input.Papers {
		k := Key(p.PaperName)
		if done[k] || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

// Summary counts outcomes of a run. Resolved, ResolvedManually and
// Unresolved partition the papers; Downloaded and Failed partition the
// resolved ones.
type Summary struct {
	Total            int `json:"total"`
	Resolved         int `json:"resolved"`
	ResolvedManually int `json:"resolved_manually"`
	Unresolved       int `json:"unresolved"`
	Downloaded       int `json:"downloaded"`
	Failed           int `json:"failed"`
}

// Add counts one row. Rows written by older tools carry no status; their
// status is derived from the downloaded flag.
func (s *Summary) Add(rec types.LedgerRecord) {
	s.Total++
	status := rec.Status
	if status == "" {
		switch {
		case rec.Downloaded && rec.ManualSearch:
			status = types.StatusResolvedManually
		case rec.Downloaded:
			status = types.StatusResolved
		default:
			status = types.StatusUnresolved
		}
	}

	switch status {
	case types.StatusResolved:
		s.Resolved++
	case types.StatusResolvedManually:
		s.ResolvedManually++
	default:
		s.Unresolved++
		return
	}
	if rec.Downloaded {
		s.Downloaded++
	} else {
		s.Failed++
	}
}

// Summarize counts every row.
func Summarize(records []types.LedgerRecord) Summary {
	var s Summary
	for _, rec := range records {
		s.Add(rec)
	}
	return s
}
