// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RejectionReason names the verification rule that disqualified a candidate.
type RejectionReason string

const (
	RejectNone           RejectionReason = ""
	RejectBlacklisted    RejectionReason = "blacklisted"
	RejectLengthRatio    RejectionReason = "length_ratio"
	RejectLowWordOverlap RejectionReason = "low_word_overlap"
)

// MatchVerdict is the verifier's judgement of one candidate against the
// requested title.
type MatchVerdict struct {
	Candidate Candidate `json:"candidate"`

	// CompositeScore is the weighted sum of the three signals, in [0, 1].
	CompositeScore float64 `json:"composite_score"`

	Similarity  float64 `json:"similarity"`
	Containment float64 `json:"containment"`
	WordOverlap float64 `json:"word_overlap"`

	// Accepted is true iff the score met the threshold and no rule fired.
	Accepted bool `json:"accepted"`

	// RejectionReason is the first rule that fired, empty otherwise.
	RejectionReason RejectionReason `json:"rejection_reason,omitempty"`
}

// ResolutionStatus is the outcome of resolving one paper.
type ResolutionStatus string

const (
	StatusResolved         ResolutionStatus = "resolved"
	StatusResolvedManually ResolutionStatus = "resolved_manually"
	StatusUnresolved       ResolutionStatus = "unresolved"
)

// ResolutionResult is produced exactly once per PaperQuery.
type ResolutionResult struct {
	Query PaperQuery `json:"query"`

	// Chosen is set iff Status is resolved or resolved_manually.
	Chosen *Candidate `json:"chosen,omitempty"`

	// Verdict is the accepted verdict; nil for operator-supplied identifiers.
	Verdict *MatchVerdict `json:"verdict,omitempty"`

	Status ResolutionStatus `json:"status"`

	// ErrorDetail explains an unresolved outcome.
	ErrorDetail string `json:"error_detail,omitempty"`

	// Attempts counts the provider lookups issued.
	Attempts int `json:"attempts"`
}

// Resolved reports whether a candidate was chosen.
func (r ResolutionResult) Resolved() bool {
	return r.Status == StatusResolved || r.Status == StatusResolvedManually
}

// FetchOutcome is the result of retrieving the document for a resolved paper.
type FetchOutcome struct {
	// LocalPath is set iff Downloaded.
	LocalPath string `json:"local_path,omitempty"`

	Downloaded bool `json:"downloaded"`

	// Error is set iff not Downloaded.
	Error string `json:"error,omitempty"`

	// Source records which attempt succeeded ("direct" or "identifier").
	Source string `json:"source,omitempty"`

	// DocumentURL is the URL the PDF came from.
	DocumentURL string `json:"document_url,omitempty"`
}
