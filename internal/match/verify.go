// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Verifier judges lookup candidates against a requested title. It is
// stateless after construction and safe for concurrent use.
type Verifier struct {
	weights   types.MatchWeights
	threshold float64
	minWords  float64
	minRatio  float64
	maxRatio  float64
	blacklist []string
}

// NewVerifier builds a Verifier from cfg. Zero-valued settings fall back to
// the defaults of types.DefaultMatchConfig.
func NewVerifier(cfg types.MatchConfig) *Verifier {
	def := types.DefaultMatchConfig()

	w := cfg.Weights
	sum := w.Similarity + w.Containment + w.WordOverlap
	if sum <= 0 || w.Similarity < 0 || w.Containment < 0 || w.WordOverlap < 0 {
		w = def.Weights
		sum = w.Similarity + w.Containment + w.WordOverlap
	}
	w.Similarity /= sum
	w.Containment /= sum
	w.WordOverlap /= sum

	v := &Verifier{
		weights:   w,
		threshold: orDefault(cfg.AcceptThreshold, def.AcceptThreshold),
		minWords:  orDefault(cfg.MinWordOverlap, def.MinWordOverlap),
		minRatio:  orDefault(cfg.MinLengthRatio, def.MinLengthRatio),
		maxRatio:  orDefault(cfg.MaxLengthRatio, def.MaxLengthRatio),
	}

	patterns := cfg.Blacklist
	if patterns == nil {
		patterns = def.Blacklist
	}
	for _, p := range patterns {
		if n := Normalize(p); n != "" {
			v.blacklist = append(v.blacklist, n)
		}
	}
	return v
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

// Threshold returns the acceptance threshold in use.
func (v *Verifier) Threshold() float64 { return v.threshold }

// Verify scores candidate against target. Rejection rules run in order
// (blacklist, length ratio, word overlap) and the first that fires is
// recorded. A candidate is accepted only when no rule fired and the
// composite score reaches the threshold.
func (v *Verifier) Verify(target string, candidate types.Candidate) types.MatchVerdict {
	verdict := types.MatchVerdict{
		Candidate:   candidate,
		Similarity:  Similarity(target, candidate.Title),
		Containment: ContainmentScore(target, candidate.Title),
		WordOverlap: ImportantWordOverlap(target, candidate.Title),
	}
	score := v.weights.Similarity*verdict.Similarity +
		v.weights.Containment*verdict.Containment +
		v.weights.WordOverlap*verdict.WordOverlap
	verdict.CompositeScore = math.Max(0, math.Min(1, score))

	verdict.RejectionReason = v.rejection(target, candidate.Title, verdict.WordOverlap)
	verdict.Accepted = verdict.RejectionReason == types.RejectNone &&
		verdict.CompositeScore >= v.threshold
	return verdict
}

func (v *Verifier) rejection(target, title string, overlap float64) types.RejectionReason {
	nt, nc := Normalize(target), Normalize(title)

	for _, p := range v.blacklist {
		if containsPhrase(nc, p) && !containsPhrase(nt, p) {
			return types.RejectBlacklisted
		}
	}

	if ratio := lengthRatio(nt, nc); ratio < v.minRatio || ratio > v.maxRatio {
		return types.RejectLengthRatio
	}

	if overlap < v.minWords {
		return types.RejectLowWordOverlap
	}
	return types.RejectNone
}

// lengthRatio is len(candidate)/len(target) over normalized runes.
func lengthRatio(target, candidate string) float64 {
	lt, lc := utf8.RuneCountInString(target), utf8.RuneCountInString(candidate)
	switch {
	case lt == 0 && lc == 0:
		return 1
	case lt == 0:
		return math.Inf(1)
	}
	return float64(lc) / float64(lt)
}

func containsPhrase(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
